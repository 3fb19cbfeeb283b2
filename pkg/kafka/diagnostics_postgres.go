package _kafka

import (
	"context"

	_pgx_postgres "streamloop/pkg/postgres/pgx"

	_logger "streamloop/pkg/logger"
)

// PostgresCommitLedger is the one diagnostics sink that is not purely
// decorative: on EventCommitSuccess it inserts one row per committed
// (topic, partition, mark) into an append-only audit table. It is
// still fire-and-forget from the Runloop's perspective — Emit never
// returns an error — but the rows it writes are meant to be read back,
// unlike the Redis/AMQP sinks' disposable notifications.
//
// Expected schema:
//
//	CREATE TABLE kafka_commit_ledger (
//	    id          bigserial PRIMARY KEY,
//	    topic       text NOT NULL,
//	    partition   int  NOT NULL,
//	    commit_mark bigint NOT NULL,
//	    committed_at timestamptz NOT NULL DEFAULT now()
//	);
type PostgresCommitLedger struct {
	conn  *_pgx_postgres.Connection
	table string
	log   *_logger.Logger
}

// NewPostgresCommitLedger wraps an already-connected pgx Connection.
// table defaults to "kafka_commit_ledger" when empty.
func NewPostgresCommitLedger(conn *_pgx_postgres.Connection, table string, log *_logger.Logger) *PostgresCommitLedger {
	if table == "" {
		table = "kafka_commit_ledger"
	}
	return &PostgresCommitLedger{conn: conn, table: table, log: log}
}

func (d *PostgresCommitLedger) Emit(e Event) {
	if e.Kind != EventCommitSuccess {
		return
	}
	pool := d.conn.GetPool()
	if pool == nil {
		return
	}

	ctx := context.Background()
	query := "INSERT INTO " + d.table + " (topic, partition, commit_mark) VALUES ($1, $2, $3)"
	for tp, mark := range e.Offsets {
		if _, err := pool.Exec(ctx, query, tp.Topic, tp.Partition, int64(mark)); err != nil {
			if d.log != nil {
				d.log.Error(ctx, "kafka diagnostics: insert commit ledger row", "error", err, "topic", tp.Topic, "partition", tp.Partition)
			}
		}
	}
}
