package _kafka

import (
	"context"
	"encoding/json"

	_redis "streamloop/pkg/redis"

	_logger "streamloop/pkg/logger"
)

// RedisDiagnostics JSON-encodes each Event and PUBLISHes it on a fixed
// channel. Fire-and-forget: publish errors are logged and dropped, the
// Runloop never learns about them.
type RedisDiagnostics struct {
	conn    *_redis.Connection
	channel string
	log     *_logger.Logger
}

// NewRedisDiagnostics wraps an already-connected Connection.
func NewRedisDiagnostics(conn *_redis.Connection, channel string, log *_logger.Logger) *RedisDiagnostics {
	return &RedisDiagnostics{conn: conn, channel: channel, log: log}
}

func (d *RedisDiagnostics) Emit(e Event) {
	payload, err := json.Marshal(eventPayload(e))
	if err != nil {
		if d.log != nil {
			d.log.Error(context.Background(), "kafka diagnostics: marshal event", "error", err, "kind", e.Kind.String())
		}
		return
	}
	client := d.conn.GetClient()
	if client == nil {
		return
	}
	if err := client.Publish(context.Background(), d.channel, payload).Err(); err != nil {
		if d.log != nil {
			d.log.Error(context.Background(), "kafka diagnostics: publish event", "error", err, "kind", e.Kind.String())
		}
	}
}
