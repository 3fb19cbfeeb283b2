package _postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseClient defines the common interface for database operations
type DatabaseClient interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Health check
	IsHealthy(ctx context.Context) bool
}

// ConnectionStats provides database connection statistics
type ConnectionStats struct {
	OpenConnections   int           `json:"open_connections"`
	InUseConnections  int           `json:"in_use_connections"`
	IdleConnections   int           `json:"idle_connections"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// StatsProvider interface for getting connection statistics
type StatsProvider interface {
	Stats() ConnectionStats
}

// PgxClient extends DatabaseClient with pgx-specific operations
type PgxClient interface {
	DatabaseClient
	StatsProvider

	// pgx-specific methods
	GetPool() *pgxpool.Pool // Returns *pgxpool.Pool
	GetConn() *pgx.Conn     // Returns *pgx.Conn
}
