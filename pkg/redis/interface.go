package _redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisClient defines the common interface for a Redis client
type RedisClient interface {
	// Connect establishes connection to Redis
	Connect(ctx context.Context) error

	// Close closes the Redis connection
	Close() error

	// Ping checks if the Redis connection is alive
	Ping(ctx context.Context) error

	// IsHealthy checks if the Redis connection is healthy
	IsHealthy(ctx context.Context) bool
}

// SingleNodeClient defines the interface for a single Redis node client
type SingleNodeClient interface {
	RedisClient

	// GetClient returns the underlying Redis client
	GetClient() *redis.Client
}
