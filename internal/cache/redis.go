package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Health states reported by Status.
const (
	StatusUnconfigured = "unconfigured"
	StatusHealthy      = "healthy"
	StatusUnhealthy    = "unhealthy"
)

// ConnectRedis initializes and returns a Redis client instance.
// An empty addr means the cache is disabled and a nil client is returned.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		log.Println("Redis disabled, running without cache")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		// Close the client if ping fails
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	log.Printf("Connected to Redis at %s", addr)
	return rdb, nil
}

// Status pings the client and reports its health for the health endpoint.
func Status(ctx context.Context, client *redis.Client) string {
	if client == nil {
		return StatusUnconfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis ping failed: %v", err)
		return StatusUnhealthy
	}
	return StatusHealthy
}

// DisconnectRedis closes the Redis client connection.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	log.Println("Redis connection closed.")
	return nil
}
