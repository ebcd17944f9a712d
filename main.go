package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/cache"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/config"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
)

var runMode = flag.String("m", config.RunModeAPI, "Run mode: 'api' (serve HTTP, default), 'migrate' (reconcile the schema and exit)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RunMode != config.RunModeAPI && cfg.RunMode != config.RunModeMigrate {
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	provider, err := db.Open(ctx, cfg.DBSettings())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if err := db.WaitFor(ctx, provider, cfg.DBWaitAttempts, db.DefaultWaitDelay); err != nil {
		log.Fatalf("Database never became reachable: %v", err)
	}

	if cfg.RunMode == config.RunModeMigrate || cfg.MigrateOnStart {
		if err := db.NewReconciler(provider, db.DefaultSchema()).Reconcile(ctx); err != nil {
			if errors.Is(err, apperr.ErrSchema) {
				log.Fatalf("Schema reconciliation failed, refusing to start: %v", err)
			}
			log.Fatalf("Schema reconciliation error: %v", err)
		}
	}
	if cfg.RunMode == config.RunModeMigrate {
		log.Println("Schema is up to date.")
		return
	}

	// Initialize Cache (Redis), optional
	redisClient := connectCache(cfg)
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	mainApiSrv := &http.Server{
		Addr:    ":" + cfg.ApiPort,
		Handler: api.SetupRouter(cfg, provider, redisClient),
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Main API listening on :%s (%s)", cfg.ApiPort, provider.Dialect())
		if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Println("Received shutdown signal. Shutting down gracefully...")
	case err := <-serverErr:
		if err != nil {
			log.Printf("Main API ListenAndServe error: %v", err)
		}
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Main API server shutdown error: %v", err)
		os.Exit(1)
	}
	log.Println("Server gracefully stopped")
}

// connectCache returns the Redis client when one is configured and reachable, nil otherwise.
func connectCache(cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled() {
		log.Println("Redis disabled, running without cache")
		return nil
	}
	rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("WARNING: %v. Continuing without cache.", err)
		return nil
	}
	return rdb
}
