package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/cache"
)

// Health states reported for the service and its database.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// Pinger is satisfied by the database provider.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RestHealthHandler reports database and cache reachability.
type RestHealthHandler struct {
	db  Pinger
	rdb *redis.Client
	now func() time.Time
}

// NewRestHealthHandler creates a new RestHealthHandler. rdb may be nil when no cache is configured.
func NewRestHealthHandler(db Pinger, rdb *redis.Client) *RestHealthHandler {
	return &RestHealthHandler{db: db, rdb: rdb, now: time.Now}
}

// Health handles GET /health
func (h *RestHealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbStatus := HealthHealthy
	if err := h.db.Ping(ctx); err != nil {
		log.Printf("WARNING: health check database ping failed: %v", err)
		dbStatus = HealthUnhealthy
	}
	cacheStatus := cache.Status(ctx, h.rdb)

	status, code := HealthHealthy, http.StatusOK
	if dbStatus != HealthHealthy || cacheStatus == cache.StatusUnhealthy {
		status, code = HealthUnhealthy, http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"cache":     cacheStatus,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
