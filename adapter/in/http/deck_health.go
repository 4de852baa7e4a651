package http

import (
	"context"
	"time"

	"taskdeck/infra/database"
	"taskdeck/pkg/metrics"
	"taskdeck/pkg/resilience"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// APIStatus reports on the todo API client.
type APIStatus interface {
	Breaker() *resilience.Breaker
	Latency() map[string]metrics.LatencySummary
}

// LocalHub reports on the in-process broadcast hub.
type LocalHub interface {
	Dropped() int64
	Subscribers(channel string) int
}

// SyncStatus says which medium carries the sync channel. Exactly one of
// Redis and Hub is set.
type SyncStatus struct {
	Channel string
	Redis   *redis.Client
	Hub     LocalHub
}

type HealthHandler struct {
	tabID string
	api   APIStatus
	sync  SyncStatus
}

func NewHealthHandler(tabID string, api APIStatus, sync SyncStatus) *HealthHandler {
	return &HealthHandler{
		tabID: tabID,
		api:   api,
		sync:  sync,
	}
}

func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"tab_id":    h.tabID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	// Todo API (circuit breaker)
	var latency map[string]metrics.LatencySummary
	if h.api != nil {
		breaker := h.api.Breaker()
		if breaker.IsOpen() {
			checks["api"] = "unhealthy: circuit " + breaker.State()
			allHealthy = false
		} else {
			checks["api"] = "healthy (circuit " + breaker.State() + ")"
		}
		latency = h.api.Latency()
	} else {
		checks["api"] = "not configured"
	}

	// Broadcast medium
	sync := fiber.Map{"channel": h.sync.Channel}
	switch {
	case h.sync.Redis != nil:
		if err := h.sync.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["redis"] = "healthy"
		}
		sync["redis_pool"] = database.PoolStatsOf(h.sync.Redis)
	case h.sync.Hub != nil:
		checks["redis"] = "not configured (in-process hub)"
		sync["subscribers"] = h.sync.Hub.Subscribers(h.sync.Channel)
		sync["dropped"] = h.sync.Hub.Dropped()
	default:
		checks["redis"] = "not configured (sync disabled)"
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":      status,
		"checks":      checks,
		"api_latency": latency,
		"sync":        sync,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
