// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/warehouse-crm/internal/core/ports"
	"github.com/ammerola/warehouse-crm/internal/pkg/config"
)

// DependencyCheck probes one backing service. Check returns optional details
// for the health report. Only Required checks gate readiness.
type DependencyCheck struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) (map[string]interface{}, error)
}

// StoreCheck probes the catalog store selected by the storage driver
func StoreCheck(driver string, store ports.CatalogStore) DependencyCheck {
	return DependencyCheck{
		Name:     "catalog_store",
		Required: true,
		Check: func(ctx context.Context) (map[string]interface{}, error) {
			if err := store.Ping(ctx); err != nil {
				return nil, err
			}
			return map[string]interface{}{"driver": driver}, nil
		},
	}
}

// DatabaseCheck reports the PostgreSQL pool statistics
func DatabaseCheck(database ports.Database) DependencyCheck {
	return DependencyCheck{
		Name:     "database",
		Required: true,
		Check: func(ctx context.Context) (map[string]interface{}, error) {
			if err := database.Ping(ctx); err != nil {
				return nil, err
			}
			return database.Health(ctx), nil
		},
	}
}

// RedisCheck probes the cache. The service falls back to direct reads
// without it, so it does not gate readiness.
func RedisCheck(client *redis.Client) DependencyCheck {
	return DependencyCheck{
		Name: "redis",
		Check: func(ctx context.Context) (map[string]interface{}, error) {
			pong, err := client.Ping(ctx).Result()
			if err != nil {
				return nil, err
			}
			stats := client.PoolStats()
			return map[string]interface{}{
				"ping":        pong,
				"total_conns": stats.TotalConns,
				"idle_conns":  stats.IdleConns,
				"stale_conns": stats.StaleConns,
			}, nil
		},
	}
}

// AsynqCheck reports queue sizes and connected worker servers
func AsynqCheck(inspector *asynq.Inspector) DependencyCheck {
	return DependencyCheck{
		Name: "asynq",
		Check: func(ctx context.Context) (map[string]interface{}, error) {
			queues, err := inspector.Queues()
			if err != nil {
				return nil, err
			}

			queueStats := make(map[string]interface{}, len(queues))
			for _, queue := range queues {
				qInfo, err := inspector.GetQueueInfo(queue)
				if err != nil {
					continue
				}
				queueStats[queue] = map[string]interface{}{
					"size":      qInfo.Size,
					"active":    qInfo.Active,
					"pending":   qInfo.Pending,
					"scheduled": qInfo.Scheduled,
					"retry":     qInfo.Retry,
					"archived":  qInfo.Archived,
					"completed": qInfo.Completed,
				}
			}

			details := map[string]interface{}{"queues": queueStats}
			if servers, err := inspector.Servers(); err == nil {
				details["servers"] = len(servers)
			}
			return details, nil
		},
	}
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks    []DependencyCheck
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config, logger *slog.Logger, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

// HealthStatus represents the health status of the application
type HealthStatus struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]ServiceInfo `json:"services"`
	System      SystemInfo             `json:"system"`
}

// ServiceInfo represents the status of a service dependency
type ServiceInfo struct {
	Status       string                 `json:"status"`
	Message      string                 `json:"message,omitempty"`
	ResponseTime string                 `json:"response_time,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SystemInfo represents system-level information
type SystemInfo struct {
	GoVersion      string `json:"go_version"`
	NumGoroutines  int    `json:"num_goroutines"`
	NumCPU         int    `json:"num_cpu"`
	MemoryAllocMB  uint64 `json:"memory_alloc_mb"`
	MemorySysMB    uint64 `json:"memory_sys_mb"`
	GCPauseTotalMs uint64 `json:"gc_pause_total_ms"`
	NumGC          uint32 `json:"num_gc"`
}

// Health handles the /health endpoint
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:      "healthy",
		Version:     h.config.App.Version,
		Environment: h.config.App.Environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:   time.Now(),
		Services:    make(map[string]ServiceInfo, len(h.checks)),
		System:      h.getSystemInfo(),
	}

	for _, check := range h.checks {
		info := h.run(ctx, check)
		health.Services[check.Name] = info
		if info.Status != "healthy" {
			health.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	h.write(ctx, w, statusCode, health)
}

// Readiness handles the /ready endpoint
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := true
	details := make(map[string]string)

	for _, check := range h.checks {
		if !check.Required {
			continue
		}
		if _, err := check.Check(ctx); err != nil {
			ready = false
			details[check.Name] = "not ready"
		} else {
			details[check.Name] = "ready"
		}
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	h.write(ctx, w, statusCode, map[string]interface{}{
		"ready":   ready,
		"details": details,
	})
}

func (h *HealthHandler) run(ctx context.Context, check DependencyCheck) ServiceInfo {
	start := time.Now()

	details, err := check.Check(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "health check failed",
			slog.String("dependency", check.Name),
			slog.String("error", err.Error()))
		return ServiceInfo{Status: "unhealthy", Message: err.Error()}
	}

	return ServiceInfo{
		Status:       "healthy",
		ResponseTime: time.Since(start).String(),
		Details:      details,
	}
}

func (h *HealthHandler) write(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}

// getSystemInfo returns system-level information
func (h *HealthHandler) getSystemInfo() SystemInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemInfo{
		GoVersion:      runtime.Version(),
		NumGoroutines:  runtime.NumGoroutine(),
		NumCPU:         runtime.NumCPU(),
		MemoryAllocMB:  memStats.Alloc / 1024 / 1024,
		MemorySysMB:    memStats.Sys / 1024 / 1024,
		GCPauseTotalMs: memStats.PauseTotalNs / 1000 / 1000,
		NumGC:          memStats.NumGC,
	}
}
