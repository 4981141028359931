package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"swapsum/internal/config"
	"swapsum/internal/warehouse"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     config.PathsConfig
	warehouse *warehouse.Warehouse
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version string, paths config.PathsConfig, wh *warehouse.Warehouse, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		warehouse: wh,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Check returns the overall health of the service and its dependencies.
// Status degrades to "degraded" when a dependency fails; the process itself
// stays healthy as long as it can answer.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: map[string]interface{}{},
	}

	status.Services["reports_dir"] = s.checkReportsDir()
	status.Services["warehouse"] = s.checkWarehouse(ctx)

	for _, svc := range status.Services {
		if health, ok := svc.(ServiceHealth); ok && health.Status != "healthy" && health.Status != "disabled" {
			status.Status = "degraded"
		}
	}
	return status
}

// Ready reports whether the service can accept report uploads.
func (s *HealthService) Ready(ctx context.Context) bool {
	return s.checkReportsDir().Status == "healthy"
}

func (s *HealthService) checkReportsDir() ServiceHealth {
	probe := filepath.Join(s.paths.ReportsDir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return ServiceHealth{Status: "unhealthy", Message: err.Error()}
	}
	os.Remove(probe)
	return ServiceHealth{Status: "healthy"}
}

func (s *HealthService) checkWarehouse(ctx context.Context) ServiceHealth {
	if s.warehouse == nil {
		return ServiceHealth{Status: "disabled"}
	}
	if _, err := s.warehouse.ListRuns(ctx); err != nil {
		return ServiceHealth{Status: "unhealthy", Message: err.Error()}
	}
	return ServiceHealth{Status: "healthy"}
}
