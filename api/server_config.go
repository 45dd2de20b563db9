package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the HTTP server of the sealing service.
type HTTPServerConfig struct {
	ListenAddr string
	// MetricsAddr is where Prometheus metrics are served. Empty disables the metrics server.
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// DrainDuration is how long /drain waits for load balancers to notice.
	DrainDuration time.Duration
	// GracefulShutdownDuration bounds how long in-flight requests may finish.
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}
