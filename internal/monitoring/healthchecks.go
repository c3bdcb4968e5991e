package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	HEALTHCHECK_TIMER   = 15 * time.Second
	HEALTHCHECK_TIMEOUT = 5 * time.Second
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckPlatformHealth runs a single health check and stores the outcome.
func CheckPlatformHealth(ctx context.Context, p Pinger, healthy *atomic.Bool) bool {
	pingCtx, cancel := context.WithTimeout(ctx, HEALTHCHECK_TIMEOUT)
	defer cancel()

	err := p.Ping(pingCtx)
	isHealthy := err == nil
	was := healthy.Swap(isHealthy)

	switch {
	case !isHealthy:
		slog.Warn("[HealthCheck] Platform is unhealthy", slog.String("error", err.Error()))
	case !was:
		slog.Info("[HealthCheck] Platform is healthy")
	}
	return isHealthy
}

// MonitorPlatformHealth checks p every interval until ctx is done.
func MonitorPlatformHealth(ctx context.Context, p Pinger, healthy *atomic.Bool, interval time.Duration) {
	if interval <= 0 {
		interval = HEALTHCHECK_TIMER
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			CheckPlatformHealth(ctx, p, healthy)
		}
	}
}
