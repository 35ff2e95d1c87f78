// Package health tracks database reachability and reports it over gRPC
// (grpc.health.v1) and HTTP.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"appointment-scheduler/internal/metrics"
)

// Service is the name reported alongside the overall ("") status.
const Service = "scheduler"

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	db   Pinger
	grpc *health.Server
	m    *metrics.Metrics
	log  *zap.Logger
	up   atomic.Bool
}

func NewChecker(db Pinger, m *metrics.Metrics, log *zap.Logger) *Checker {
	return &Checker{db: db, grpc: health.NewServer(), m: m, log: log.Named("health")}
}

// GRPC is the server to register with grpc_health_v1.
func (c *Checker) GRPC() *health.Server { return c.grpc }

// Check pings the database once and publishes the result.
func (c *Checker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := c.db.Ping(ctx)
	ok := err == nil
	if was := c.up.Swap(ok); was != ok {
		if ok {
			c.log.Info("database reachable")
		} else {
			c.log.Warn("database unreachable", zap.Error(err))
		}
	}

	st := healthpb.HealthCheckResponse_NOT_SERVING
	gauge := 0.0
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
		gauge = 1
	}
	c.grpc.SetServingStatus("", st)
	c.grpc.SetServingStatus(Service, st)
	if c.m != nil {
		c.m.DBUp.Set(gauge)
	}
	return ok
}

// Run re-checks every interval until ctx ends, then marks everything as
// not serving.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	c.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}

// ServeHTTP answers /healthz with a fresh ping.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if !c.Check(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
