// Package server assembles the HTTP and gRPC listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"appointment-scheduler/internal/config"
	"appointment-scheduler/internal/handler"
	"appointment-scheduler/internal/health"
	"appointment-scheduler/internal/metrics"
	"appointment-scheduler/internal/middleware"
	"appointment-scheduler/internal/service"
	"appointment-scheduler/internal/session"
	"appointment-scheduler/internal/store"
)

const (
	healthInterval = 15 * time.Second
	purgeInterval  = time.Hour
	shutdownGrace  = 10 * time.Second
)

type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	pool    *pgxpool.Pool
	http    *http.Server
	grpc    *grpc.Server
	checker *health.Checker
	purger  *session.PostgresBackend
	closers []func() error
}

// New connects to the database, applies migrations when configured and
// builds both listeners. It does not start serving.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if cfg.MigrateOnStart {
		applied, err := store.Migrate(cfg.DatabaseURL, true)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations checked", zap.Bool("applied", applied))
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Info("connected to postgres")
	st := store.New(pool)

	s := &Server{cfg: cfg, log: log, pool: pool}

	backend, err := s.sessionBackend(ctx, st)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sessions := session.NewStore(backend, []byte(cfg.SessionSecret), cfg.SessionTTL, cfg.Production(), log)

	m := metrics.New()
	s.checker = health.NewChecker(st, m, log)

	h, err := handler.New(
		service.NewAuthService(st, log),
		service.NewLedger(st, log),
		service.NewDirectory(st, log),
		sessions, m, log,
	)
	if err != nil {
		s.close()
		return nil, err
	}

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, m)

	s.http = &http.Server{
		Addr: ":" + cfg.WebPort,
		Handler: h.Router(handler.RouterConfig{
			CSRFSecret: cfg.SessionSecret,
			Limiter:    limiter,
			Health:     s.checker,
			Metrics:    m.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      65 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.grpc = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.UnaryRateLimit(limiter),
			middleware.UnaryLogger(log.Named("grpc")),
		),
	)
	healthpb.RegisterHealthServer(s.grpc, s.checker.GRPC())
	reflection.Register(s.grpc)

	return s, nil
}

func (s *Server) sessionBackend(ctx context.Context, st *store.Store) (session.Backend, error) {
	switch s.cfg.SessionBackend {
	case config.BackendRedis:
		b, err := session.NewRedisBackend(ctx, s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, b.Close)
		s.log.Info("sessions in redis", zap.String("addr", s.cfg.RedisAddr))
		return b, nil
	case config.BackendMemory:
		s.log.Warn("sessions in process memory; they are lost on restart")
		return session.NewMemoryBackend(s.cfg.SessionTTL), nil
	default:
		b := session.NewPostgresBackend(st.Sessions())
		s.purger = b
		return b, nil
	}
}

// Run serves until ctx is cancelled or a listener fails, then shuts both
// listeners down.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	lis, err := net.Listen("tcp", ":"+s.cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("grpc listening", zap.String("addr", lis.Addr().String()))
		return s.grpc.Serve(lis)
	})
	g.Go(func() error {
		s.log.Info("http listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.checker.Run(ctx, healthInterval)
		return nil
	})
	if s.purger != nil {
		g.Go(func() error {
			s.purgeSessions(ctx)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.grpc.GracefulStop()
		return s.http.Shutdown(sctx)
	})

	return g.Wait()
}

func (s *Server) purgeSessions(ctx context.Context) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.purger.Purge(ctx)
			if err != nil {
				s.log.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Debug("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}

func (s *Server) close() {
	for _, c := range s.closers {
		_ = c()
	}
	s.pool.Close()
}
