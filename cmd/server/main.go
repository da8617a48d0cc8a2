package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"activity-hub/internal/config"
	gweb "activity-hub/internal/grpcweb"
	"activity-hub/internal/handler"
	"activity-hub/internal/logging"
	"activity-hub/internal/membership"
	"activity-hub/internal/memstore"
	"activity-hub/internal/metrics"
	"activity-hub/internal/middleware"
	"activity-hub/internal/statussync"
	"activity-hub/internal/store"
	"activity-hub/internal/wire"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		// logger config lives in cfg, so this one goes to stderr
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Server, log *zap.Logger) error {
	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	m := metrics.New()
	members := membership.New(repo,
		membership.WithObserver(m.ObserveMembership),
		membership.WithLogger(log.Named("membership")),
	)
	h := handler.New(repo, members, log.Named("handler"))

	// grpc server
	rl := middleware.NewRateLimiter(ctx, cfg.RateRPS, cfg.RateBurst)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl),
			middleware.Auth(cfg.JWTSecret),
		),
	)
	handler.Register(srv, h)
	hs := health.NewServer()
	hs.SetServingStatus(wire.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	go func() {
		log.Info("grpc listening", zap.String("port", cfg.GRPCPort))
		if err := srv.Serve(lis); err != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	// the server runs its own pass so statuses move even with no client open
	if cfg.SyncEnabled {
		sched := statussync.New(repo,
			statussync.WithInterval(cfg.SyncInterval),
			statussync.WithObserver(m.ObserveSync),
			statussync.WithOnSyncError(func(err error) {
				log.Warn("status sync failed", zap.Error(err))
			}),
			statussync.WithLogger(log.Named("statussync")),
		)
		sched.Start(ctx)
		defer sched.Stop()
	}

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := gweb.Dial("localhost:"+cfg.GRPCPort, log.Named("grpcweb"))
	if err != nil {
		return err
	}
	defer bridge.Close()

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", m.Handler())
	router.Handle("/*", bridge.Handler())

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("port", cfg.WebPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	hs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	srv.GracefulStop()
	return nil
}

type repository interface {
	handler.Repository
	statussync.Repository
}

func openRepository(ctx context.Context, cfg *config.Server, log *zap.Logger) (repository, func(), error) {
	if cfg.DatabaseURL == config.MemoryStore {
		log.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("connected to postgres")

	st := store.New(pool)
	if err := st.Migrate(ctx, cfg.Migrations); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("migration file not found, skipping", zap.String("path", cfg.Migrations))
		} else {
			pool.Close()
			return nil, nil, err
		}
	} else {
		log.Info("migration applied", zap.String("path", cfg.Migrations))
	}
	return st, pool.Close, nil
}
