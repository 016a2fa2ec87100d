package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oggyb/qmatch/internal/app"
	"github.com/oggyb/qmatch/internal/cache"
	"github.com/oggyb/qmatch/internal/config"
	"github.com/oggyb/qmatch/internal/db"
	"github.com/oggyb/qmatch/internal/logger"
	"github.com/oggyb/qmatch/internal/metrics"
	"github.com/oggyb/qmatch/internal/server"
	"github.com/oggyb/qmatch/internal/service/matching"
	"github.com/oggyb/qmatch/internal/service/members"
	"github.com/oggyb/qmatch/internal/service/questions"
)

func main() {
	configPath := flag.String("config", "", "optional config file; environment variables take precedence")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	m := metrics.New()
	appCtx := app.New(cfg, database, redisCache, log, m)
	log.Info("relationship transitions", "table", appCtx.Transitions.Name())

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	// Metrics + health side server
	httpServer := m.NewHTTPServer(cfg.HTTP.Host, cfg.HTTP.Port, map[string]metrics.HealthCheck{
		"db": func(ctx context.Context) error {
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": redisCache.Ping,
	})
	interceptors := []grpc.UnaryServerInterceptor{m.UnaryInterceptor(log)}
	if cfg.RateLimit.RPS > 0 {
		interceptors = append(interceptors, server.RateLimitInterceptor(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	grpcServer := server.NewGRPCServer(
		interceptors,
		members.NewRegistrar(appCtx),
		questions.NewRegistrar(appCtx),
		matching.NewRegistrar(appCtx),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(gctx, cfg, grpcServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
