package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/locatekit/stakeflow/internal/api"
	"github.com/locatekit/stakeflow/internal/auth"
	"github.com/locatekit/stakeflow/internal/bluestakes"
	"github.com/locatekit/stakeflow/internal/cache"
	"github.com/locatekit/stakeflow/internal/config"
	"github.com/locatekit/stakeflow/internal/database"
	"github.com/locatekit/stakeflow/internal/repository"
	"github.com/locatekit/stakeflow/internal/services/reconcile"
	"github.com/locatekit/stakeflow/internal/services/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		return runServer(cfg)
	},
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.Default()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sessionCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}

	upstream := bluestakes.NewClient(cfg.Upstream.BaseURL,
		bluestakes.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}))

	assignments := repository.NewAssignmentRepository(db)
	engine := reconcile.NewService(upstream, assignments,
		reconcile.WithLogger(logger),
		reconcile.WithCache(sessionCache),
		reconcile.WithCacheTTL(cfg.Cache.TTL),
	)

	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	router := api.NewAPIRouter(upstream, engine, assignments, sessions, api.WithLogger(logger))
	r := gin.Default()
	router.RegisterRoutes(r)

	if cfg.Scheduler.Enabled {
		sweep := scheduler.NewService(engine, upstream,
			scheduler.WithLogger(logger),
			scheduler.WithSchedule(cfg.Scheduler.Schedule),
			scheduler.WithAccount(scheduler.Account{
				Username: cfg.Scheduler.Username,
				Password: cfg.Scheduler.Password,
			}),
		)
		if err := sweep.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sweep.Stop(stopCtx); err != nil {
				logger.Printf("scheduler stop: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (cache.Cache, error) {
	if cfg.Cache.RedisAddr == "" {
		logger.Printf("using in-process session cache")
		return cache.NewMemoryCache(), nil
	}
	redisCache, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Cache.RedisAddr, err)
	}
	logger.Printf("using redis session cache at %s", cfg.Cache.RedisAddr)
	return redisCache, nil
}
