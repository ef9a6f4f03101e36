package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/locatekit/stakeflow/internal/bluestakes"
	"github.com/locatekit/stakeflow/internal/config"
	"github.com/locatekit/stakeflow/internal/database"
	"github.com/locatekit/stakeflow/internal/repository"
	"github.com/locatekit/stakeflow/internal/services/reconcile"
	"github.com/locatekit/stakeflow/internal/services/scheduler"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one cache warming pass and exit",
	Long: `Authenticates as the configured scheduler service account,
recomputes the due and unassigned ticket lists, and stores them in the
session cache. Intended for external cron setups that do not want the
in-process scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if cfg.Scheduler.Username == "" {
			return fmt.Errorf("scheduler.username is required for sweep")
		}
		return runSweep(cfg)
	},
}

func runSweep(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

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

	engine := reconcile.NewService(upstream, repository.NewAssignmentRepository(db),
		reconcile.WithLogger(logger),
		reconcile.WithCache(sessionCache),
		reconcile.WithCacheTTL(cfg.Cache.TTL),
	)

	sweep := scheduler.NewService(engine, upstream,
		scheduler.WithLogger(logger),
		scheduler.WithAccount(scheduler.Account{
			Username: cfg.Scheduler.Username,
			Password: cfg.Scheduler.Password,
		}),
	)
	return sweep.RunSweep(ctx)
}
