// Package scheduler runs the optional cache-warming sweep. The engine is
// request-driven; the sweep just recomputes the due and unassigned lists
// for a service account on a cron schedule so the first morning request
// hits a warm cache.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/locatekit/stakeflow/internal/services/reconcile"
)

// Account holds the service-account credentials the sweep logs in with.
// Upstream tokens are short-lived, so every run authenticates fresh.
type Account struct {
	Username string
	Password string
}

// Warmer recomputes the cached ticket lists for a session.
type Warmer interface {
	Refresh(ctx context.Context, sess reconcile.Session) (*reconcile.TicketState, error)
}

// Authenticator exchanges credentials for an upstream bearer token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Service owns the cron instance and the single warm-cache job.
type Service struct {
	warmer   Warmer
	upstream Authenticator
	logger   *log.Logger
	cron     *cron.Cron
	schedule string
	account  Account
	timeout  time.Duration
	entryID  cron.EntryID
}

// NewService builds the sweep service. Start must be called to begin
// scheduling.
func NewService(warmer Warmer, upstream Authenticator, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cronEngine := o.Cron
	if cronEngine == nil {
		cronEngine = cron.New(cron.WithLocation(o.Location))
	}

	return &Service{
		warmer:   warmer,
		upstream: upstream,
		logger:   o.Logger,
		cron:     cronEngine,
		schedule: o.Schedule,
		account:  o.Account,
		timeout:  o.Timeout,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Service) Start() error {
	if s.account.Username == "" {
		return fmt.Errorf("scheduler: service account username is required")
	}
	id, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.RunSweep(ctx); err != nil {
			s.logger.Printf("scheduler: sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: register sweep: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.logger.Printf("scheduler: sweep registered with schedule %q", s.schedule)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Service) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunSweep performs one warm-cache pass: authenticate as the service
// account, then recompute both cached lists. Also used by the one-shot
// CLI command.
func (s *Service) RunSweep(ctx context.Context) error {
	metrics := globalSweepMetrics()
	settle := metrics.recordRun()

	token, err := s.upstream.Login(ctx, s.account.Username, s.account.Password)
	if err != nil {
		settle(false)
		return fmt.Errorf("login as %s: %w", s.account.Username, err)
	}

	sess := reconcile.Session{UserLogin: s.account.Username, Token: token}
	state, err := s.warmer.Refresh(ctx, sess)
	if err != nil {
		settle(false)
		return fmt.Errorf("refresh for %s: %w", s.account.Username, err)
	}

	settle(true)
	metrics.recordListSizes(len(state.DueForUpdate), len(state.Unassigned))
	s.logger.Printf("scheduler: sweep warmed cache for %s (%d due, %d unassigned)",
		s.account.Username, len(state.DueForUpdate), len(state.Unassigned))
	return nil
}
