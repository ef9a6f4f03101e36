// Package reconcile implements the ticket reconciliation pipeline: it
// classifies every upstream ticket as due for renewal, available for
// assignment, or already tracked, and advances persisted renewal chains when
// a replacement ticket appears in the feed.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/xeonx/timeago"

	"github.com/locatekit/stakeflow/internal/cache"
	"github.com/locatekit/stakeflow/internal/models"
	"github.com/locatekit/stakeflow/internal/repository"
)

// TicketSource is the upstream ticket service surface the engine depends on.
type TicketSource interface {
	ListTickets(ctx context.Context, token string) ([]models.Ticket, error)
	GetTicketDetail(ctx context.Context, ticketNumber, token string) (models.Ticket, error)
}

// Session carries the request-scoped identity the engine operates under:
// the user's login (cache key namespace) and their upstream bearer token.
type Session struct {
	UserLogin string
	Token     string
}

// TicketState is the computed output of one reconciliation run.
type TicketState struct {
	DueForUpdate []models.Ticket `json:"due_for_update"`
	Unassigned   []models.Ticket `json:"unassigned"`
}

// Service runs the reconciliation pipeline.
type Service struct {
	source TicketSource
	repo   repository.AssignmentRepository
	cache  cache.Cache
	logger *log.Logger
	clock  func() time.Time
	ttl    time.Duration

	// detailConcurrency bounds the renewal-detection fetch pool.
	detailConcurrency int

	metrics  *reconcileMetrics
	workdays *cal.BusinessCalendar
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCache injects the session cache. Without one, every call recomputes.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithCacheTTL overrides the default 5-minute result TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithDetailConcurrency bounds the parallel detail fetches during renewal
// detection.
func WithDetailConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.detailConcurrency = n
		}
	}
}

// NewService creates a reconciliation service over the given upstream source
// and assignment repository.
func NewService(source TicketSource, repo repository.AssignmentRepository, opts ...Option) *Service {
	s := &Service{
		source:            source,
		repo:              repo,
		logger:            log.Default(),
		clock:             time.Now,
		ttl:               cache.DefaultTTL,
		detailConcurrency: 8,
		metrics:           globalMetrics(),
		workdays:          cal.NewBusinessCalendar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dueCacheKey(login string) string        { return "due:" + login }
func unassignedCacheKey(login string) string { return "unassigned:" + login }

// ComputeTicketState returns the due-for-update and unassigned ticket lists
// for the session's account, advancing renewal chains as a side effect.
// Results are cached per user; a cached pair short-circuits the whole
// pipeline until it expires or a mutation invalidates it.
func (s *Service) ComputeTicketState(ctx context.Context, sess Session) (*TicketState, error) {
	if state, ok := s.cachedState(ctx, sess); ok {
		s.metrics.recordCacheLookup(true)
		return state, nil
	}
	s.metrics.recordCacheLookup(false)

	finish := s.metrics.recordRun()
	state, err := s.compute(ctx, sess)
	finish(err == nil)
	if err != nil {
		// Previously cached results stay in place on failure.
		return nil, err
	}

	s.storeState(ctx, sess, state)
	return state, nil
}

// Refresh drops the session's cached lists and recomputes.
func (s *Service) Refresh(ctx context.Context, sess Session) (*TicketState, error) {
	s.invalidate(ctx, sess.UserLogin)
	return s.ComputeTicketState(ctx, sess)
}

func (s *Service) compute(ctx context.Context, sess Session) (*TicketState, error) {
	now := s.clock()

	rows, err := s.repo.List(ctx)
	if err != nil {
		// Cannot classify anything without the assignment table.
		return nil, &StoreError{Op: "list assignments", Err: err}
	}

	tracked := make(map[string]bool, len(rows))
	superseded := make(map[string]bool)
	activeByNumber := make(map[string]models.AssignmentRow)
	for _, row := range rows {
		tracked[row.TicketNumber] = true
		if row.OldTicket != "" {
			superseded[row.OldTicket] = true
		}
		if row.IsContinueUpdate {
			if _, dup := activeByNumber[row.TicketNumber]; dup {
				// Data anomaly: two active rows for one chain. Keep the
				// ticket excluded from unassigned and surface it in the log.
				s.logger.Printf("anomaly: duplicate active assignment rows for ticket %s", row.TicketNumber)
				continue
			}
			activeByNumber[row.TicketNumber] = row
		}
	}

	due := s.buildDueList(ctx, sess, rows, now)

	listing, err := s.source.ListTickets(ctx, sess.Token)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	var candidates []models.Ticket
	for _, t := range listing {
		if tracked[t.TicketNumber] || superseded[t.TicketNumber] {
			continue
		}
		// No expiry date at all leaves the ticket eligible.
		if t.Expires != nil && !models.AfterDay(*t.Expires, now) {
			continue
		}
		candidates = append(candidates, t)
	}

	renewed := s.detectRenewals(ctx, sess, candidates, activeByNumber)

	unassigned := make([]models.Ticket, 0, len(candidates))
	for _, t := range candidates {
		if renewed[t.TicketNumber] {
			continue
		}
		unassigned = append(unassigned, t)
	}

	return &TicketState{
		DueForUpdate: dedupeTickets(due),
		Unassigned:   dedupeTickets(unassigned),
	}, nil
}

// buildDueList fetches the detail record for every active row whose deadline
// has arrived. A failed fetch degrades to a placeholder row so the batch
// never aborts on a single upstream error.
func (s *Service) buildDueList(ctx context.Context, sess Session, rows []models.AssignmentRow, now time.Time) []models.Ticket {
	var due []models.Ticket
	for _, row := range rows {
		if !row.DueOn(now) {
			continue
		}
		ticket, err := s.source.GetTicketDetail(ctx, row.TicketNumber, sess.Token)
		if err != nil {
			s.metrics.recordFetchFailure()
			s.logger.Printf("detail fetch failed for due ticket %s: %v", row.TicketNumber, err)
			ticket = models.NewPlaceholderTicket(row.TicketNumber, row.ReplaceByDate)
		} else if ticket.ReplaceByDate == nil {
			ticket.ReplaceByDate = row.ReplaceByDate
		}
		s.annotateDue(&ticket, now)
		due = append(due, ticket)
	}

	// Ascending by deadline; rows with no date sort last.
	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i].ReplaceByDate, due[j].ReplaceByDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return due
}

// detectRenewals fetches every candidate's detail concurrently and advances
// the chain for any candidate that supersedes an actively tracked ticket.
// Returns the set of candidate numbers consumed by a chain advance. Failures
// are per candidate: one bad fetch or write never blocks the others, and
// completed advances are not rolled back.
func (s *Service) detectRenewals(ctx context.Context, sess Session, candidates []models.Ticket, activeByNumber map[string]models.AssignmentRow) map[string]bool {
	renewed := make(map[string]bool)
	if len(candidates) == 0 {
		return renewed
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.detailConcurrency)
	)

	for _, candidate := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(candidate models.Ticket) {
			defer wg.Done()
			defer func() { <-sem }()

			detail, err := s.source.GetTicketDetail(ctx, candidate.TicketNumber, sess.Token)
			if err != nil {
				s.metrics.recordFetchFailure()
				s.logger.Printf("detail fetch failed for candidate %s: %v", candidate.TicketNumber, err)
				return
			}
			if detail.OriginalTicket == "" {
				return
			}

			mu.Lock()
			prior, tracked := activeByNumber[detail.OriginalTicket]
			mu.Unlock()
			if !tracked {
				return
			}

			if err := s.advanceChain(ctx, prior, detail); err != nil {
				s.logger.Printf("chain advance failed for %s -> %s: %v", prior.TicketNumber, detail.TicketNumber, err)
				return
			}

			mu.Lock()
			renewed[candidate.TicketNumber] = true
			delete(activeByNumber, detail.OriginalTicket)
			mu.Unlock()
			s.metrics.recordChainAdvance()
		}(candidate)
	}

	wg.Wait()
	return renewed
}

// advanceChain deactivates the superseded row and inserts the replacement
// link. The two writes are intentionally not transactional; the underlying
// store offers no such guarantee and a concurrent refresh can race here.
func (s *Service) advanceChain(ctx context.Context, prior models.AssignmentRow, detail models.Ticket) error {
	if err := s.repo.Deactivate(ctx, prior.TicketNumber); err != nil {
		return &StoreError{Op: "deactivate " + prior.TicketNumber, Err: err}
	}

	deadline := detail.ReplaceByDate
	if deadline == nil {
		deadline = detail.Expires
	}
	newRow := models.AssignmentRow{
		TicketNumber:     detail.TicketNumber,
		OldTicket:        prior.TicketNumber,
		IsContinueUpdate: true,
		ProjectID:        prior.ProjectID,
		ReplaceByDate:    deadline,
	}
	if err := s.repo.Insert(ctx, newRow); err != nil {
		return &StoreError{Op: "insert " + detail.TicketNumber, Err: err}
	}
	return nil
}

// AssignTicketToProject links a ticket to a project, fetching the ticket's
// current deadline from upstream to seed the renewal tracking.
func (s *Service) AssignTicketToProject(ctx context.Context, sess Session, ticketNumber string, projectID int64) error {
	if ticketNumber == "" {
		return &ValidationError{Field: "ticket_number", Reason: "must not be empty"}
	}
	if projectID <= 0 {
		return &ValidationError{Field: "project_id", Reason: "must reference a project"}
	}

	detail, err := s.source.GetTicketDetail(ctx, ticketNumber, sess.Token)
	if err != nil {
		return fmt.Errorf("fetch ticket %s: %w", ticketNumber, err)
	}

	deadline := detail.ReplaceByDate
	if deadline == nil {
		deadline = detail.Expires
	}
	row := models.AssignmentRow{
		TicketNumber:     ticketNumber,
		IsContinueUpdate: true,
		ProjectID:        &projectID,
		ReplaceByDate:    deadline,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return &StoreError{Op: "assign " + ticketNumber, Err: err}
	}

	s.invalidate(ctx, sess.UserLogin)
	return nil
}

// MarkChainInactive stops tracking a chain for renewal. Idempotent.
func (s *Service) MarkChainInactive(ctx context.Context, sess Session, ticketNumber string) error {
	if ticketNumber == "" {
		return &ValidationError{Field: "ticket_number", Reason: "must not be empty"}
	}
	if err := s.repo.Deactivate(ctx, ticketNumber); err != nil {
		return &StoreError{Op: "deactivate " + ticketNumber, Err: err}
	}
	s.invalidate(ctx, sess.UserLogin)
	return nil
}

// annotateDue fills the presentation annotations for a due-list row.
func (s *Service) annotateDue(t *models.Ticket, now time.Time) {
	if t.ReplaceByDate == nil {
		return
	}
	t.DueInWords = timeago.English.FormatReference(*t.ReplaceByDate, now)
	days := s.businessDaysBetween(now, *t.ReplaceByDate)
	t.BusinessDaysUntilDue = &days
}

// businessDaysBetween counts workdays from now until the deadline, negative
// when the deadline has passed.
func (s *Service) businessDaysBetween(now, deadline time.Time) int {
	if deadline.Before(now) {
		return -s.workdays.WorkdaysInRange(deadline, now)
	}
	return s.workdays.WorkdaysInRange(now, deadline)
}

func (s *Service) cachedState(ctx context.Context, sess Session) (*TicketState, bool) {
	if s.cache == nil {
		return nil, false
	}
	dueRaw, ok := s.cache.Get(ctx, dueCacheKey(sess.UserLogin))
	if !ok {
		return nil, false
	}
	unassignedRaw, ok := s.cache.Get(ctx, unassignedCacheKey(sess.UserLogin))
	if !ok {
		return nil, false
	}

	var state TicketState
	if err := json.Unmarshal(dueRaw, &state.DueForUpdate); err != nil {
		// Corrupt entry is a miss, not an error.
		return nil, false
	}
	if err := json.Unmarshal(unassignedRaw, &state.Unassigned); err != nil {
		return nil, false
	}
	return &state, true
}

func (s *Service) storeState(ctx context.Context, sess Session, state *TicketState) {
	if s.cache == nil {
		return
	}
	dueRaw, err := json.Marshal(state.DueForUpdate)
	if err != nil {
		return
	}
	unassignedRaw, err := json.Marshal(state.Unassigned)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dueCacheKey(sess.UserLogin), dueRaw, s.ttl); err != nil {
		s.logger.Printf("cache write failed for %s: %v", sess.UserLogin, err)
	}
	if err := s.cache.Set(ctx, unassignedCacheKey(sess.UserLogin), unassignedRaw, s.ttl); err != nil {
		s.logger.Printf("cache write failed for %s: %v", sess.UserLogin, err)
	}
}

func (s *Service) invalidate(ctx context.Context, login string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dueCacheKey(login)); err != nil {
		s.logger.Printf("cache invalidate failed for %s: %v", login, err)
	}
	if err := s.cache.Invalidate(ctx, unassignedCacheKey(login)); err != nil {
		s.logger.Printf("cache invalidate failed for %s: %v", login, err)
	}
}

// dedupeTickets collapses exact duplicate ticket numbers, first occurrence
// wins.
func dedupeTickets(tickets []models.Ticket) []models.Ticket {
	seen := make(map[string]bool, len(tickets))
	result := tickets[:0]
	for _, t := range tickets {
		if seen[t.TicketNumber] {
			continue
		}
		seen[t.TicketNumber] = true
		result = append(result, t)
	}
	return result
}
