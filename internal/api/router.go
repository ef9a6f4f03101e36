// Package api exposes the HTTP surface of the ticket tracker: the login
// proxy, the due/unassigned ticket views, and the assignment mutations.
package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/locatekit/stakeflow/internal/auth"
	"github.com/locatekit/stakeflow/internal/middleware"
	"github.com/locatekit/stakeflow/internal/models"
	"github.com/locatekit/stakeflow/internal/repository"
	"github.com/locatekit/stakeflow/internal/services/reconcile"
)

// Reconciler is the engine surface the handlers invoke.
type Reconciler interface {
	ComputeTicketState(ctx context.Context, sess reconcile.Session) (*reconcile.TicketState, error)
	Refresh(ctx context.Context, sess reconcile.Session) (*reconcile.TicketState, error)
	AssignTicketToProject(ctx context.Context, sess reconcile.Session, ticketNumber string, projectID int64) error
	MarkChainInactive(ctx context.Context, sess reconcile.Session, ticketNumber string) error
}

// Upstream is the slice of the upstream client the API needs directly:
// the login exchange and the raw detail proxy.
type Upstream interface {
	Login(ctx context.Context, username, password string) (string, error)
	GetTicketDetail(ctx context.Context, ticketNumber, token string) (models.Ticket, error)
}

// APIRouter wires handlers to their dependencies.
type APIRouter struct {
	upstream    Upstream
	engine      Reconciler
	assignments repository.AssignmentRepository
	sessions    *auth.SessionManager
	logger      *log.Logger
}

// Option configures the router.
type Option func(*APIRouter)

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(r *APIRouter) { r.logger = l }
}

// NewAPIRouter creates the router over the given collaborators.
func NewAPIRouter(upstream Upstream, engine Reconciler, assignments repository.AssignmentRepository, sessions *auth.SessionManager, opts ...Option) *APIRouter {
	router := &APIRouter{
		upstream:    upstream,
		engine:      engine,
		assignments: assignments,
		sessions:    sessions,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// RegisterRoutes mounts all endpoints on the gin engine.
func (router *APIRouter) RegisterRoutes(r *gin.Engine) {
	r.Use(middleware.RequestID())

	r.GET("/healthz", router.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", router.handleLogin)

	authed := v1.Group("")
	authed.Use(middleware.SessionAuth(router.sessions))
	{
		authed.GET("/tickets/due", router.handleDueTickets)
		authed.GET("/tickets/unassigned", router.handleUnassignedTickets)
		authed.POST("/tickets/refresh", router.handleRefresh)
		authed.GET("/tickets/:number", router.handleTicketDetail)

		authed.GET("/assignments/due", router.handleDueAssignments)
		authed.POST("/assignments", router.handleCreateAssignment)
		authed.DELETE("/assignments/:number", router.handleDeleteAssignment)
	}
}

func (router *APIRouter) handleHealth(c *gin.Context) {
	sendSuccess(c, gin.H{
		"status":  "healthy",
		"service": "stakeflow-api",
	})
}

// APIResponse is the standard success envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func sendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// sessionFor converts the decoded request session into the engine's
// request-scoped session value.
func sessionFor(c *gin.Context) (reconcile.Session, bool) {
	sess := middleware.SessionFromContext(c)
	if sess == nil {
		return reconcile.Session{}, false
	}
	return reconcile.Session{UserLogin: sess.UserLogin, Token: sess.UpstreamToken}, true
}
