package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/helixml/jobsel"
	"github.com/helixml/jobsel/domain/attribute"
	apimiddleware "github.com/helixml/jobsel/infrastructure/api/middleware"
	v1 "github.com/helixml/jobsel/infrastructure/api/v1"
	"github.com/helixml/jobsel/infrastructure/metrics"
)

// APIServer provides an HTTP API backed by a jobsel Client.
type APIServer struct {
	client        *jobsel.Client
	auth          apimiddleware.AuthConfig
	requesterPerm attribute.Perm
	recorder      *metrics.Recorder
	server        *Server
	router        chi.Router
	routerCalled  bool
	logger        *slog.Logger
}

// APIServerOption configures an APIServer.
type APIServerOption func(*APIServer)

// WithMetrics exposes r on /metrics and records request metrics on it.
func WithMetrics(r *metrics.Recorder) APIServerOption {
	return func(a *APIServer) { a.recorder = r }
}

// WithRequesterPerm sets the permission given to requesters that do not
// present a trusted X-Requester-Perm header.
func WithRequesterPerm(p attribute.Perm) APIServerOption {
	return func(a *APIServer) { a.requesterPerm = p }
}

// NewAPIServer creates a new APIServer wired to the given jobsel Client.
// apiKeys configures write-protection: mutating endpoints, and the select
// endpoints which are POSTs, require a valid key. Health, queue listing and
// metrics remain open.
func NewAPIServer(client *jobsel.Client, apiKeys []string, opts ...APIServerOption) *APIServer {
	a := &APIServer{
		client:        client,
		auth:          apimiddleware.NewAuthConfigWithKeys(apiKeys),
		requesterPerm: attribute.PermUser,
		logger:        client.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	jobsRouter := v1.NewJobsRouter(c)
	queuesRouter := v1.NewQueuesRouter(c)

	router.Use(apimiddleware.Correlation)
	router.Use(apimiddleware.Logging(a.logger))
	if a.recorder != nil {
		router.Use(a.recorder.Middleware)
		router.Method(http.MethodGet, "/metrics", a.recorder.Handler())
	}

	router.Get("/health", a.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Use(apimiddleware.WriteProtect(a.auth))

		r.Mount("/queues", queuesRouter.Routes())
		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.Requester(a.auth, a.requesterPerm))
			r.Mount("/jobs", jobsRouter.Routes())
		})
	})
}

func (a *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"jobs":   a.client.Table().Jobs().Len(),
	})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}
