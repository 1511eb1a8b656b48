// Package v1 implements the v1 HTTP API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/jobsel"
	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/infrastructure/api/jsonapi"
	"github.com/helixml/jobsel/infrastructure/api/middleware"
	"github.com/helixml/jobsel/infrastructure/api/v1/dto"
	"github.com/helixml/jobsel/infrastructure/fixture"
)

// JobsRouter handles job selection and submission endpoints.
type JobsRouter struct {
	client *jobsel.Client
	logger *slog.Logger
}

// NewJobsRouter creates a new JobsRouter.
func NewJobsRouter(client *jobsel.Client) *JobsRouter {
	return &JobsRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for job endpoints. The select routes
// expect the Requester middleware upstream.
func (r *JobsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/select", r.Select)
	router.Post("/select/status", r.SelectStatus)
	router.Put("/{id}", r.Submit)
	router.Delete("/{id}", r.Remove)

	return router
}

// Select handles POST /api/v1/jobs/select.
func (r *JobsRouter) Select(w http.ResponseWriter, req *http.Request) {
	result, ok := r.run(w, req, service.KindSelectJobs)
	if !ok {
		return
	}
	writeResources(w, jsonapi.JobResources(result.JobIDs()), result.Count())
}

// SelectStatus handles POST /api/v1/jobs/select/status.
func (r *JobsRouter) SelectStatus(w http.ResponseWriter, req *http.Request) {
	result, ok := r.run(w, req, service.KindSelectStatus)
	if !ok {
		return
	}
	writeResources(w, jsonapi.StatusResources(result.Statuses()), result.Count())
}

func (r *JobsRouter) run(w http.ResponseWriter, req *http.Request, kind service.Kind) (service.Result, bool) {
	ctx := req.Context()

	requester, ok := middleware.RequesterFrom(ctx)
	if !ok {
		middleware.WriteError(w, req, middleware.NewAuthenticationError("no requester"), r.logger)
		return service.Result{}, false
	}

	var body dto.SelectRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return service.Result{}, false
	}

	result, err := r.client.Select(ctx, service.Query{
		Kind:       kind,
		Criteria:   body.Data.Attributes.Criteria,
		Requester:  requester,
		Extensions: body.Data.Attributes.Extensions,
		Attributes: body.Data.Attributes.Attributes,
	})
	if err != nil {
		middleware.WriteError(w, req, mapClientError(err), r.logger)
		return service.Result{}, false
	}
	return result, true
}

// Submit handles PUT /api/v1/jobs/{id}. An existing job is replaced.
func (r *JobsRouter) Submit(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id := chi.URLParam(req, "id")

	var body dto.JobRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if body.Data.ID != "" && body.Data.ID != id {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest,
			fmt.Sprintf("body id %q does not match path id %q", body.Data.ID, id), nil), r.logger)
		return
	}

	attrs := body.Data.Attributes
	jobs, err := fixture.Fixture{Jobs: []fixture.Job{{
		ID:         id,
		Queue:      attrs.Queue,
		Array:      attrs.Array,
		Summary:    attrs.Summary,
		Attributes: attrs.Attributes,
		Resources:  attrs.Resources,
	}}}.BuildJobs(r.client.Catalog())
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, err.Error(), err), r.logger)
		return
	}

	if err := r.client.SubmitJob(ctx, jobs[0]); err != nil {
		middleware.WriteError(w, req, mapClientError(err), r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /api/v1/jobs/{id}.
func (r *JobsRouter) Remove(w http.ResponseWriter, req *http.Request) {
	if err := r.client.RemoveJob(req.Context(), chi.URLParam(req, "id")); err != nil {
		middleware.WriteError(w, req, mapClientError(err), r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeResources(w http.ResponseWriter, resources []*jsonapi.Resource, count int) {
	doc := jsonapi.NewListResponse(resources)
	doc.Meta = &jsonapi.Meta{"count": count}
	middleware.WriteJSON(w, http.StatusOK, doc)
}

func mapClientError(err error) error {
	if errors.Is(err, jobsel.ErrClientClosed) {
		return middleware.NewServerError(http.StatusServiceUnavailable, "server is shutting down")
	}
	return err
}
