package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/jobsel"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/infrastructure/api/middleware"
	"github.com/helixml/jobsel/infrastructure/api/v1/dto"
)

// QueuesRouter handles queue endpoints.
type QueuesRouter struct {
	client *jobsel.Client
	logger *slog.Logger
}

// NewQueuesRouter creates a new QueuesRouter.
func NewQueuesRouter(client *jobsel.Client) *QueuesRouter {
	return &QueuesRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for queue endpoints.
func (r *QueuesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Post("/", r.Create)

	return router
}

// List handles GET /api/v1/queues.
func (r *QueuesRouter) List(w http.ResponseWriter, _ *http.Request) {
	queues := r.client.Table().Queues().All()
	data := make([]dto.QueueData, 0, len(queues))
	for _, q := range queues {
		data = append(data, queueData(q))
	}
	middleware.WriteJSON(w, http.StatusOK, dto.QueueListResponse{Data: data})
}

// Create handles POST /api/v1/queues. Posting an existing queue changes
// its type and keeps its jobs.
func (r *QueuesRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body dto.QueueRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if body.Data.ID == "" {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "queue id is required", nil), r.logger)
		return
	}
	qtype, err := queue.ParseType(body.Data.Attributes.Type)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, err.Error(), err), r.logger)
		return
	}

	q := queue.New(body.Data.ID, qtype)
	if err := r.client.AddQueue(req.Context(), q); err != nil {
		middleware.WriteError(w, req, mapClientError(err), r.logger)
		return
	}

	stored, err := r.client.Table().Queues().Find(q.Name())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]dto.QueueData{"data": queueData(stored)})
}

func queueData(q *queue.Queue) dto.QueueData {
	return dto.QueueData{
		Type: dto.TypeQueue,
		ID:   q.Name(),
		Attributes: dto.QueueAttributes{
			Type:     q.Type().String(),
			JobCount: q.JobCount(),
		},
	}
}
