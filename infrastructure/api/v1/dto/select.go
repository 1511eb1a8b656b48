// Package dto holds the JSON:API request and response schemas of the v1 API.
package dto

import (
	"github.com/helixml/jobsel/domain/selection"
	"github.com/helixml/jobsel/infrastructure/api/jsonapi"
)

// Request resource types.
const (
	TypeSelect       = "select"
	TypeSelectStatus = "select_status"
	TypeJob          = "job"
	TypeQueue        = "queue"
)

// SelectAttributes are the attributes of a select request.
type SelectAttributes struct {
	Criteria   []selection.Criterion `json:"criteria"`
	Extensions []string              `json:"extensions,omitempty"`
	// Attributes limits status blocks to the named attributes.
	Attributes []string `json:"attributes,omitempty"`
}

// SelectData represents select request data in JSON:API format.
type SelectData struct {
	Type       string           `json:"type"`
	Attributes SelectAttributes `json:"attributes"`
}

// SelectRequest represents a JSON:API select request.
type SelectRequest struct {
	Data SelectData `json:"data"`
}

// SelectResponse lists the selected resources.
type SelectResponse struct {
	Data []*jsonapi.Resource `json:"data"`
	Meta *jsonapi.Meta       `json:"meta,omitempty"`
}

// JobAttributes describe a submitted job. Attribute and resource values use
// their external form.
type JobAttributes struct {
	Queue      string            `json:"queue"`
	Array      string            `json:"array,omitempty"`
	Summary    bool              `json:"summary,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Resources  map[string]string `json:"resources,omitempty"`
}

// JobData represents job request data in JSON:API format.
type JobData struct {
	Type       string        `json:"type"`
	ID         string        `json:"id"`
	Attributes JobAttributes `json:"attributes"`
}

// JobRequest represents a JSON:API job submission.
type JobRequest struct {
	Data JobData `json:"data"`
}

// QueueAttributes describe a queue.
type QueueAttributes struct {
	Type     string `json:"type"`
	JobCount int    `json:"job_count"`
}

// QueueData represents queue data in JSON:API format.
type QueueData struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes QueueAttributes `json:"attributes"`
}

// QueueRequest represents a JSON:API queue creation.
type QueueRequest struct {
	Data QueueData `json:"data"`
}

// QueueListResponse lists the registered queues.
type QueueListResponse struct {
	Data []QueueData `json:"data"`
}
