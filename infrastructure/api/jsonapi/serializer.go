package jsonapi

import (
	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/domain/attribute"
)

// Resource types.
const (
	TypeJob       = "job"
	TypeJobStatus = "job_status"
)

// AttributeValue is one encoded job attribute in a status block.
type AttributeValue struct {
	Name     string `json:"name"`
	Resource string `json:"resource,omitempty"`
	Value    string `json:"value"`
}

// JobStatusAttributes holds the attributes of a status resource.
type JobStatusAttributes struct {
	Attributes []AttributeValue `json:"attributes"`
}

// JobResources converts job identifiers to job resources.
func JobResources(ids []string) []*Resource {
	out := make([]*Resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewResource(TypeJob, id, nil))
	}
	return out
}

// StatusResources converts status blocks to status resources.
func StatusResources(blocks []service.StatusBlock) []*Resource {
	out := make([]*Resource, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, NewResource(TypeJobStatus, b.JobID, JobStatusAttributes{
			Attributes: attributeValues(b.Attributes),
		}))
	}
	return out
}

func attributeValues(encoded []attribute.Encoded) []AttributeValue {
	out := make([]AttributeValue, 0, len(encoded))
	for _, e := range encoded {
		out = append(out, AttributeValue{Name: e.Name, Resource: e.Resource, Value: e.Value})
	}
	return out
}
