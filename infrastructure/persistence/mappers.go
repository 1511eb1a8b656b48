package persistence

import (
	"fmt"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
)

// QueueMapper maps between domain Queue and persistence QueueModel.
type QueueMapper struct{}

// ToDomain converts a QueueModel to an empty domain Queue.
func (QueueMapper) ToDomain(e QueueModel) (*queue.Queue, error) {
	t, err := queue.ParseType(e.Type)
	if err != nil {
		return nil, fmt.Errorf("queue %s: %w", e.Name, err)
	}
	return queue.New(e.Name, t), nil
}

// ToModel converts a domain Queue to a QueueModel.
func (QueueMapper) ToModel(q *queue.Queue) QueueModel {
	return QueueModel{Name: q.Name(), Type: q.Type().String()}
}

// JobMapper maps between domain Job and persistence JobModel. Attributes
// are decoded through the catalog.
type JobMapper struct {
	catalog attribute.Catalog
}

// NewJobMapper creates a JobMapper for the given catalog.
func NewJobMapper(catalog attribute.Catalog) JobMapper {
	return JobMapper{catalog: catalog}
}

// ToDomain converts a JobModel, with its attributes loaded, to a domain Job.
func (m JobMapper) ToDomain(e JobModel) (*job.Job, error) {
	set := m.catalog.NewSet()
	for _, a := range e.Attributes {
		if err := m.catalog.DecodeInto(&set, a.Name, a.Resource, a.Value); err != nil {
			return nil, fmt.Errorf("job %s attribute %s: %w", e.ID, a.Name, err)
		}
	}

	var opts []job.Option
	if e.ArrayID != "" {
		opts = append(opts, job.WithArray(e.ArrayID))
	}
	if e.Summary {
		opts = append(opts, job.AsArraySummary())
	}
	return job.New(e.ID, set, opts...), nil
}

// ToModel converts a domain Job to a JobModel. The job is locked while its
// attributes are encoded.
func (m JobMapper) ToModel(j *job.Job) JobModel {
	model := JobModel{
		ID:      j.ID(),
		ArrayID: j.ArrayID(),
		Summary: j.IsArraySummary(),
	}
	j.View(func(j *job.Job) {
		for i, enc := range m.catalog.EncodeSet(j.Attributes(), nil) {
			model.Attributes = append(model.Attributes, JobAttributeModel{
				JobID:    j.ID(),
				Position: i,
				Name:     enc.Name,
				Resource: enc.Resource,
				Value:    enc.Value,
			})
		}
	})
	return model
}
