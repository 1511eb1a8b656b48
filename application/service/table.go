package service

import (
	"fmt"

	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
)

// Scope picks one of the four job collections a walk can run over.
type Scope struct {
	// Queue limits the walk to one queue. Nil means the whole server.
	Queue *queue.Queue
	// Summarized folds job arrays into their summary records.
	Summarized bool
}

// Table is the server's job table: every job, the array-summary view of the
// server and the queue registry with its per-queue collections.
type Table struct {
	jobs    *job.Collection
	summary *job.Collection
	queues  *queue.Registry
}

// NewTable creates an empty table over the given registry.
func NewTable(queues *queue.Registry) *Table {
	return &Table{
		jobs:    job.NewCollection(),
		summary: job.NewCollection(),
		queues:  queues,
	}
}

// Queues returns the queue registry.
func (t *Table) Queues() *queue.Registry { return t.queues }

// Jobs returns the collection of every job on the server.
func (t *Table) Jobs() *job.Collection { return t.jobs }

// Collection returns the collection a walk over scope visits.
func (t *Table) Collection(scope Scope) *job.Collection {
	switch {
	case scope.Queue != nil && scope.Summarized:
		return scope.Queue.ArraySummary()
	case scope.Queue != nil:
		return scope.Queue.Jobs()
	case scope.Summarized:
		return t.summary
	default:
		return t.jobs
	}
}

// Insert adds j to the server and to its queue. Array members appear only
// in the full collections, array summary records only in the summarized
// ones, and ordinary jobs in both.
func (t *Table) Insert(j *job.Job) error {
	var queueName string
	j.View(func(j *job.Job) { queueName = j.QueueName() })

	q, err := t.queues.Find(queueName)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", j.ID(), err)
	}

	full := !j.IsArraySummary()
	summarized := !j.IsArrayMember()

	if full {
		if err := t.jobs.Add(j); err != nil {
			return err
		}
		if err := q.Jobs().Add(j); err != nil {
			t.jobs.Remove(j.ID())
			return err
		}
	}
	if summarized {
		if err := t.summary.Add(j); err != nil {
			t.rollback(q, j, full)
			return err
		}
		if err := q.ArraySummary().Add(j); err != nil {
			t.summary.Remove(j.ID())
			t.rollback(q, j, full)
			return err
		}
	}
	return nil
}

func (t *Table) rollback(q *queue.Queue, j *job.Job, full bool) {
	if full {
		t.jobs.Remove(j.ID())
		q.Jobs().Remove(j.ID())
	}
}

// Remove takes the job out of every collection and marks it removed so
// walkers holding an older cursor skip it.
func (t *Table) Remove(id string) error {
	j, err := t.lookup(id)
	if err != nil {
		return err
	}

	t.jobs.Remove(id)
	t.summary.Remove(id)
	for _, q := range t.queues.All() {
		q.Jobs().Remove(id)
		q.ArraySummary().Remove(id)
	}
	j.MarkRemoved()
	return nil
}

func (t *Table) lookup(id string) (*job.Job, error) {
	if j, err := t.jobs.Get(id); err == nil {
		return j, nil
	}
	return t.summary.Get(id)
}
