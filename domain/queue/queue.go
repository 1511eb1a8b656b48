// Package queue provides batch queues and the registry that resolves queue
// names.
package queue

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/helixml/jobsel/domain/job"
)

// ErrNotFound is returned when a queue name does not resolve.
var ErrNotFound = errors.New("queue not found")

// Type is the queue type.
type Type int

// Type values.
const (
	TypeExecution Type = iota
	TypeRoute
)

// String returns the type name.
func (t Type) String() string {
	if t == TypeRoute {
		return "route"
	}
	return "execution"
}

// ParseType parses a queue type name. The empty string means execution.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "execution", "e", "exec":
		return TypeExecution, nil
	case "route", "r", "routing":
		return TypeRoute, nil
	default:
		return 0, fmt.Errorf("unknown queue type %q", s)
	}
}

// Queue is a named queue holding its jobs and array summaries. The queue
// lock guards the type only; the collections carry their own locks.
type Queue struct {
	mu           sync.Mutex
	name         string
	qtype        Type
	jobs         *job.Collection
	arraySummary *job.Collection
}

// New creates an empty queue.
func New(name string, qtype Type) *Queue {
	return &Queue{
		name:         name,
		qtype:        qtype,
		jobs:         job.NewCollection(),
		arraySummary: job.NewCollection(),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Type returns the queue type.
func (q *Queue) Type() Type {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.qtype
}

// SetType changes the queue type.
func (q *Queue) SetType(t Type) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.qtype = t
}

// IsExecution reports whether the queue runs jobs.
func (q *Queue) IsExecution() bool { return q.Type() == TypeExecution }

// Jobs returns every job in the queue, array members included.
func (q *Queue) Jobs() *job.Collection { return q.jobs }

// ArraySummary returns the queue's jobs with arrays folded into their
// summary records.
func (q *Queue) ArraySummary() *job.Collection { return q.arraySummary }

// JobCount returns the number of jobs in the queue.
func (q *Queue) JobCount() int { return q.jobs.Len() }

// Registry resolves queue names.
type Registry struct {
	mu     sync.RWMutex
	queues map[string]*Queue
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{queues: make(map[string]*Queue)}
}

// Add registers q, replacing any queue with the same name.
func (r *Registry) Add(q *Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[q.name] = q
}

// Remove drops the named queue.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queues, name)
}

// Find resolves a destination of the form queue[@server]. The server part
// is ignored.
func (r *Registry) Find(destination string) (*Queue, error) {
	name, _, _ := strings.Cut(destination, "@")
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return q, nil
}

// All returns the registered queues sorted by name.
func (r *Registry) All() []*Queue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Queue, 0, len(r.queues))
	for _, q := range r.queues {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
