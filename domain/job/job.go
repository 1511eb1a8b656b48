// Package job provides the in-memory job record and the keyed collections
// the server keeps jobs in.
package job

import (
	"errors"
	"sync"

	"github.com/helixml/jobsel/domain/attribute"
)

// ErrNotFound is returned when a job is not in a collection.
var ErrNotFound = errors.New("job not found")

// State is the single-character job state.
type State byte

// State values.
const (
	StateTransit  State = 'T'
	StateQueued   State = 'Q'
	StateHeld     State = 'H'
	StateWaiting  State = 'W'
	StateRunning  State = 'R'
	StateExiting  State = 'E'
	StateComplete State = 'C'
	StateSuspend  State = 'S'
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateTransit, StateQueued, StateHeld, StateWaiting,
		StateRunning, StateExiting, StateComplete, StateSuspend:
		return true
	}
	return false
}

// String returns the state character.
func (s State) String() string { return string([]byte{byte(s)}) }

// Job is one job record. Its attributes are read and written under the
// job's own lock; callers reach them through View, Update or a collection
// Visit.
type Job struct {
	mu      sync.Mutex
	id      string
	arrayID string
	summary bool
	removed bool
	attrs   attribute.Set
}

// Option configures a Job.
type Option func(*Job)

// WithArray marks the job as a member of the named job array.
func WithArray(arrayID string) Option {
	return func(j *Job) { j.arrayID = arrayID }
}

// AsArraySummary marks the job as the summary record of its array.
func AsArraySummary() Option {
	return func(j *Job) { j.summary = true }
}

// New creates a job with the given attribute set. The set is copied.
func New(id string, attrs attribute.Set, opts ...Option) *Job {
	j := &Job{id: id, attrs: attrs.Clone()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// ArrayID returns the identifier of the array the job belongs to.
func (j *Job) ArrayID() string { return j.arrayID }

// IsArrayMember reports whether the job is an element of a job array.
func (j *Job) IsArrayMember() bool { return j.arrayID != "" && !j.summary }

// IsArraySummary reports whether the job stands for a whole array.
func (j *Job) IsArraySummary() bool { return j.summary }

// Attributes returns the attribute set. Callers must hold the job lock.
func (j *Job) Attributes() attribute.Set { return j.attrs }

// Owner returns the Job_Owner value. Callers must hold the job lock.
func (j *Job) Owner() string { return j.attrs.Get(attribute.JobOwner).String() }

// QueueName returns the queue attribute. Callers must hold the job lock.
func (j *Job) QueueName() string { return j.attrs.Get(attribute.Queue).String() }

// State returns the job state. Callers must hold the job lock.
func (j *Job) State() State { return State(j.attrs.Get(attribute.State).Char()) }

// Removed reports whether the job has left the table. Callers must hold
// the job lock.
func (j *Job) Removed() bool { return j.removed }

// View runs fn with the job locked.
func (j *Job) View(fn func(*Job)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(j)
}

// Update runs fn with the job locked and a mutable attribute set.
func (j *Job) Update(fn func(set *attribute.Set)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.attrs)
}

// MarkRemoved flags the job as gone so that visitors holding an old cursor
// skip it.
func (j *Job) MarkRemoved() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.removed = true
}
