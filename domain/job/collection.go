package job

import (
	"fmt"
	"slices"
	"sync"
)

// Collection is an insertion-ordered set of jobs keyed by identifier.
//
// The collection lock guards membership only. Walkers take a Cursor, which
// snapshots the identifiers, and then Visit each job under its own lock,
// so membership can change while a walk is in progress.
type Collection struct {
	mu    sync.Mutex
	order []string
	index map[string]*Job
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]*Job)}
}

// Add appends j. Adding an identifier twice is an error.
func (c *Collection) Add(j *Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[j.id]; ok {
		return fmt.Errorf("add job %s: already present", j.id)
	}
	c.index[j.id] = j
	c.order = append(c.order, j.id)
	return nil
}

// Remove drops the job with the given identifier.
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[id]; !ok {
		return false
	}
	delete(c.index, id)
	if i := slices.Index(c.order, id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return true
}

// Get returns the job with the given identifier.
func (c *Collection) Get(id string) (*Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, nil
}

// Len returns the number of jobs.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// IDs returns the identifiers in insertion order.
func (c *Collection) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Cursor iterates over a snapshot of a collection's identifiers.
type Cursor struct {
	ids []string
	pos int
}

// Cursor returns a cursor positioned before the first job. The collection
// lock is held only while the snapshot is taken.
func (c *Collection) Cursor() *Cursor {
	return &Cursor{ids: c.IDs()}
}

// Next returns the next identifier, or false when the cursor is exhausted.
func (cur *Cursor) Next() (string, bool) {
	if cur.pos >= len(cur.ids) {
		return "", false
	}
	id := cur.ids[cur.pos]
	cur.pos++
	return id, true
}

// Visit runs fn on the job with the given identifier while holding the job
// lock. The lock is released on every return path, including a panic in
// fn. Visit reports false without calling fn when the job has left the
// collection since the cursor was taken.
//
// fn must not call View, Update or MarkRemoved on the job it receives.
func (c *Collection) Visit(id string, fn func(*Job) error) (bool, error) {
	c.mu.Lock()
	j, ok := c.index[id]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.removed {
		return false, nil
	}
	return true, fn(j)
}
