package persistence

import (
	"context"
	"fmt"

	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/internal/database"
)

// QueueStore persists queue definitions.
type QueueStore struct {
	database.Repository[*queue.Queue, QueueModel]
}

// NewQueueStore creates a new QueueStore.
func NewQueueStore(db database.Database) QueueStore {
	return QueueStore{
		Repository: database.NewRepository[*queue.Queue, QueueModel](db, QueueMapper{}, "queue"),
	}
}

// All returns every queue ordered by name.
func (s QueueStore) All(ctx context.Context) ([]*queue.Queue, error) {
	return s.Find(ctx, database.WithOrderAsc("name"))
}

// Delete removes the named queue.
func (s QueueStore) Delete(ctx context.Context, name string) error {
	if err := s.DeleteBy(ctx, database.WithCondition("name", name)); err != nil {
		return fmt.Errorf("delete queue %s: %w", name, err)
	}
	return nil
}
