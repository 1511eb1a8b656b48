// Package persistence provides database storage for queues and jobs.
package persistence

import (
	"context"

	"github.com/helixml/jobsel/internal/database"
)

// AutoMigrate runs GORM auto migration for all models.
func AutoMigrate(db database.Database) error {
	return db.Session(context.Background()).AutoMigrate(
		&QueueModel{},
		&JobModel{},
		&JobAttributeModel{},
	)
}
