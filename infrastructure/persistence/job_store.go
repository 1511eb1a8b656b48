package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/internal/database"
)

// JobStore persists job records and their attributes.
type JobStore struct {
	database.Repository[*job.Job, JobModel]
	mapper JobMapper
}

// NewJobStore creates a new JobStore decoding attributes through catalog.
func NewJobStore(db database.Database, catalog attribute.Catalog) JobStore {
	mapper := NewJobMapper(catalog)
	return JobStore{
		Repository: database.NewRepository[*job.Job, JobModel](db, mapper, "job"),
		mapper:     mapper,
	}
}

// FindAll loads every job in the order it was first saved.
func (s JobStore) FindAll(ctx context.Context) ([]*job.Job, error) {
	var models []JobModel
	err := s.DB(ctx).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("sequence ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for _, m := range models {
		j, err := s.mapper.ToDomain(m)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Save writes j and replaces its stored attributes. A job saved for the
// first time goes to the end of the recovery order.
func (s JobStore) Save(ctx context.Context, j *job.Job) error {
	model := s.mapper.ToModel(j)
	attrs := model.Attributes
	model.Attributes = nil

	return database.WithTransaction(ctx, s.Database(), func(tx *gorm.DB) error {
		var existing JobModel
		err := tx.Select("sequence", "created_at").Where("id = ?", model.ID).First(&existing).Error
		switch {
		case err == nil:
			model.Sequence = existing.Sequence
			model.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			var maxSeq sql.NullInt64
			if err := tx.Model(&JobModel{}).Select("MAX(sequence)").Scan(&maxSeq).Error; err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			if maxSeq.Valid {
				model.Sequence = maxSeq.Int64 + 1
			}
		default:
			return fmt.Errorf("find job %s: %w", model.ID, err)
		}

		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("save job %s: %w", model.ID, err)
		}
		if err := tx.Where("job_id = ?", model.ID).Delete(&JobAttributeModel{}).Error; err != nil {
			return fmt.Errorf("clear attributes of job %s: %w", model.ID, err)
		}
		if len(attrs) == 0 {
			return nil
		}
		if err := tx.Create(&attrs).Error; err != nil {
			return fmt.Errorf("save attributes of job %s: %w", model.ID, err)
		}
		return nil
	})
}

// Delete removes a job and its attributes.
func (s JobStore) Delete(ctx context.Context, id string) error {
	return database.WithTransaction(ctx, s.Database(), func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&JobAttributeModel{}).Error; err != nil {
			return fmt.Errorf("delete attributes of job %s: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&JobModel{}).Error; err != nil {
			return fmt.Errorf("delete job %s: %w", id, err)
		}
		return nil
	})
}
