package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound indicates the requested entity was not found.
var ErrNotFound = errors.New("entity not found")

// EntityMapper maps between domain values and database models.
type EntityMapper[D any, E any] interface {
	ToDomain(entity E) (D, error)
	ToModel(domain D) E
}

// Repository provides generic persistence operations for one model type.
type Repository[D any, E any] struct {
	db     Database
	mapper EntityMapper[D, E]
	label  string
}

// NewRepository creates a new Repository.
func NewRepository[D any, E any](db Database, mapper EntityMapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{db: db, mapper: mapper, label: label}
}

// DB returns a GORM session for the repository's database.
func (r Repository[D, E]) DB(ctx context.Context) *gorm.DB {
	return r.db.Session(ctx)
}

// Database returns the underlying database.
func (r Repository[D, E]) Database() Database { return r.db }

// Find retrieves entities matching the given options.
func (r Repository[D, E]) Find(ctx context.Context, options ...Option) ([]D, error) {
	var entities []E
	if err := ApplyOptions(r.db.Session(ctx).Model(new(E)), options...).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, err)
	}

	domains := make([]D, 0, len(entities))
	for _, entity := range entities {
		d, err := r.mapper.ToDomain(entity)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", r.label, err)
		}
		domains = append(domains, d)
	}
	return domains, nil
}

// FindOne retrieves a single entity matching the given options.
func (r Repository[D, E]) FindOne(ctx context.Context, options ...Option) (D, error) {
	var zero D
	var entity E
	result := ApplyOptions(r.db.Session(ctx), options...).First(&entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		return zero, fmt.Errorf("find one %s: %w", r.label, result.Error)
	}
	d, err := r.mapper.ToDomain(entity)
	if err != nil {
		return zero, fmt.Errorf("map %s: %w", r.label, err)
	}
	return d, nil
}

// Save inserts or updates the entity for d.
func (r Repository[D, E]) Save(ctx context.Context, d D) error {
	entity := r.mapper.ToModel(d)
	if err := r.db.Session(ctx).Save(&entity).Error; err != nil {
		return fmt.Errorf("save %s: %w", r.label, err)
	}
	return nil
}

// DeleteBy removes entities matching the given options.
func (r Repository[D, E]) DeleteBy(ctx context.Context, options ...Option) error {
	if err := applyConditions(r.db.Session(ctx), Build(options...)).Delete(new(E)).Error; err != nil {
		return fmt.Errorf("delete %s: %w", r.label, err)
	}
	return nil
}

// Count returns the number of entities matching the given options.
func (r Repository[D, E]) Count(ctx context.Context, options ...Option) (int64, error) {
	var count int64
	if err := applyConditions(r.db.Session(ctx).Model(new(E)), Build(options...)).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", r.label, err)
	}
	return count, nil
}
