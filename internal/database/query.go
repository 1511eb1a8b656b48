package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Option applies a modification to a Query.
type Option func(Query) Query

// Query holds conditions, ordering and a limit for store lookups.
type Query struct {
	conditions []Condition
	orders     []Order
	limit      int
}

// Build creates a Query from a set of options.
func Build(options ...Option) Query {
	q := Query{}
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns the query conditions.
func (q Query) Conditions() []Condition {
	out := make([]Condition, len(q.conditions))
	copy(out, q.conditions)
	return out
}

// Orders returns the ordering specifications.
func (q Query) Orders() []Order {
	out := make([]Order, len(q.orders))
	copy(out, q.orders)
	return out
}

// Limit returns the limit; 0 means none.
func (q Query) Limit() int { return q.limit }

// Condition is a field = value or field IN values condition.
type Condition struct {
	field string
	value any
	in    bool
}

// Field returns the condition column.
func (c Condition) Field() string { return c.field }

// Value returns the condition value.
func (c Condition) Value() any { return c.value }

// In reports whether this is an IN condition.
func (c Condition) In() bool { return c.in }

// String returns a readable representation.
func (c Condition) String() string {
	if c.in {
		return fmt.Sprintf("%s IN %v", c.field, c.value)
	}
	return fmt.Sprintf("%s = %v", c.field, c.value)
}

// Order is a sort specification.
type Order struct {
	field     string
	ascending bool
}

// Field returns the order column.
func (o Order) Field() string { return o.field }

// Ascending returns true for ASC, false for DESC.
func (o Order) Ascending() bool { return o.ascending }

// WithCondition adds a field = value condition.
func WithCondition(field string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: value})
		return q
	}
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{field: field, value: values, in: true})
		return q
	}
}

// WithOrderAsc adds ascending ordering on a field.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: true})
		return q
	}
}

// WithOrderDesc adds descending ordering on a field.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: false})
		return q
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// ApplyOptions applies the query built from options to a GORM session.
func ApplyOptions(db *gorm.DB, options ...Option) *gorm.DB {
	q := Build(options...)
	db = applyConditions(db, q)
	for _, ord := range q.orders {
		dir := "ASC"
		if !ord.ascending {
			dir = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", ord.field, dir))
	}
	if q.limit > 0 {
		db = db.Limit(q.limit)
	}
	return db
}

func applyConditions(db *gorm.DB, q Query) *gorm.DB {
	for _, cond := range q.conditions {
		if cond.in {
			db = db.Where(fmt.Sprintf("%s IN ?", cond.field), cond.value)
		} else {
			db = db.Where(fmt.Sprintf("%s = ?", cond.field), cond.value)
		}
	}
	return db
}
