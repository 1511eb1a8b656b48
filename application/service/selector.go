package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/selection"
)

// Query extensions.
const (
	ExtensionSummarizeArrays = "summarize_arrays"
	ExtensionExecutionOnly   = "exec_only"
)

// DefaultMaxResults caps the number of jobs one query may return.
const DefaultMaxResults = 100000

// Kind is the query kind.
type Kind int

// Kind values.
const (
	KindSelectJobs Kind = iota
	KindSelectStatus
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindSelectStatus {
		return "select_status"
	}
	return "select_jobs"
}

// Query is one select or select-status request.
type Query struct {
	Kind       Kind
	Criteria   []selection.Criterion
	Requester  Requester
	Extensions []string
	// Attributes limits status blocks to the named attributes.
	Attributes []string
}

func (q Query) hasExtension(name string) bool {
	for _, ext := range q.Extensions {
		if strings.HasPrefix(ext, name) {
			return true
		}
	}
	return false
}

// SummarizeArrays reports whether job arrays are folded into their summary
// records.
func (q Query) SummarizeArrays() bool { return q.hasExtension(ExtensionSummarizeArrays) }

// ExecutionQueuesOnly reports whether only jobs in execution queues match.
func (q Query) ExecutionQueuesOnly() bool { return q.hasExtension(ExtensionExecutionOnly) }

// Result is the reply to a query.
type Result struct {
	kind     Kind
	ids      []string
	statuses []StatusBlock
}

// Kind returns the query kind that produced the result.
func (r Result) Kind() Kind { return r.kind }

// JobIDs returns the matching job identifiers in collection order.
func (r Result) JobIDs() []string { return r.ids }

// Statuses returns the status blocks in collection order.
func (r Result) Statuses() []StatusBlock { return r.statuses }

// Count returns the number of jobs in the result.
func (r Result) Count() int {
	if r.kind == KindSelectStatus {
		return len(r.statuses)
	}
	return len(r.ids)
}

// Recorder observes completed queries.
type Recorder interface {
	ObserveQuery(kind Kind, matched int, elapsed time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) ObserveQuery(Kind, int, time.Duration, error) {}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithQueryOthers lets every requester see every job.
func WithQueryOthers(enabled bool) SelectorOption {
	return func(s *Selector) { s.queryOthers = enabled }
}

// WithMaxResults caps the result size. Zero or less means no cap.
func WithMaxResults(n int) SelectorOption {
	return func(s *Selector) { s.maxResults = n }
}

// WithAuthorizer replaces the visibility check.
func WithAuthorizer(a Authorizer) SelectorOption {
	return func(s *Selector) { s.authorizer = a }
}

// WithSnapshotter replaces the status snapshotter.
func WithSnapshotter(snap Snapshotter) SelectorOption {
	return func(s *Selector) { s.snapshotter = snap }
}

// WithRecorder sets the query observer.
func WithRecorder(r Recorder) SelectorOption {
	return func(s *Selector) { s.recorder = r }
}

// Selector answers select and select-status queries against a Table.
type Selector struct {
	table       *Table
	catalog     attribute.Catalog
	compiler    *selection.Compiler
	authorizer  Authorizer
	snapshotter Snapshotter
	recorder    Recorder
	queryOthers bool
	maxResults  int
	logger      *slog.Logger
}

// NewSelector creates a selector.
func NewSelector(table *Table, catalog attribute.Catalog, logger *slog.Logger, opts ...SelectorOption) *Selector {
	s := &Selector{
		table:      table,
		catalog:    catalog,
		compiler:   selection.NewCompiler(catalog, table.Queues()),
		authorizer: OwnerAuthorizer{},
		recorder:   noopRecorder{},
		maxResults: DefaultMaxResults,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.snapshotter == nil {
		var auth Authorizer
		if !s.queryOthers {
			auth = s.authorizer
		}
		s.snapshotter = NewAttributeSnapshotter(catalog, auth)
	}
	return s
}

// Table returns the job table the selector reads.
func (s *Selector) Table() *Table { return s.table }

// Catalog returns the attribute catalog.
func (s *Selector) Catalog() attribute.Catalog { return s.catalog }

// Select compiles the query criteria, walks the selected collection and
// assembles the reply. Compile errors are *selection.CriterionError values.
// A walk error discards everything matched so far.
func (s *Selector) Select(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	queryID := uuid.NewString()
	logger := s.logger.With(
		slog.String("query_id", queryID),
		slog.String("kind", q.Kind.String()),
	)

	result, visited, err := s.run(ctx, q, logger)
	elapsed := time.Since(start)
	s.recorder.ObserveQuery(q.Kind, result.Count(), elapsed, err)

	if err != nil {
		logger.Info("query failed",
			slog.String("user", q.Requester.User),
			slog.Int("ordinal", selection.Ordinal(err)),
			slog.String("error", err.Error()),
		)
		return Result{kind: q.Kind}, err
	}

	logger.Info("query completed",
		slog.String("user", q.Requester.User),
		slog.Int("visited", visited),
		slog.Int("matched", result.Count()),
		slog.Duration("duration", elapsed),
	)
	return result, nil
}

func (s *Selector) run(ctx context.Context, q Query, logger *slog.Logger) (Result, int, error) {
	chain, restriction, err := s.compiler.Compile(q.Criteria, q.Requester.Perm)
	if err != nil {
		return Result{kind: q.Kind}, 0, err
	}
	defer chain.Release()

	var out assembler
	switch q.Kind {
	case KindSelectJobs:
		out = &idAssembler{limit: s.maxResults}
	case KindSelectStatus:
		out = &statusAssembler{
			snapshotter: s.snapshotter,
			requester:   q.Requester,
			names:       q.Attributes,
			limit:       s.maxResults,
			logger:      logger,
		}
	default:
		return Result{kind: q.Kind}, 0, fmt.Errorf("unknown query kind %d", int(q.Kind))
	}

	w := &walker{
		table:       s.table,
		authorizer:  s.authorizer,
		queryOthers: s.queryOthers,
		logger:      logger,
	}
	visited, err := w.walk(ctx, plan{
		chain:         chain,
		restriction:   restriction,
		executionOnly: q.ExecutionQueuesOnly(),
		summarize:     q.SummarizeArrays(),
		requester:     q.Requester,
	}, out)
	if err != nil {
		return Result{kind: q.Kind}, visited, err
	}
	return out.result(), visited, nil
}
