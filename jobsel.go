// Package jobsel provides the job selection engine of a batch server.
//
// A Client owns the job table: the set of jobs known to the server, the
// queues they sit in and the per-queue and array-summary views of both.
// Queries compile an ordered list of criteria and walk the table to return
// either matching job identifiers or status blocks.
//
// Basic usage:
//
//	client, err := jobsel.New(jobsel.WithSQLite(".jobsel/jobsel.db"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Select(ctx, service.Query{
//	    Kind: service.KindSelectJobs,
//	    Criteria: []selection.Criterion{
//	        {Name: "job_state", Operator: selection.OpEqual, Value: "QR"},
//	    },
//	    Requester: service.Requester{User: "alice", Perm: attribute.PermUser},
//	})
package jobsel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/infrastructure/fixture"
	"github.com/helixml/jobsel/infrastructure/persistence"
	"github.com/helixml/jobsel/internal/config"
	"github.com/helixml/jobsel/internal/database"
)

// Client is the main entry point for the jobsel library.
type Client struct {
	// Selector answers select and select-status queries.
	Selector *service.Selector

	table   *service.Table
	catalog attribute.Catalog
	db      database.Database
	queues  persistence.QueueStore
	jobs    persistence.JobStore

	logger *slog.Logger
	closed atomic.Bool
	// mu serialises table mutations so the database and the in-memory
	// table change in the same order.
	mu sync.Mutex
}

// New opens the database, recovers the stored queues and jobs into a fresh
// table and builds the selector.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = config.DefaultLogger()
	}

	dbURL, err := buildDatabaseURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("build database url: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, dbURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	catalog := attribute.JobCatalog()
	client := &Client{
		table:   service.NewTable(queue.NewRegistry()),
		catalog: catalog,
		db:      db,
		queues:  persistence.NewQueueStore(db),
		jobs:    persistence.NewJobStore(db, catalog),
		logger:  logger,
	}

	if err := client.recover(ctx); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("recover job table: %w", err), errClose)
	}

	selectorOpts := []service.SelectorOption{
		service.WithQueryOthers(cfg.queryOthers),
		service.WithMaxResults(cfg.maxResults),
	}
	if cfg.authorizer != nil {
		selectorOpts = append(selectorOpts, service.WithAuthorizer(cfg.authorizer))
	}
	if cfg.recorder != nil {
		selectorOpts = append(selectorOpts, service.WithRecorder(cfg.recorder))
	}
	client.Selector = service.NewSelector(client.table, catalog, logger, selectorOpts...)

	return client, nil
}

func (c *Client) recover(ctx context.Context) error {
	queues, err := c.queues.All(ctx)
	if err != nil {
		return err
	}
	for _, q := range queues {
		c.table.Queues().Add(q)
	}

	jobs, err := c.jobs.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if err := c.table.Insert(j); err != nil {
			return err
		}
	}

	c.logger.Info("job table recovered",
		slog.Int("queues", len(queues)),
		slog.Int("jobs", len(jobs)),
	)
	return nil
}

// Select runs one query against the table.
func (c *Client) Select(ctx context.Context, q service.Query) (service.Result, error) {
	if c.closed.Load() {
		return service.Result{}, ErrClientClosed
	}
	return c.Selector.Select(ctx, q)
}

// AddQueue stores q and registers it. An existing queue with the same name
// keeps its jobs and takes the new type.
func (c *Client) AddQueue(ctx context.Context, q *queue.Queue) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addQueue(ctx, q)
}

func (c *Client) addQueue(ctx context.Context, q *queue.Queue) error {
	if err := c.queues.Save(ctx, q); err != nil {
		return err
	}
	if existing, err := c.table.Queues().Find(q.Name()); err == nil {
		existing.SetType(q.Type())
		return nil
	}
	c.table.Queues().Add(q)
	return nil
}

// SubmitJob stores j and inserts it into the table. A job with the same
// identifier is replaced.
func (c *Client) SubmitJob(ctx context.Context, j *job.Job) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitJob(ctx, j)
}

func (c *Client) submitJob(ctx context.Context, j *job.Job) error {
	var queueName string
	j.View(func(j *job.Job) { queueName = j.QueueName() })
	if _, err := c.table.Queues().Find(queueName); err != nil {
		return fmt.Errorf("submit job %s: %w", j.ID(), err)
	}

	if err := c.jobs.Save(ctx, j); err != nil {
		return err
	}
	if err := c.table.Remove(j.ID()); err != nil && !errors.Is(err, job.ErrNotFound) {
		return err
	}
	return c.table.Insert(j)
}

// RemoveJob deletes the job from the database and the table.
func (c *Client) RemoveJob(ctx context.Context, id string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.jobs.Delete(ctx, id); err != nil {
		return err
	}
	return c.table.Remove(id)
}

// Import loads the queues and jobs of a fixture. Queues are added before
// jobs so every job finds its queue.
func (c *Client) Import(ctx context.Context, f fixture.Fixture) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	queues, err := f.BuildQueues()
	if err != nil {
		return err
	}
	jobs, err := f.BuildJobs(c.catalog)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range queues {
		if err := c.addQueue(ctx, q); err != nil {
			return err
		}
	}
	for _, j := range jobs {
		if err := c.submitJob(ctx, j); err != nil {
			return err
		}
	}

	c.logger.Info("fixture imported",
		slog.Int("queues", len(queues)),
		slog.Int("jobs", len(jobs)),
	)
	return nil
}

// Table returns the in-memory job table.
func (c *Client) Table() *service.Table {
	return c.table
}

// Catalog returns the job attribute catalog.
func (c *Client) Catalog() attribute.Catalog {
	return c.catalog
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Close releases the database connection.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("jobsel client closed")
	return nil
}
