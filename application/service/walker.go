package service

import (
	"context"
	"log/slog"

	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/domain/selection"
)

// plan is everything a walk needs, fixed before the first job is visited.
type plan struct {
	chain         *selection.Chain
	restriction   *queue.Queue
	executionOnly bool
	summarize     bool
	requester     Requester
}

type walker struct {
	table       *Table
	authorizer  Authorizer
	queryOthers bool
	logger      *slog.Logger
}

// walk visits every job in the planned collection and emits the matches.
// It returns early only when the assembler reports an error, and reports
// the number of jobs visited.
func (w *walker) walk(ctx context.Context, p plan, out assembler) (int, error) {
	if p.executionOnly && p.restriction != nil && !p.restriction.IsExecution() {
		return 0, nil
	}

	coll := w.table.Collection(Scope{Queue: p.restriction, Summarized: p.summarize})
	cur := coll.Cursor()
	visited := 0

	for id, ok := cur.Next(); ok; id, ok = cur.Next() {
		found, err := coll.Visit(id, func(j *job.Job) error {
			return w.visit(ctx, p, j, out)
		})
		if found {
			visited++
		}
		if err != nil {
			return visited, err
		}
	}
	return visited, nil
}

// visit runs with j locked.
func (w *walker) visit(ctx context.Context, p plan, j *job.Job, out assembler) error {
	if !w.queryOthers {
		if err := w.authorizer.Authorize(ctx, p.requester, j); err != nil {
			w.logger.Debug("job not visible",
				slog.String("job_id", j.ID()),
				slog.String("user", p.requester.User),
			)
			return nil
		}
	}

	if p.executionOnly && p.restriction == nil {
		q, err := w.table.Queues().Find(j.QueueName())
		if err != nil {
			w.logger.Debug("job queue not resolved",
				slog.String("job_id", j.ID()),
				slog.String("queue", j.QueueName()),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if !q.IsExecution() {
			return nil
		}
	}

	if !p.chain.Matches(j.Attributes()) {
		return nil
	}
	return out.emit(ctx, j)
}
