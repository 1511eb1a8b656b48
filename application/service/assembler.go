package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/selection"
)

// assembler collects matched jobs. emit is called with the job locked; an
// error it returns aborts the walk.
type assembler interface {
	emit(ctx context.Context, j *job.Job) error
	result() Result
}

type idAssembler struct {
	limit int
	ids   []string
}

func (a *idAssembler) emit(_ context.Context, j *job.Job) error {
	if a.limit > 0 && len(a.ids) >= a.limit {
		return fmt.Errorf("%w: more than %d jobs", selection.ErrOutOfMemory, a.limit)
	}
	a.ids = append(a.ids, j.ID())
	return nil
}

func (a *idAssembler) result() Result {
	return Result{kind: KindSelectJobs, ids: a.ids}
}

type statusAssembler struct {
	snapshotter Snapshotter
	requester   Requester
	names       []string
	limit       int
	blocks      []StatusBlock
	logger      *slog.Logger
}

func (a *statusAssembler) emit(ctx context.Context, j *job.Job) error {
	if a.limit > 0 && len(a.blocks) >= a.limit {
		return fmt.Errorf("%w: more than %d jobs", selection.ErrOutOfMemory, a.limit)
	}
	block, err := a.snapshotter.Snapshot(ctx, a.requester, j, a.names)
	if errors.Is(err, selection.ErrPermissionDenied) {
		a.logger.Debug("status skipped", slog.String("job_id", j.ID()), slog.String("error", err.Error()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("status job %s: %w", j.ID(), err)
	}
	a.blocks = append(a.blocks, block)
	return nil
}

func (a *statusAssembler) result() Result {
	return Result{kind: KindSelectStatus, statuses: a.blocks}
}
