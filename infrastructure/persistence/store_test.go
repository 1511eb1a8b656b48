package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/infrastructure/persistence"
	"github.com/helixml/jobsel/internal/testdb"
)

func newJob(t *testing.T, id string, attrs map[string]string, opts ...job.Option) *job.Job {
	t.Helper()
	c := attribute.JobCatalog()
	set := c.NewSet()
	for _, kv := range [][2]string{
		{"queue", attrs["queue"]},
		{"Job_Owner", attrs["Job_Owner"]},
		{"job_state", attrs["job_state"]},
		{"Resource_List.nodes", attrs["Resource_List.nodes"]},
		{"Resource_List.walltime", attrs["Resource_List.walltime"]},
		{"Resource_List.mem", attrs["Resource_List.mem"]},
		{"Rerunable", attrs["Rerunable"]},
		{"User_List", attrs["User_List"]},
	} {
		if kv[1] == "" {
			continue
		}
		name, res := attribute.ParseKey(kv[0])
		require.NoError(t, c.DecodeInto(&set, name, res, kv[1]))
	}
	return job.New(id, set, opts...)
}

func TestQueueStore(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewQueueStore(testdb.New(t))

	require.NoError(t, store.Save(ctx, queue.New("workq", queue.TypeExecution)))
	require.NoError(t, store.Save(ctx, queue.New("route", queue.TypeRoute)))
	require.NoError(t, store.Save(ctx, queue.New("batch", queue.TypeExecution)))
	require.NoError(t, store.Save(ctx, queue.New("route", queue.TypeExecution)))

	queues, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, queues, 3)
	assert.Equal(t, "batch", queues[0].Name())
	assert.Equal(t, "route", queues[1].Name())
	assert.True(t, queues[1].IsExecution())

	require.NoError(t, store.Delete(ctx, "workq"))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestJobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	catalog := attribute.JobCatalog()
	store := persistence.NewJobStore(testdb.New(t), catalog)

	original := newJob(t, "1.srv", map[string]string{
		"queue":                  "batch",
		"Job_Owner":              "alice@login1",
		"job_state":              "R",
		"Resource_List.nodes":    "4",
		"Resource_List.walltime": "01:00:00",
		"Resource_List.mem":      "2gb",
		"Rerunable":              "true",
		"User_List":              "alice,bob@*.example.com",
	})
	require.NoError(t, store.Save(ctx, original))

	jobs, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	var want, got []attribute.Encoded
	original.View(func(j *job.Job) { want = catalog.EncodeSet(j.Attributes(), nil) })
	jobs[0].View(func(j *job.Job) { got = catalog.EncodeSet(j.Attributes(), nil) })
	assert.Equal(t, want, got)
	assert.Equal(t, "1.srv", jobs[0].ID())
}

func TestJobStore_OrderAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewJobStore(testdb.New(t), attribute.JobCatalog())

	for _, id := range []string{"3", "1", "2"} {
		require.NoError(t, store.Save(ctx, newJob(t, id, map[string]string{"queue": "batch", "job_state": "Q"})))
	}

	// Saving again keeps the original position and replaces attributes.
	updated := newJob(t, "3", map[string]string{"queue": "batch", "job_state": "C"})
	require.NoError(t, store.Save(ctx, updated))

	jobs, err := store.FindAll(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID())
	}
	assert.Equal(t, []string{"3", "1", "2"}, ids)
	jobs[0].View(func(j *job.Job) { assert.Equal(t, job.StateComplete, j.State()) })

	require.NoError(t, store.Delete(ctx, "1"))
	jobs, err = store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestJobStore_ArrayFlags(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewJobStore(testdb.New(t), attribute.JobCatalog())

	require.NoError(t, store.Save(ctx, newJob(t, "5[]", map[string]string{"queue": "batch"},
		job.WithArray("5[]"), job.AsArraySummary())))
	require.NoError(t, store.Save(ctx, newJob(t, "5[0]", map[string]string{"queue": "batch"},
		job.WithArray("5[]"))))

	jobs, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.True(t, jobs[0].IsArraySummary())
	assert.True(t, jobs[1].IsArrayMember())
	assert.Equal(t, "5[]", jobs[1].ArrayID())
}
