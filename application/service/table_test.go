package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/domain/selection"
)

func TestTable_InsertRoutesCollections(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "a", state: "Q"})
	addJob(t, table, spec{id: "2[]", queue: "batch", owner: "a", state: "Q",
		opts: []job.Option{job.WithArray("2[]"), job.AsArraySummary()}})
	addJob(t, table, spec{id: "2[0]", queue: "batch", owner: "a", state: "Q",
		opts: []job.Option{job.WithArray("2[]")}})

	batch, err := table.Queues().Find("batch")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2[0]"}, table.Collection(Scope{}).IDs())
	assert.Equal(t, []string{"1", "2[]"}, table.Collection(Scope{Summarized: true}).IDs())
	assert.Equal(t, []string{"1", "2[0]"}, table.Collection(Scope{Queue: batch}).IDs())
	assert.Equal(t, []string{"1", "2[]"}, table.Collection(Scope{Queue: batch, Summarized: true}).IDs())
}

func TestTable_InsertErrors(t *testing.T) {
	table := newTestTable()
	set := attribute.JobCatalog().NewSet()
	set.Put(attribute.Queue, attribute.NewString("nowhere"))
	err := table.Insert(job.New("1", set))
	assert.ErrorIs(t, err, queue.ErrNotFound)

	addJob(t, table, spec{id: "2", queue: "batch", owner: "a", state: "Q"})
	set = attribute.JobCatalog().NewSet()
	set.Put(attribute.Queue, attribute.NewString("batch"))
	assert.Error(t, table.Insert(job.New("2", set)))
	assert.Equal(t, 1, table.Jobs().Len())
}

func TestTable_Remove(t *testing.T) {
	table := newTestTable()
	j := addJob(t, table, spec{id: "1", queue: "batch", owner: "a", state: "Q"})

	require.NoError(t, table.Remove("1"))
	assert.Equal(t, 0, table.Jobs().Len())
	assert.Equal(t, 0, table.Collection(Scope{Summarized: true}).Len())
	j.View(func(j *job.Job) { assert.True(t, j.Removed()) })

	assert.ErrorIs(t, table.Remove("1"), job.ErrNotFound)
}

func TestSelect_ConcurrentQueriesAndMutation(t *testing.T) {
	table := newTestTable()
	for i := range 200 {
		state := "Q"
		if i%2 == 1 {
			state = "R"
		}
		addJob(t, table, spec{id: fmt.Sprintf("%d", i), queue: "batch", owner: "alice@login1", state: state,
			attrs: map[string]string{"Resource_List.nodes": fmt.Sprintf("%d", i%8)}})
	}
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	q := Query{
		Kind: KindSelectJobs,
		Criteria: []selection.Criterion{
			{Name: attribute.NameState, Operator: selection.OpEqual, Value: "R"},
			{Name: attribute.NameResourceList, Resource: "nodes", Operator: selection.OpGreaterThanOrEqual, Value: "4"},
		},
		Requester: alice,
	}

	g, ctx := errgroup.WithContext(context.Background())
	for range 8 {
		g.Go(func() error {
			for range 20 {
				res, err := s.Select(ctx, q)
				if err != nil {
					return err
				}
				if res.Count() > 100 {
					return fmt.Errorf("too many matches: %d", res.Count())
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for i := 200; i < 260; i++ {
			set := attribute.JobCatalog().NewSet()
			set.Put(attribute.Queue, attribute.NewString("batch"))
			set.Put(attribute.JobOwner, attribute.NewString("alice@login1"))
			set.Put(attribute.State, attribute.NewChar('Q'))
			if err := table.Insert(job.New(fmt.Sprintf("%d", i), set)); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < 200; i += 10 {
			if err := table.Remove(fmt.Sprintf("%d", i)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	res, err := s.Select(context.Background(), q)
	require.NoError(t, err)
	// Running jobs have odd ids; nodes = id%8 so ids 5 and 7 mod 8 qualify.
	assert.Equal(t, 50, res.Count())
}
