package service

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/jobsel/domain/attribute"
	"github.com/helixml/jobsel/domain/job"
	"github.com/helixml/jobsel/domain/queue"
	"github.com/helixml/jobsel/domain/selection"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTable() *Table {
	r := queue.NewRegistry()
	r.Add(queue.New("batch", queue.TypeExecution))
	r.Add(queue.New("routing", queue.TypeRoute))
	return NewTable(r)
}

type spec struct {
	id    string
	queue string
	owner string
	state string
	attrs map[string]string
	opts  []job.Option
}

func addJob(t *testing.T, table *Table, s spec) *job.Job {
	t.Helper()
	c := attribute.JobCatalog()
	set := c.NewSet()
	require.NoError(t, c.DecodeInto(&set, attribute.NameQueue, "", s.queue))
	require.NoError(t, c.DecodeInto(&set, attribute.NameJobOwner, "", s.owner))
	require.NoError(t, c.DecodeInto(&set, attribute.NameState, "", s.state))
	for _, key := range slices.Sorted(maps.Keys(s.attrs)) {
		raw := s.attrs[key]
		name, res := attribute.ParseKey(key)
		require.NoError(t, c.DecodeInto(&set, name, res, raw))
	}
	j := job.New(s.id, set, s.opts...)
	require.NoError(t, table.Insert(j))
	return j
}

var (
	operator = Requester{User: "ops", Host: "login1", Perm: attribute.PermOperator}
	alice    = Requester{User: "alice", Host: "login1", Perm: attribute.PermUser}
	bob      = Requester{User: "bob", Host: "login1", Perm: attribute.PermUser}
)

func selectIDs(t *testing.T, s *Selector, q Query) []string {
	t.Helper()
	q.Kind = KindSelectJobs
	res, err := s.Select(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, len(res.JobIDs()), res.Count())
	return res.JobIDs()
}

func TestSelect_StateMembership(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "2", queue: "batch", owner: "alice@login1", state: "R"})
	addJob(t, table, spec{id: "3", queue: "batch", owner: "alice@login1", state: "C"})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	ids := selectIDs(t, s, Query{
		Criteria:  []selection.Criterion{{Name: attribute.NameState, Operator: selection.OpEqual, Value: "QR"}},
		Requester: operator,
	})
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestSelect_OwnerAndNodes(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q", attrs: map[string]string{"Resource_List.nodes": "8"}})
	addJob(t, table, spec{id: "2", queue: "batch", owner: "alice@login1", state: "Q", attrs: map[string]string{"Resource_List.nodes": "2"}})
	addJob(t, table, spec{id: "3", queue: "batch", owner: "bob@login1", state: "Q", attrs: map[string]string{"Resource_List.nodes": "16"}})
	addJob(t, table, spec{id: "4", queue: "batch", owner: "alice@login1", state: "Q"})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	ids := selectIDs(t, s, Query{
		Criteria: []selection.Criterion{
			{Name: attribute.NameJobOwner, Operator: selection.OpEqual, Value: "alice@login1"},
			{Name: attribute.NameResourceList, Resource: "nodes", Operator: selection.OpGreaterThanOrEqual, Value: "4"},
		},
		Requester: operator,
	})
	assert.Equal(t, []string{"1"}, ids)
}

func TestSelect_ExecutionQueuesOnly(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "2", queue: "routing", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "3", queue: "batch", owner: "alice@login1", state: "R"})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	ids := selectIDs(t, s, Query{Requester: operator, Extensions: []string{"exec_only"}})
	assert.Equal(t, []string{"1", "3"}, ids)

	ids = selectIDs(t, s, Query{Requester: operator})
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	ids = selectIDs(t, s, Query{
		Criteria:   []selection.Criterion{{Name: attribute.NameQueue, Operator: selection.OpEqual, Value: "routing"}},
		Requester:  operator,
		Extensions: []string{"exec_only"},
	})
	assert.Empty(t, ids)

	ids = selectIDs(t, s, Query{
		Criteria:   []selection.Criterion{{Name: attribute.NameQueue, Operator: selection.OpEqual, Value: "batch"}},
		Requester:  operator,
		Extensions: []string{"exec_only"},
	})
	assert.Equal(t, []string{"1", "3"}, ids)
}

func TestSelect_ExecutionOnlySkipsUnresolvedQueue(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "2", queue: "batch", owner: "alice@login1", state: "Q"})
	j, err := table.Jobs().Get("2")
	require.NoError(t, err)
	j.Update(func(set *attribute.Set) { set.Put(attribute.Queue, attribute.NewString("gone")) })
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	ids := selectIDs(t, s, Query{Requester: operator, Extensions: []string{"exec_only"}})
	assert.Equal(t, []string{"1"}, ids)
}

func TestSelect_QueueRestriction(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "2", queue: "routing", owner: "alice@login1", state: "Q"})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	ids := selectIDs(t, s, Query{
		Criteria:  []selection.Criterion{{Name: attribute.NameQueue, Operator: selection.OpEqual, Value: "routing@server1"}},
		Requester: operator,
	})
	assert.Equal(t, []string{"2"}, ids)

	ids = selectIDs(t, s, Query{
		Criteria:  []selection.Criterion{{Name: attribute.NameQueue, Operator: selection.OpEqual, Value: "@server1"}},
		Requester: operator,
	})
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestSelect_Authorization(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "2", queue: "batch", owner: "bob@login2", state: "Q"})

	s := NewSelector(table, attribute.JobCatalog(), testLogger())
	assert.Equal(t, []string{"1"}, selectIDs(t, s, Query{Requester: alice}))
	assert.Equal(t, []string{"2"}, selectIDs(t, s, Query{Requester: bob}))
	assert.Equal(t, []string{"1", "2"}, selectIDs(t, s, Query{Requester: operator}))

	open := NewSelector(table, attribute.JobCatalog(), testLogger(), WithQueryOthers(true))
	assert.Equal(t, []string{"1", "2"}, selectIDs(t, open, Query{Requester: alice}))
}

func TestSelect_SummarizeArrays(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "2[].srv", queue: "batch", owner: "alice@login1", state: "Q",
		opts: []job.Option{job.WithArray("2[].srv"), job.AsArraySummary()}})
	addJob(t, table, spec{id: "2[0].srv", queue: "batch", owner: "alice@login1", state: "R",
		opts: []job.Option{job.WithArray("2[].srv")}})
	addJob(t, table, spec{id: "2[1].srv", queue: "batch", owner: "alice@login1", state: "Q",
		opts: []job.Option{job.WithArray("2[].srv")}})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	assert.Equal(t, []string{"1", "2[0].srv", "2[1].srv"}, selectIDs(t, s, Query{Requester: operator}))
	assert.Equal(t, []string{"1", "2[].srv"}, selectIDs(t, s, Query{Requester: operator, Extensions: []string{"summarize_arrays"}}))

	batchOnly := []selection.Criterion{{Name: attribute.NameQueue, Operator: selection.OpEqual, Value: "batch"}}
	assert.Equal(t, []string{"1", "2[].srv"}, selectIDs(t, s, Query{
		Criteria: batchOnly, Requester: operator, Extensions: []string{"summarize_arrays"},
	}))
}

func TestSelect_CompileErrorReportsOrdinal(t *testing.T) {
	table := newTestTable()
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	_, err := s.Select(context.Background(), Query{
		Criteria: []selection.Criterion{
			{Name: attribute.NameQueue, Operator: selection.OpEqual, Value: "batch"},
			{Name: attribute.NameJobName, Operator: selection.OpEqual, Value: "x"},
			{Name: "bogus", Operator: selection.OpEqual, Value: "x"},
		},
		Requester: operator,
	})
	require.ErrorIs(t, err, selection.ErrUnknownAttribute)
	assert.Equal(t, 3, selection.Ordinal(err))
}

func TestSelect_FatalAbortReleasesLocks(t *testing.T) {
	table := newTestTable()
	for _, id := range []string{"1", "2", "3"} {
		addJob(t, table, spec{id: id, queue: "batch", owner: "alice@login1", state: "Q"})
	}

	capped := NewSelector(table, attribute.JobCatalog(), testLogger(), WithMaxResults(1))
	res, err := capped.Select(context.Background(), Query{Kind: KindSelectJobs, Requester: operator})
	require.ErrorIs(t, err, selection.ErrOutOfMemory)
	assert.Empty(t, res.JobIDs())

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		s := NewSelector(table, attribute.JobCatalog(), testLogger())
		res, err := s.Select(context.Background(), Query{Kind: KindSelectJobs, Requester: operator})
		done <- outcome{res: res, err: err}
	}()
	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, []string{"1", "2", "3"}, got.res.JobIDs())
	case <-time.After(5 * time.Second):
		t.Fatal("second query blocked on a job lock")
	}
}

func TestSelect_Idempotent(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q", attrs: map[string]string{"Priority": "10"}})
	addJob(t, table, spec{id: "2", queue: "batch", owner: "alice@login1", state: "R", attrs: map[string]string{"Priority": "-5"}})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	q := Query{
		Criteria:  []selection.Criterion{{Name: attribute.NamePriority, Operator: selection.OpGreaterThan, Value: "0"}},
		Requester: alice,
	}
	first := selectIDs(t, s, q)
	second := selectIDs(t, s, q)
	assert.Equal(t, []string{"1"}, first)
	assert.Equal(t, first, second)
}

func TestSelect_SkipsRemovedJobs(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	addJob(t, table, spec{id: "2", queue: "batch", owner: "alice@login1", state: "Q"})
	require.NoError(t, table.Remove("1"))
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	assert.Equal(t, []string{"2"}, selectIDs(t, s, Query{Requester: operator}))
	q, err := table.Queues().Find("batch")
	require.NoError(t, err)
	assert.Equal(t, 1, q.JobCount())
}

func TestSelect_Status(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q",
		attrs: map[string]string{"Job_Name": "sim", "euser": "alice", "Resource_List.nodes": "2", "Resource_List.mem": "1gb"}})
	addJob(t, table, spec{id: "2", queue: "batch", owner: "bob@login1", state: "R"})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	res, err := s.Select(context.Background(), Query{
		Kind:       KindSelectStatus,
		Requester:  alice,
		Attributes: []string{attribute.NameJobName, attribute.NameEUser, attribute.NameResourceList},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Count())

	block := res.Statuses()[0]
	assert.Equal(t, "1", block.JobID)
	assert.Equal(t, []attribute.Encoded{
		{Name: attribute.NameJobName, Value: "sim"},
		{Name: attribute.NameResourceList, Resource: "mem", Value: "1gb"},
		{Name: attribute.NameResourceList, Resource: "nodes", Value: "2"},
	}, block.Attributes)

	res, err = s.Select(context.Background(), Query{Kind: KindSelectStatus, Requester: operator})
	require.NoError(t, err)
	require.Equal(t, 2, res.Count())
	assert.Contains(t, res.Statuses()[0].Attributes, attribute.Encoded{Name: attribute.NameEUser, Value: "alice"})
	assert.Contains(t, res.Statuses()[1].Attributes, attribute.Encoded{Name: attribute.NameState, Value: "R"})
}

func TestSelect_StatusUnknownAttributeIsFatal(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	s := NewSelector(table, attribute.JobCatalog(), testLogger())

	res, err := s.Select(context.Background(), Query{
		Kind:       KindSelectStatus,
		Requester:  operator,
		Attributes: []string{"bogus"},
	})
	require.ErrorIs(t, err, selection.ErrUnknownAttribute)
	assert.Empty(t, res.Statuses())
}

type stubSnapshotter struct {
	errs map[string]error
}

func (s stubSnapshotter) Snapshot(_ context.Context, _ Requester, j *job.Job, _ []string) (StatusBlock, error) {
	if err, ok := s.errs[j.ID()]; ok {
		return StatusBlock{}, err
	}
	return StatusBlock{JobID: j.ID()}, nil
}

func TestSelect_StatusPartialFailures(t *testing.T) {
	table := newTestTable()
	for _, id := range []string{"1", "2", "3"} {
		addJob(t, table, spec{id: id, queue: "batch", owner: "alice@login1", state: "Q"})
	}

	tolerant := NewSelector(table, attribute.JobCatalog(), testLogger(), WithSnapshotter(stubSnapshotter{
		errs: map[string]error{"2": selection.ErrPermissionDenied},
	}))
	res, err := tolerant.Select(context.Background(), Query{Kind: KindSelectStatus, Requester: operator})
	require.NoError(t, err)
	ids := []string{}
	for _, b := range res.Statuses() {
		ids = append(ids, b.JobID)
	}
	assert.Equal(t, []string{"1", "3"}, ids)

	boom := errors.New("encode failed")
	fatal := NewSelector(table, attribute.JobCatalog(), testLogger(), WithSnapshotter(stubSnapshotter{
		errs: map[string]error{"2": boom},
	}))
	res, err = fatal.Select(context.Background(), Query{Kind: KindSelectStatus, Requester: operator})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, res.Statuses())
}

type recordingRecorder struct {
	mu      sync.Mutex
	kinds   []Kind
	matched []int
	errs    []error
}

func (r *recordingRecorder) ObserveQuery(kind Kind, matched int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.matched = append(r.matched, matched)
	r.errs = append(r.errs, err)
}

func TestSelect_Recorder(t *testing.T) {
	table := newTestTable()
	addJob(t, table, spec{id: "1", queue: "batch", owner: "alice@login1", state: "Q"})
	rec := &recordingRecorder{}
	s := NewSelector(table, attribute.JobCatalog(), testLogger(), WithRecorder(rec))

	_, err := s.Select(context.Background(), Query{Kind: KindSelectJobs, Requester: operator})
	require.NoError(t, err)
	_, err = s.Select(context.Background(), Query{
		Kind:      KindSelectStatus,
		Criteria:  []selection.Criterion{{Name: "bogus", Operator: selection.OpEqual, Value: "x"}},
		Requester: operator,
	})
	require.Error(t, err)

	assert.Equal(t, []Kind{KindSelectJobs, KindSelectStatus}, rec.kinds)
	assert.Equal(t, []int{1, 0}, rec.matched)
	assert.NoError(t, rec.errs[0])
	assert.Error(t, rec.errs[1])
}

func TestQuery_Extensions(t *testing.T) {
	q := Query{Extensions: []string{"exec_only_please", "summarize_arrays"}}
	assert.True(t, q.ExecutionQueuesOnly())
	assert.True(t, q.SummarizeArrays())
	assert.False(t, Query{}.ExecutionQueuesOnly())
}
