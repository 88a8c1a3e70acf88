package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "nova.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleBatch(tick uint64) sim.Batch {
	return sim.Batch{
		Tick:       tick,
		Discovered: []core.Position{{X: 1, Y: 1}, {X: 2, Y: 1}},
		ResourceDeltas: []sim.ResourceDelta{
			{Pos: core.Position{X: 3, Y: 3}, Kind: core.Mineral, Delta: -1},
		},
		Events: []sim.Event{
			{Tick: tick, Robot: 1, Kind: sim.EventCollected, Task: core.TaskHarvest, Pos: core.Position{X: 3, Y: 3}, Resource: core.Mineral, Amount: 1},
			{Tick: tick, Robot: 2, Kind: sim.EventExplored, Task: core.TaskExplore, Pos: core.Position{X: 2, Y: 1}, Amount: 2},
			{Tick: tick, Robot: 3, Kind: sim.EventDelivered, Task: core.TaskReturnToStation, Resource: core.ScientificInterest, Amount: 1},
		},
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	run, err := s.CreateRun(ctx, 42, 10, 8, map[string]int{"robots": 5})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, 10, got.Width)
	assert.JSONEq(t, `{"robots":5}`, got.Config)
	assert.Nil(t, got.EndedAt)

	require.NoError(t, s.FinishRun(ctx, run.ID, 120, sim.Metrics{Ticks: 120, Delivered: 7}))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), got.Ticks)
	assert.NotNil(t, got.EndedAt)
	assert.Contains(t, got.Metrics, `"delivered":7`)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestMissingRun(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.FinishRun(ctx, "nope", 1, nil), ErrNotFound)
}

func TestBatchRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	run, err := s.CreateRun(ctx, 1, 5, 5, nil)
	require.NoError(t, err)

	want := sampleBatch(3)
	require.NoError(t, s.RecordBatch(ctx, run.ID, want))

	got, err := s.Batch(ctx, run.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.Batch(ctx, run.ID, 4)
	assert.ErrorIs(t, err, ErrNotFound)

	// Same tick twice violates the primary key and leaves nothing behind.
	assert.Error(t, s.RecordBatch(ctx, run.ID, want))
	events, err := s.Events(ctx, run.ID, EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestEventQueries(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	run, err := s.CreateRun(ctx, 1, 5, 5, nil)
	require.NoError(t, err)
	for tick := uint64(1); tick <= 3; tick++ {
		require.NoError(t, s.RecordBatch(ctx, run.ID, sampleBatch(tick)))
	}

	all, err := s.Events(ctx, run.ID, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 9)
	assert.Equal(t, sampleBatch(1).Events[0], all[0])

	robot := core.RobotID(2)
	mine, err := s.Events(ctx, run.ID, EventFilter{Robot: &robot})
	require.NoError(t, err)
	require.Len(t, mine, 3)
	for _, e := range mine {
		assert.Equal(t, sim.EventExplored, e.Kind)
	}

	kind := sim.EventCollected
	limited, err := s.Events(ctx, run.ID, EventFilter{Kind: &kind, Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, uint64(1), limited[0].Tick)
	assert.Equal(t, core.Mineral, limited[0].Resource)

	totals, err := s.Deliveries(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[core.ResourceKind]int{core.ScientificInterest: 3}, totals)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nova.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	run, err := s.CreateRun(ctx, 9, 3, 3, nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordBatch(ctx, run.ID, sampleBatch(1)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Batch(ctx, run.ID, 1)
	assert.NoError(t, err)
}
