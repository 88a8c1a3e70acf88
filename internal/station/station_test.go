package station

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/elektrokombinacija/nova-swarm/internal/algo"
	"github.com/elektrokombinacija/nova-swarm/internal/behavior"
	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var home = core.Position{X: 2, Y: 2}

func spawned(tick uint64, ids ...core.RobotID) []sim.Event {
	var out []sim.Event
	for _, id := range ids {
		out = append(out, sim.Event{Tick: tick, Robot: id, Kind: sim.EventSpawned, Pos: home})
	}
	return out
}

func TestInitialRosterCyclesTypes(t *testing.T) {
	s := New(home, Config{Robots: 5}, nil)
	robots := s.InitialRoster()
	require.Len(t, robots, 5)

	want := []core.RobotType{core.Explorer, core.Harvester, core.Scientist, core.Explorer, core.Harvester}
	for i, r := range robots {
		assert.Equal(t, core.RobotID(i+1), r.ID)
		assert.Equal(t, want[i], r.Type)
		assert.Equal(t, home, r.Pos)
		assert.Equal(t, core.DefaultEnergyCapacity, r.Energy)
	}
}

func TestInitialRosterCustomTypes(t *testing.T) {
	s := New(home, Config{Robots: 3, Types: []core.RobotType{core.Scientist}}, nil)
	for _, r := range s.InitialRoster() {
		assert.Equal(t, core.Scientist, r.Type)
	}
}

func TestLedgerTotals(t *testing.T) {
	s := New(home, DefaultConfig(), nil)
	ctx := context.Background()

	_, err := s.Sync(ctx, sim.Batch{Tick: 1, Discovered: []core.Position{{X: 1, Y: 1}, {X: 2, Y: 1}}, Events: spawned(1, 1, 2)})
	require.NoError(t, err)
	_, err = s.Sync(ctx, sim.Batch{Tick: 2, Discovered: []core.Position{{X: 3, Y: 1}}, Events: []sim.Event{
		{Tick: 2, Robot: 1, Kind: sim.EventCollected, Resource: core.Mineral, Amount: 1},
		{Tick: 2, Robot: 2, Kind: sim.EventDelivered, Resource: core.Energy, Amount: 1},
		{Tick: 2, Robot: 2, Kind: sim.EventRecharged, Amount: 25},
	}})
	require.NoError(t, err)

	l := s.Ledger()
	assert.Equal(t, uint64(2), l.Tick)
	assert.Equal(t, 3, l.Discoveries)
	assert.Equal(t, 2, l.Robots)
	assert.Equal(t, map[core.ResourceKind]int{core.Mineral: 1}, l.Collected)
	assert.Equal(t, map[core.ResourceKind]int{core.Energy: 1}, l.Delivered)

	// The copy is detached.
	l.Delivered[core.Energy] = 99
	assert.Equal(t, 1, s.Ledger().Delivered[core.Energy])
}

func TestStrandedRobotsAreDecommissionedOnce(t *testing.T) {
	s := New(home, DefaultConfig(), nil)
	ctx := context.Background()
	_, err := s.Sync(ctx, sim.Batch{Tick: 1, Events: spawned(1, 1, 2)})
	require.NoError(t, err)

	stranded := sim.Event{Tick: 5, Robot: 2, Kind: sim.EventStranded, Pos: core.Position{X: 7, Y: 7}}
	dir, err := s.Sync(ctx, sim.Batch{Tick: 5, Events: []sim.Event{stranded}})
	require.NoError(t, err)
	assert.Equal(t, []core.RobotID{2}, dir.Decommission)

	dir, err = s.Sync(ctx, sim.Batch{Tick: 5, Events: []sim.Event{stranded}})
	require.NoError(t, err)
	assert.Empty(t, dir.Decommission)

	_, err = s.Sync(ctx, sim.Batch{Tick: 6, Events: []sim.Event{{Tick: 6, Robot: 2, Kind: sim.EventDecommissioned}}})
	require.NoError(t, err)
	l := s.Ledger()
	assert.Equal(t, 1, l.Robots)
	assert.Equal(t, 1, l.Decommissioned)
}

func TestKeepStrandedWhenDisabled(t *testing.T) {
	s := New(home, Config{}, nil)
	dir, err := s.Sync(context.Background(), sim.Batch{Tick: 1, Events: []sim.Event{{Robot: 4, Kind: sim.EventStranded}}})
	require.NoError(t, err)
	assert.True(t, dir.Empty())
}

func TestEnergyBuysRobots(t *testing.T) {
	s := New(home, Config{Robots: 2, RobotCost: 2, MaxRobots: 3}, nil)
	s.InitialRoster()
	ctx := context.Background()
	_, err := s.Sync(ctx, sim.Batch{Tick: 1, Events: spawned(1, 1, 2)})
	require.NoError(t, err)

	deliver := func(tick uint64, kind core.ResourceKind) sim.Batch {
		return sim.Batch{Tick: tick, Events: []sim.Event{{Tick: tick, Robot: 1, Kind: sim.EventDelivered, Resource: kind, Amount: 1}}}
	}

	dir, err := s.Sync(ctx, deliver(2, core.Energy))
	require.NoError(t, err)
	assert.Empty(t, dir.Spawn)

	dir, err = s.Sync(ctx, deliver(3, core.Mineral))
	require.NoError(t, err)
	assert.Empty(t, dir.Spawn, "minerals do not count")

	dir, err = s.Sync(ctx, deliver(4, core.Energy))
	require.NoError(t, err)
	require.Len(t, dir.Spawn, 1)
	assert.Equal(t, core.RobotID(0), dir.Spawn[0].ID, "numbered by the clock")
	assert.Equal(t, core.Scientist, dir.Spawn[0].Type)
	assert.Equal(t, home, dir.Spawn[0].Pos)

	_, err = s.Sync(ctx, sim.Batch{Tick: 5, Events: spawned(5, 3)})
	require.NoError(t, err)

	// At the cap: credit accumulates but nothing is built.
	s.Sync(ctx, deliver(6, core.Energy))
	dir, err = s.Sync(ctx, deliver(7, core.Energy))
	require.NoError(t, err)
	assert.Empty(t, dir.Spawn)
	assert.Equal(t, 1, s.Ledger().Built)
}

// A robot added by hand takes the next ID; a robot the station builds
// afterwards must still join, and its credit must not be wasted.
func TestManualSpawnThenBuild(t *testing.T) {
	dock := core.Position{X: 0, Y: 0}
	m := core.NewMap(5, 5)
	m.PlaceResource(core.Position{X: 3, Y: 3}, core.Energy, 5)
	st := New(dock, Config{Robots: 1, Types: []core.RobotType{core.Harvester}, RobotCost: 1, MaxRobots: 3}, nil)
	sc := core.NewScenario(m, dock, 42)
	sc.Robots = st.InitialRoster()

	engine, err := behavior.NewEngine(behavior.DefaultProfiles(), algo.NewAStar(algo.DefaultMaxExpansions), nil)
	require.NoError(t, err)
	cfg := sim.DefaultConfig()
	cfg.TickInterval = 0
	clock, err := sim.New(cfg, sc, engine, st, nil)
	require.NoError(t, err)

	clock.AddRobot(core.NewRobot(2, core.Explorer, dock))

	ctx := context.Background()
	var snap *sim.Snapshot
	for i := 0; i < 30 && st.Ledger().Built == 0; i++ {
		snap, err = clock.Step(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 1, st.Ledger().Built, "the harvester delivered energy")
	snap, err = clock.Step(ctx)
	require.NoError(t, err)

	var ids []core.RobotID
	for _, r := range snap.Robots {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []core.RobotID{1, 2, 3}, ids)
	assert.Equal(t, 0, clock.Metrics().Rejected)
	assert.Equal(t, 2, clock.Metrics().Spawned)
	assert.Equal(t, 3, st.Ledger().Robots)
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) RecordBatch(context.Context, string, sim.Batch) error {
	f.calls++
	return errors.New("disk full")
}

func TestRecorderFailureIsCounted(t *testing.T) {
	s := New(home, DefaultConfig(), nil)
	rec := &failingRecorder{}
	s.SetRecorder(rec, "run")

	_, err := s.Sync(context.Background(), sim.Batch{Tick: 1})
	assert.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 1, s.Ledger().RecordFaults)
}

// A full run with the station recording into SQLite: the ledger and the
// stored events agree.
func TestRunRecordsToStore(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(filepath.Join(t.TempDir(), "nova.db"))
	require.NoError(t, err)
	defer db.Close()

	m := core.GenerateMap(16, 12, 42, core.DefaultGenParams())
	m.SetTerrain(home, core.Plain)
	st := New(home, DefaultConfig(), nil)
	sc := core.NewScenario(m, home, 42)
	sc.Robots = st.InitialRoster()

	run, err := db.CreateRun(ctx, sc.Seed, m.Width, m.Height, st.cfg)
	require.NoError(t, err)
	st.SetRecorder(db, run.ID)

	engine, err := behavior.NewEngine(behavior.DefaultProfiles(), algo.NewAStar(algo.DefaultMaxExpansions), nil)
	require.NoError(t, err)
	cfg := sim.DefaultConfig()
	cfg.TickInterval = 0
	cfg.MaxTicks = 80
	clock, err := sim.New(cfg, sc, engine, st, nil)
	require.NoError(t, err)

	metrics, err := clock.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, db.FinishRun(ctx, run.ID, metrics.Ticks, metrics))

	l := st.Ledger()
	assert.Equal(t, uint64(80), l.Tick)
	assert.Equal(t, 0, l.RecordFaults)
	assert.Equal(t, metrics.Discovered, l.Discoveries)
	assert.Equal(t, 5-metrics.Decommissioned, l.Robots)

	stored, err := db.Deliveries(ctx, run.ID)
	require.NoError(t, err)
	for k, v := range l.Delivered {
		assert.Equal(t, v, stored[k], "delivered %v", k)
	}

	last, err := db.Batch(ctx, run.ID, 80)
	require.NoError(t, err)
	assert.Equal(t, uint64(80), last.Tick)
}
