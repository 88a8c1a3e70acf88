package behavior

import (
	"sync"
	"testing"

	"github.com/elektrokombinacija/nova-swarm/internal/algo"
	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultProfiles(), algo.NewAStar(algo.DefaultMaxExpansions), nil)
	require.NoError(t, err)
	return e
}

func world(m *core.Map) World {
	return World{Map: m, Station: core.Position{X: 0, Y: 0}, Seed: 42}
}

func discoverAll(m *core.Map) {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Discover(core.Position{X: x, Y: y})
		}
	}
}

// Harvester below its threshold returns even with a resource underfoot.
func TestHarvesterLowEnergyReturns(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(10, 10)
	m.PlaceResource(core.Position{X: 3, Y: 3}, core.Energy, 10)
	m.PlaceResource(core.Position{X: 4, Y: 3}, core.Energy, 10)

	r := core.NewRobot(1, core.Harvester, core.Position{X: 3, Y: 3})
	r.Energy = 14

	d := e.Decide(r, world(m), nil)
	assert.Equal(t, core.TaskReturnToStation, d.Task.Kind)
	assert.Equal(t, core.Position{X: 0, Y: 0}, d.Task.Target)
	assert.Equal(t, 10, d.Task.Priority)
	assert.Equal(t, core.Path{{X: 2, Y: 2}, {X: 1, Y: 1}, {X: 0, Y: 0}}, d.Path)
}

func TestCarryingReturns(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(10, 10)
	m.PlaceResource(core.Position{X: 3, Y: 4}, core.Mineral, 10)

	r := core.NewRobot(1, core.Harvester, core.Position{X: 3, Y: 3})
	require.NoError(t, r.Load(core.Mineral))

	d := e.Decide(r, world(m), nil)
	assert.Equal(t, core.TaskReturnToStation, d.Task.Kind)
}

func TestHarvesterSeeksNearestPreferred(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(10, 10)
	m.PlaceResource(core.Position{X: 5, Y: 5}, core.ScientificInterest, 10)
	m.PlaceResource(core.Position{X: 4, Y: 6}, core.Mineral, 10)
	m.PlaceResource(core.Position{X: 8, Y: 8}, core.Energy, 10)

	r := core.NewRobot(1, core.Harvester, core.Position{X: 4, Y: 4})
	d := e.Decide(r, world(m), nil)
	assert.Equal(t, core.TaskHarvest, d.Task.Kind)
	assert.Equal(t, core.Position{X: 4, Y: 6}, d.Task.Target)
	assert.Equal(t, 8, d.Task.Priority)
}

func TestScientistSeeksScientificInterest(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(12, 12)
	m.PlaceResource(core.Position{X: 5, Y: 5}, core.Energy, 10)
	m.PlaceResource(core.Position{X: 9, Y: 9}, core.ScientificInterest, 3)

	r := core.NewRobot(1, core.Scientist, core.Position{X: 4, Y: 4})
	d := e.Decide(r, world(m), nil)
	assert.Equal(t, core.TaskAnalyze, d.Task.Kind)
	assert.Equal(t, core.Position{X: 9, Y: 9}, d.Task.Target)
}

// Among equally distant unexplored cells the smallest (y, x) wins.
func TestExplorerTieBreak(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(7, 7)
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			p := core.Position{X: x, Y: y}
			if p != (core.Position{X: 5, Y: 3}) && p != (core.Position{X: 1, Y: 3}) && p != (core.Position{X: 3, Y: 5}) {
				m.Discover(p)
			}
		}
	}

	r := core.NewRobot(1, core.Explorer, core.Position{X: 3, Y: 3})
	d := e.Decide(r, world(m), nil)
	assert.Equal(t, core.TaskExplore, d.Task.Kind)
	assert.Equal(t, core.Position{X: 1, Y: 3}, d.Task.Target)
	assert.Equal(t, 7, d.Task.Priority)

	// Explorers leave cells other robots stand on.
	other := core.NewRobot(2, core.Harvester, core.Position{X: 1, Y: 3})
	d = e.Decide(r, world(m), []*core.Robot{other})
	assert.Equal(t, core.Position{X: 5, Y: 3}, d.Task.Target)
}

func TestFallbackWhenNothingInRadius(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(20, 20)
	r := core.NewRobot(3, core.Harvester, core.Position{X: 10, Y: 10})
	w := world(m)
	w.Tick = 7

	d := e.Decide(r, w, nil)
	assert.Equal(t, core.TaskExplore, d.Task.Kind)
	assert.Equal(t, 6, d.Task.Priority)
	assert.LessOrEqual(t, r.Pos.Chebyshev(d.Task.Target), 2)
	assert.NotEqual(t, r.Pos, d.Task.Target)

	again := e.Decide(r, w, nil)
	assert.Equal(t, d, again, "fallback must be seed-deterministic")
}

func TestIdleOnFullyDiscoveredMap(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(6, 6)
	discoverAll(m)

	for _, typ := range core.AllRobotTypes() {
		r := core.NewRobot(1, typ, core.Position{X: 3, Y: 3})
		d := e.Decide(r, world(m), nil)
		assert.True(t, d.Task.IsIdle(), "%v: got %v", typ, d.Task)
		assert.True(t, d.Task.Valid(m))
	}
}

// An unreachable resource is recovered by the fallback rule.
func TestUnreachableTargetFallsBack(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(10, 10)
	site := core.Position{X: 6, Y: 6}
	m.PlaceResource(site, core.Energy, 10)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx != 0 || dy != 0 {
				m.SetTerrain(site.Add(dx, dy), core.Crater)
			}
		}
	}

	r := core.NewRobot(1, core.Harvester, core.Position{X: 3, Y: 3})
	d := e.Decide(r, world(m), nil)
	assert.Equal(t, core.TaskExplore, d.Task.Kind)
	assert.Equal(t, "fallback-explore", d.Task.Rule)
}

func TestCachedPathReusedUntilTerrainChanges(t *testing.T) {
	e := newTestEngine(t)
	m := core.NewMap(5, 5)
	target := core.Position{X: 2, Y: 0}
	m.PlaceResource(target, core.Mineral, 4)

	r := core.NewRobot(1, core.Harvester, core.Position{X: 0, Y: 0})
	detour := core.Path{{X: 1, Y: 1}, {X: 2, Y: 0}}
	r.SetPath(target, detour, m.Revision())

	d := e.Decide(r, world(m), nil)
	assert.Equal(t, detour, d.Path)

	m.SetTerrain(core.Position{X: 4, Y: 4}, core.Hill)
	d = e.Decide(r, world(m), nil)
	assert.Equal(t, core.Path{{X: 1, Y: 0}, {X: 2, Y: 0}}, d.Path)
}

func TestCustomRuleCondition(t *testing.T) {
	profiles := DefaultProfiles()
	p := profiles[core.Explorer]
	p.Rules = []Rule{
		{Name: "late-return", Kind: RuleReturn, Priority: 9, ConditionSrc: "Tick >= 100 && !AtStation"},
		{Name: "acquire", Kind: RuleAcquire, Priority: 7},
	}
	profiles[core.Explorer] = p
	e, err := NewEngine(profiles, algo.NewAStar(0), nil)
	require.NoError(t, err)

	m := core.NewMap(8, 8)
	r := core.NewRobot(1, core.Explorer, core.Position{X: 4, Y: 4})
	w := world(m)

	w.Tick = 99
	assert.Equal(t, core.TaskExplore, e.Decide(r, w, nil).Task.Kind)
	w.Tick = 100
	d := e.Decide(r, w, nil)
	assert.Equal(t, core.TaskReturnToStation, d.Task.Kind)
	assert.Equal(t, "late-return", d.Task.Rule)
}

func TestBadRuleConditionRejected(t *testing.T) {
	profiles := DefaultProfiles()
	p := profiles[core.Harvester]
	p.Rules = []Rule{{Name: "broken", Kind: RuleReturn, Priority: 1, ConditionSrc: "Energy +"}}
	profiles[core.Harvester] = p
	_, err := NewEngine(profiles, algo.NewAStar(0), nil)
	assert.Error(t, err)

	p.Rules = []Rule{{Name: "not-bool", Kind: RuleReturn, Priority: 1, ConditionSrc: "Energy"}}
	profiles[core.Harvester] = p
	_, err = NewEngine(profiles, algo.NewAStar(0), nil)
	assert.Error(t, err)
}

// Every reachable state yields exactly one well-formed task.
func TestDecideTotality(t *testing.T) {
	e := newTestEngine(t)
	params := core.DefaultGenParams()
	params.CraterChance = 0.15
	m := core.GenerateMap(15, 15, 9, params)
	m.SetTerrain(core.Position{}, core.Plain)

	for i := 0; i < 200; i++ {
		h := core.Hash2(9, i, 1)
		pos := core.Position{X: int(h % 15), Y: int((h >> 8) % 15)}
		if !m.Passable(pos) {
			continue
		}
		r := core.NewRobot(core.RobotID(i), core.AllRobotTypes()[i%3], pos)
		r.Energy = int((h >> 16) % 101)
		if i%5 == 0 {
			_ = r.Load(core.Mineral)
		}
		if i%7 == 0 {
			m.Discover(pos)
		}
		w := world(m)
		w.Tick = uint64(i)

		d := e.Decide(r, w, nil)
		assert.Equal(t, r.ID, d.Robot)
		assert.True(t, d.Task.Valid(m), "invalid task %v", d.Task)
		if !d.Task.IsIdle() && r.Pos != d.Task.Target {
			last, ok := d.Path.Last()
			assert.True(t, ok, "non-idle task without route: %v", d.Task)
			assert.Equal(t, d.Task.Target, last)
		}
	}
}

func TestDecideConcurrentDeterministic(t *testing.T) {
	e := newTestEngine(t)
	m := core.GenerateMap(20, 20, 3, core.DefaultGenParams())
	var robots []*core.Robot
	for i := 0; i < 12; i++ {
		pos := core.Position{X: i, Y: i % 7}
		m.SetTerrain(pos, core.Plain)
		robots = append(robots, core.NewRobot(core.RobotID(i), core.AllRobotTypes()[i%3], pos))
	}
	m.SetTerrain(core.Position{}, core.Plain)
	w := world(m)

	want := make([]Decision, len(robots))
	for i, r := range robots {
		want[i] = e.Decide(r, w, robots)
	}

	got := make([]Decision, len(robots))
	var wg sync.WaitGroup
	for i, r := range robots {
		wg.Add(1)
		go func(i int, r *core.Robot) {
			defer wg.Done()
			got[i] = e.Decide(r, w, robots)
		}(i, r)
	}
	wg.Wait()
	assert.Equal(t, want, got)
}
