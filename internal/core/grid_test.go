package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectDepletesSite(t *testing.T) {
	m := NewMap(4, 4)
	p := Position{X: 1, Y: 2}
	m.PlaceResource(p, Energy, 2)

	got, err := m.Collect(p, 1)
	require.NoError(t, err)
	assert.Equal(t, Resource{Kind: Energy, Amount: 1}, got)

	r, ok := m.Resource(p)
	assert.True(t, ok)
	assert.Equal(t, 1, r.Amount)

	_, err = m.Collect(p, 2)
	assert.True(t, errors.Is(err, ErrInsufficientResource), "want insufficient, got %v", err)

	_, err = m.Collect(p, 1)
	require.NoError(t, err)

	_, ok = m.Resource(p)
	assert.False(t, ok, "site should be removed once depleted")

	_, err = m.Collect(p, 1)
	assert.True(t, errors.Is(err, ErrResourceDepleted), "want depleted, got %v", err)
}

func TestOutOfBoundsPanics(t *testing.T) {
	m := NewMap(3, 3)
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		oob, ok := r.(*OutOfBoundsError)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, Position{X: 3, Y: 0}, oob.Pos)
	}()
	m.Cost(Position{X: 3, Y: 0})
}

func TestDiscoverMonotonic(t *testing.T) {
	m := NewMap(5, 5)
	assert.True(t, m.Discover(Position{X: 2, Y: 2}))
	assert.False(t, m.Discover(Position{X: 2, Y: 2}))

	fresh := m.DiscoverRadius(Position{X: 0, Y: 0}, 1)
	assert.Equal(t, []Position{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, fresh)
	assert.Equal(t, 5, m.DiscoveredCount())
	assert.False(t, m.FullyDiscovered())
}

func TestFullyDiscoveredIgnoresCraters(t *testing.T) {
	m := NewMap(2, 1)
	m.SetTerrain(Position{X: 1, Y: 0}, Crater)
	assert.Equal(t, []Position{{X: 0, Y: 0}}, m.Undiscovered())
	m.Discover(Position{X: 0, Y: 0})
	assert.True(t, m.FullyDiscovered())
	assert.Empty(t, m.Undiscovered())
}

func TestSetTerrainBumpsRevision(t *testing.T) {
	m := NewMap(3, 3)
	rev := m.Revision()
	m.SetTerrain(Position{X: 1, Y: 1}, Plain)
	assert.Equal(t, rev, m.Revision(), "no-op edit must not bump revision")
	m.SetTerrain(Position{X: 1, Y: 1}, Hill)
	assert.Equal(t, rev+1, m.Revision())
	assert.Equal(t, 2.0, m.Cost(Position{X: 1, Y: 1}))
}

func TestGenerateMapDeterministic(t *testing.T) {
	a := GenerateMap(20, 15, 42, DefaultGenParams())
	b := GenerateMap(20, 15, 42, DefaultGenParams())
	c := GenerateMap(20, 15, 43, DefaultGenParams())

	assert.Equal(t, a.TerrainRows(), b.TerrainRows())
	assert.Equal(t, a.Resources(), b.Resources())
	assert.NotEqual(t, a.TerrainRows(), c.TerrainRows())

	for _, s := range a.Resources() {
		assert.Greater(t, s.Amount, 0)
		assert.LessOrEqual(t, s.Amount, 100)
	}
}

func TestSaveLoadMap(t *testing.T) {
	m := GenerateMap(12, 9, 7, DefaultGenParams())
	m.Discover(Position{X: 3, Y: 4})
	m.PlaceResource(Position{X: 0, Y: 0}, Mineral, 17)

	for _, name := range []string{"map.json", "map.json.zst"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, SaveMap(path, m, 7))

		got, seed, err := LoadMap(path)
		require.NoError(t, err, name)
		assert.Equal(t, int64(7), seed)
		assert.Equal(t, m.TerrainRows(), got.TerrainRows(), name)
		assert.Equal(t, m.Resources(), got.Resources(), name)
		assert.Equal(t, m.DiscoveredRows(), got.DiscoveredRows(), name)
	}
}

func TestSaveMapReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.json.zst")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	m := GenerateMap(6, 4, 3, DefaultGenParams())
	require.NoError(t, SaveMap(path, m, 3))
	got, _, err := LoadMap(path)
	require.NoError(t, err)
	assert.Equal(t, m.TerrainRows(), got.TerrainRows())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind")

	missing := filepath.Join(dir, "nope", "map.json")
	assert.Error(t, SaveMap(missing, m, 3))
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err))
}

func TestScenarioValidate(t *testing.T) {
	m := NewMap(5, 5)
	m.SetTerrain(Position{X: 4, Y: 4}, Crater)
	s := NewScenario(m, Position{X: 0, Y: 0}, 1)
	s.Robots = []*Robot{NewRobot(1, Explorer, Position{X: 0, Y: 0})}
	require.NoError(t, s.Validate())

	s.Robots = append(s.Robots, NewRobot(1, Harvester, Position{X: 1, Y: 1}))
	assert.Error(t, s.Validate(), "duplicate ids")

	s.Robots = []*Robot{NewRobot(2, Harvester, Position{X: 4, Y: 4})}
	assert.Error(t, s.Validate(), "robot on crater")

	s.Robots = nil
	s.Station = Position{X: 9, Y: 0}
	assert.Error(t, s.Validate(), "station outside map")
}

func TestRobotEnergyClamp(t *testing.T) {
	r := NewRobot(1, Harvester, Position{})
	r.ConsumeEnergy(130)
	assert.Equal(t, 0, r.Energy)
	assert.Equal(t, 40, r.Recharge(40))
	assert.Equal(t, 60, r.Recharge(100))
	assert.Equal(t, r.Capacity, r.Energy)
}

func TestRobotCarriesOneUnit(t *testing.T) {
	r := NewRobot(1, Harvester, Position{})
	require.NoError(t, r.Load(Energy))
	assert.ErrorIs(t, r.Load(Mineral), ErrAlreadyCarrying)
	p := r.Unload()
	require.NotNil(t, p)
	assert.Equal(t, Energy, p.Kind)
	assert.False(t, r.IsCarrying())
}

func TestCachedPathInvalidation(t *testing.T) {
	r := NewRobot(1, Explorer, Position{X: 0, Y: 0})
	goal := Position{X: 2, Y: 2}
	r.SetPath(goal, Path{{1, 1}, {2, 2}}, 3)

	_, ok := r.CachedPath(goal, 3)
	assert.True(t, ok)
	_, ok = r.CachedPath(goal, 4)
	assert.False(t, ok, "terrain revision changed")
	_, ok = r.CachedPath(Position{X: 1, Y: 2}, 3)
	assert.False(t, ok, "goal changed")

	r.Pos = Position{X: 4, Y: 4}
	_, ok = r.CachedPath(goal, 3)
	assert.False(t, ok, "path no longer starts next to robot")
}
