package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.World.Width)
	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, 5, cfg.Station.Robots)
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Sim, cfg.Sim)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nova.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
world:
  width: 24
  height: 12
  seed: 7
  station: {x: 3, y: 4}
  gen:
    crater_chance: 0.1
sim:
  tick_interval: 250ms
  max_ticks: 500
  recharge_per_tick: 10
station:
  robots: 6
  types: [Harvester, Scientist]
log:
  level: debug
profiles:
  Harvester:
    return_threshold: 30
    preferred: [Mineral]
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.World.Width)
	assert.Equal(t, &core.Position{X: 3, Y: 4}, cfg.World.Station)
	assert.Equal(t, 0.1, cfg.World.Gen.CraterChance)
	assert.Equal(t, core.DefaultGenParams().Frequency, cfg.World.Gen.Frequency)
	assert.Equal(t, 250*time.Millisecond, cfg.Sim.TickInterval)
	assert.Equal(t, uint64(500), cfg.Sim.MaxTicks)
	assert.Equal(t, 6, cfg.Sim.NearbyRadius)
	assert.Equal(t, []core.RobotType{core.Harvester, core.Scientist}, cfg.Station.Types)

	profiles, err := cfg.BehaviorProfiles()
	require.NoError(t, err)
	h := profiles[core.Harvester]
	assert.Equal(t, 30, h.ReturnThreshold)
	assert.Equal(t, 3, h.EnergyCost)
	assert.Equal(t, []core.ResourceKind{core.Mineral}, h.Preferred)
	assert.Equal(t, 20, profiles[core.Explorer].ReturnThreshold)

	assert.Equal(t, "DEBUG", cfg.Level().String())
}

func TestSchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown section", "weather: {rain: true}\n"},
		{"negative size", "world: {width: -1}\n"},
		{"bad duration", "sim: {tick_interval: fast}\n"},
		{"unknown robot type", "profiles: {Drone: {energy_cost: 1}}\n"},
		{"unknown resource", "profiles: {Harvester: {preferred: [Gold]}}\n"},
		{"bad rule kind", "profiles: {Explorer: {rules: [{name: x, kind: dance, priority: 1}]}}\n"},
		{"bad log level", "log: {level: loud}\n"},
		{"station outside", "world: {width: 5, height: 5, station: {x: 9, y: 0}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRuleOverrideCompiles(t *testing.T) {
	cfg, err := Parse([]byte(`
profiles:
  Explorer:
    rules:
      - {name: home, kind: return, priority: 10, when: "Energy < 50"}
      - {name: scout, kind: acquire, priority: 5}
`))
	require.NoError(t, err)
	e, err := cfg.Engine(nil)
	require.NoError(t, err)
	p, ok := e.Profile(core.Explorer)
	require.True(t, ok)
	require.Len(t, p.Rules, 2)
	assert.Equal(t, "home", p.Rules[0].Name)

	_, err = Parse([]byte(`
profiles:
  Explorer:
    rules:
      - {name: broken, kind: return, priority: 1, when: "Energy <"}
`))
	assert.Error(t, err)
}

func TestBuildWorld(t *testing.T) {
	w := Default().World
	m, station, seed, err := w.Build()
	require.NoError(t, err)
	assert.Equal(t, core.Position{X: 5, Y: 5}, station)
	assert.Equal(t, core.Plain, m.Terrain(station))
	assert.Equal(t, int64(42), seed)

	path := filepath.Join(t.TempDir(), "map.json.zst")
	require.NoError(t, core.SaveMap(path, m, 99))
	w.MapFile = path
	w.Station = &core.Position{X: 1, Y: 1}
	loaded, station, seed, err := w.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(99), seed)
	assert.Equal(t, core.Position{X: 1, Y: 1}, station)
	assert.Equal(t, m.Width, loaded.Width)
}
