// Package config loads the YAML run configuration.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/nova-swarm/internal/algo"
	"github.com/elektrokombinacija/nova-swarm/internal/behavior"
	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/station"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Config is the full run configuration.
type Config struct {
	World    WorldConfig                `yaml:"world" json:"world"`
	Sim      sim.Config                 `yaml:"sim" json:"sim"`
	Planner  PlannerConfig              `yaml:"planner" json:"planner"`
	Station  station.Config             `yaml:"station" json:"station"`
	Store    StoreConfig                `yaml:"store" json:"store"`
	Observer ObserverConfig             `yaml:"observer" json:"observer"`
	Log      LogConfig                  `yaml:"log" json:"log"`
	Profiles map[string]ProfileOverride `yaml:"profiles" json:"profiles,omitempty"`
}

// WorldConfig describes the map: generated from a seed or loaded from file.
type WorldConfig struct {
	Width   int            `yaml:"width" json:"width"`
	Height  int            `yaml:"height" json:"height"`
	Seed    int64          `yaml:"seed" json:"seed"`
	MapFile string         `yaml:"map_file" json:"map_file,omitempty"`
	Station *core.Position `yaml:"station" json:"station,omitempty"` // nil = map centre
	Gen     core.GenParams `yaml:"gen" json:"gen"`
}

type PlannerConfig struct {
	MaxExpansions int `yaml:"max_expansions" json:"max_expansions"`
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`
}

// StoreConfig enables run recording when Path is set.
type StoreConfig struct {
	Path string `yaml:"path" json:"path,omitempty"`
}

// ObserverConfig enables the websocket observer when Addr is set.
type ObserverConfig struct {
	Addr string `yaml:"addr" json:"addr,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ProfileOverride replaces the set fields of a stock profile.
type ProfileOverride struct {
	EnergyCost      *int                `yaml:"energy_cost" json:"energy_cost,omitempty"`
	ReturnThreshold *int                `yaml:"return_threshold" json:"return_threshold,omitempty"`
	Preferred       []core.ResourceKind `yaml:"preferred" json:"preferred,omitempty"`
	SearchRadius    *int                `yaml:"search_radius" json:"search_radius,omitempty"`
	FallbackRadius  *int                `yaml:"fallback_radius" json:"fallback_radius,omitempty"`
	SensorRadius    *int                `yaml:"sensor_radius" json:"sensor_radius,omitempty"`
	AvoidOccupied   *bool               `yaml:"avoid_occupied" json:"avoid_occupied,omitempty"`
	Rules           []RuleConfig        `yaml:"rules" json:"rules,omitempty"`
}

// RuleConfig is one configured rule; When is an expr condition.
type RuleConfig struct {
	Name     string `yaml:"name" json:"name"`
	Kind     string `yaml:"kind" json:"kind"`
	Priority int    `yaml:"priority" json:"priority"`
	When     string `yaml:"when" json:"when,omitempty"`
}

// Default returns the stock configuration: a 10x10 map from seed 42 with
// five robots.
func Default() Config {
	return Config{
		World: WorldConfig{
			Width:  10,
			Height: 10,
			Seed:   42,
			Gen:    core.DefaultGenParams(),
		},
		Sim: sim.DefaultConfig(),
		Planner: PlannerConfig{
			MaxExpansions: algo.DefaultMaxExpansions,
			MaxCandidates: behavior.DefaultMaxCandidates,
		},
		Station: station.DefaultConfig(),
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. The file is validated against the
// embedded schema before it is decoded.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(raw)
}

// Parse decodes YAML bytes over the defaults.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := validate(raw); err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints the schema cannot express.
func (c Config) Validate() error {
	w := c.World
	if w.MapFile == "" && (w.Width <= 0 || w.Height <= 0) {
		return fmt.Errorf("config: world size %dx%d", w.Width, w.Height)
	}
	if w.Station != nil && w.MapFile == "" && (w.Station.X >= w.Width || w.Station.Y >= w.Height) {
		return fmt.Errorf("config: station %v outside %dx%d map", *w.Station, w.Width, w.Height)
	}
	if _, err := c.Engine(nil); err != nil {
		return err
	}
	return nil
}

// Engine builds the behavior engine with the configured planner and
// profiles.
func (c Config) Engine(logger *slog.Logger) (*behavior.Engine, error) {
	profiles, err := c.BehaviorProfiles()
	if err != nil {
		return nil, err
	}
	e, err := behavior.NewEngine(profiles, algo.NewAStar(c.Planner.MaxExpansions), logger)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.Planner.MaxCandidates > 0 {
		e.MaxCandidates = c.Planner.MaxCandidates
	}
	return e, nil
}

// Level parses the configured log level.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// BehaviorProfiles returns the stock profiles with overrides applied.
func (c Config) BehaviorProfiles() (map[core.RobotType]behavior.Profile, error) {
	profiles := behavior.DefaultProfiles()
	for name, o := range c.Profiles {
		t, err := core.ParseRobotType(name)
		if err != nil {
			return nil, fmt.Errorf("config: profiles: %w", err)
		}
		p := profiles[t]
		if err := o.apply(&p); err != nil {
			return nil, fmt.Errorf("config: profile %s: %w", name, err)
		}
		profiles[t] = p
	}
	return profiles, nil
}

func (o ProfileOverride) apply(p *behavior.Profile) error {
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&p.EnergyCost, o.EnergyCost)
	setInt(&p.ReturnThreshold, o.ReturnThreshold)
	setInt(&p.SearchRadius, o.SearchRadius)
	setInt(&p.FallbackRadius, o.FallbackRadius)
	setInt(&p.SensorRadius, o.SensorRadius)
	if o.AvoidOccupied != nil {
		p.AvoidOccupied = *o.AvoidOccupied
	}
	if o.Preferred != nil {
		p.Preferred = o.Preferred
	}
	if len(o.Rules) > 0 {
		rules := make([]behavior.Rule, 0, len(o.Rules))
		for _, rc := range o.Rules {
			kind, err := behavior.ParseRuleKind(rc.Kind)
			if err != nil {
				return err
			}
			rules = append(rules, behavior.Rule{
				Name:         rc.Name,
				Kind:         kind,
				Priority:     rc.Priority,
				ConditionSrc: rc.When,
			})
		}
		p.Rules = rules
	}
	return p.Validate()
}

// Build loads or generates the map and resolves the station cell, which is
// forced to plain terrain.
func (w WorldConfig) Build() (*core.Map, core.Position, int64, error) {
	var m *core.Map
	seed := w.Seed
	if w.MapFile != "" {
		loaded, fileSeed, err := core.LoadMap(w.MapFile)
		if err != nil {
			return nil, core.Position{}, 0, fmt.Errorf("load map: %w", err)
		}
		m, seed = loaded, fileSeed
	} else {
		m = core.GenerateMap(w.Width, w.Height, w.Seed, w.Gen)
	}

	pos := core.Position{X: m.Width / 2, Y: m.Height / 2}
	if w.Station != nil {
		pos = *w.Station
	}
	if !m.InBounds(pos) {
		return nil, core.Position{}, 0, fmt.Errorf("station %v outside %dx%d map", pos, m.Width, m.Height)
	}
	m.SetTerrain(pos, core.Plain)
	return m, pos, seed, nil
}
