// Package sim drives the swarm in discrete ticks.
//
// Each tick runs four phases:
//   - roster: spawns, decommissions and terrain edits queued since the last tick
//   - decision: one goroutine per active robot against the frozen world
//   - mutation: decisions applied one robot at a time in ascending ID order
//   - sync: the tick's batch is pushed to the Station
//
// A snapshot is published after every tick.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elektrokombinacija/nova-swarm/internal/behavior"
	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// ErrInvalidTransition is returned for state changes the clock does not allow.
var ErrInvalidTransition = errors.New("invalid clock transition")

// State is the clock lifecycle.
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

// Config configures the simulation parameters.
type Config struct {
	// Wall time between ticks; zero ticks as fast as possible.
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`

	// Stop after this many ticks; zero runs until stopped.
	MaxTicks uint64 `yaml:"max_ticks" json:"max_ticks"`

	// Energy restored per tick to a robot docked at the station.
	RechargePerTick int `yaml:"recharge_per_tick" json:"recharge_per_tick"`

	// Robots within this Chebyshev distance are passed to a decision as nearby.
	NearbyRadius int `yaml:"nearby_radius" json:"nearby_radius"`

	// Seed for fallback target selection; 0 uses the scenario seed.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultConfig returns default simulation configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:    100 * time.Millisecond,
		RechargePerTick: 25,
		NearbyRadius:    6,
	}
}

// Metrics collects counters during a run.
type Metrics struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Ticks     uint64    `json:"ticks"`

	Decisions     int     `json:"decisions"`
	IdleDecisions int     `json:"idle_decisions"`
	AvgDecisionMs float64 `json:"avg_decision_ms"`

	Moves       int `json:"moves"`
	Collected   int `json:"collected"`
	Unavailable int `json:"unavailable"`
	Delivered   int `json:"delivered"`
	Discovered  int `json:"discovered"`
	Stranded    int `json:"stranded"`

	Spawned        int `json:"spawned"`
	Decommissioned int `json:"decommissioned"`
	Rejected       int `json:"rejected"` // invalid spawn directives

	SyncFaults int `json:"sync_faults"`
}

// Decider picks a task for one robot. *behavior.Engine implements it.
type Decider interface {
	Decide(r *core.Robot, w behavior.World, nearby []*core.Robot) behavior.Decision
	Profile(t core.RobotType) (behavior.Profile, bool)
}

// TerrainEdit changes one cell at the next tick boundary.
type TerrainEdit struct {
	Pos     core.Position
	Terrain core.TerrainType
}

// Clock is the simulation context: world, roster and tick state. Several
// clocks may run side by side; they share nothing.
type Clock struct {
	cfg     Config
	world   *core.Map
	station core.Position
	decider Decider
	sink    Station
	log     *slog.Logger

	// tickMu serializes ticks; robots and world are only touched under it.
	tickMu sync.Mutex
	robots []*core.Robot // ascending ID
	lastID core.RobotID  // highest ID ever admitted; IDs are not reused
	carry  batchBuilder  // changes made outside a tick, reported with the next one

	mu             sync.Mutex
	state          State
	looping        bool
	stopRequested  bool
	tick           uint64
	pendingSpawn   []*core.Robot
	pendingRemove  []core.RobotID
	pendingTerrain []TerrainEdit
	metrics        Metrics
	decisionTime   time.Duration

	signal chan struct{}

	snapshot atomic.Pointer[Snapshot]
	subsMu   sync.Mutex
	subs     map[chan *Snapshot]struct{}
}

// New creates a clock in the Idle state. The scenario's map and robots are
// owned by the clock from here on.
func New(cfg Config, sc *core.Scenario, decider Decider, station Station, logger *slog.Logger) (*Clock, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if decider == nil {
		return nil, errors.New("sim: nil decider")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Seed == 0 {
		cfg.Seed = sc.Seed
	}
	c := &Clock{
		cfg:     cfg,
		world:   sc.Map,
		station: sc.Station,
		decider: decider,
		sink:    station,
		log:     logger,
		signal:  make(chan struct{}, 1),
		subs:    make(map[chan *Snapshot]struct{}),
	}

	robots := append([]*core.Robot(nil), sc.Robots...)
	sort.Slice(robots, func(i, j int) bool { return robots[i].ID < robots[j].ID })
	for _, r := range robots {
		c.admit(r, &c.carry, 0)
	}
	c.publish(0, nil)
	return c, nil
}

// State returns the current lifecycle state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tick returns the number of completed ticks.
func (c *Clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Run ticks until stopped, cancelled or MaxTicks is reached, then moves to
// Stopped. A cancelled context is reported as its error; the in-flight tick
// still completes first.
func (c *Clock) Run(ctx context.Context) (*Metrics, error) {
	c.mu.Lock()
	if c.looping || (c.state != Idle && c.state != Paused) {
		st := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("run from %v: %w", st, ErrInvalidTransition)
	}
	c.looping = true
	c.state = Running
	c.metrics.StartTime = time.Now()
	c.mu.Unlock()
	c.log.Info("simulation started", "robots", len(c.Snapshot().Robots), "interval", c.cfg.TickInterval)

	var tickC <-chan time.Time
	if c.cfg.TickInterval > 0 {
		ticker := time.NewTicker(c.cfg.TickInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	var runErr error
	for {
		c.mu.Lock()
		stop, paused := c.stopRequested, c.state == Paused
		done := c.cfg.MaxTicks > 0 && c.tick >= c.cfg.MaxTicks
		c.mu.Unlock()
		if stop || done {
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if paused {
			select {
			case <-ctx.Done():
			case <-c.signal:
			}
			continue
		}
		if tickC != nil {
			select {
			case <-ctx.Done():
				continue
			case <-c.signal:
				continue
			case <-tickC:
			}
		}

		c.step(context.WithoutCancel(ctx))
	}

	c.mu.Lock()
	c.state = Stopped
	c.looping = false
	c.metrics.EndTime = time.Now()
	m := c.metrics
	tick := c.tick
	c.mu.Unlock()

	c.republishState()
	c.log.Info("simulation stopped", "ticks", tick, "delivered", m.Delivered, "sync_faults", m.SyncFaults)
	return &m, runErr
}

// Step runs exactly one tick. Allowed while Idle or Paused.
func (c *Clock) Step(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st != Idle && st != Paused {
		return nil, fmt.Errorf("step while %v: %w", st, ErrInvalidTransition)
	}
	return c.step(ctx), nil
}

// Pause suspends a running clock at the next tick boundary.
func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return fmt.Errorf("pause while %v: %w", c.state, ErrInvalidTransition)
	}
	c.state = Paused
	c.wake()
	return nil
}

// Resume continues a paused clock.
func (c *Clock) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Paused || !c.looping {
		return fmt.Errorf("resume while %v: %w", c.state, ErrInvalidTransition)
	}
	c.state = Running
	c.wake()
	return nil
}

// Stop halts the clock after the in-flight tick. Stopping twice is a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return
	}
	if !c.looping {
		c.state = Stopped
		return
	}
	c.stopRequested = true
	c.wake()
}

func (c *Clock) wake() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// AddRobot queues r to join at the next tick boundary. A robot with ID 0 is
// given the next unused ID when it joins.
func (c *Clock) AddRobot(r *core.Robot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingSpawn = append(c.pendingSpawn, r)
}

// RemoveRobot queues robot id for removal at the next tick boundary.
func (c *Clock) RemoveRobot(id core.RobotID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingRemove = append(c.pendingRemove, id)
}

// EditTerrain queues a terrain change for the next tick boundary.
func (c *Clock) EditTerrain(p core.Position, t core.TerrainType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingTerrain = append(c.pendingTerrain, TerrainEdit{Pos: p, Terrain: t})
}

// Snapshot returns the latest published snapshot.
func (c *Clock) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Subscribe returns a channel that always holds the most recent snapshot
// the subscriber has not read yet, and a function to unsubscribe.
func (c *Clock) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	c.subsMu.Lock()
	c.subs[ch] = struct{}{}
	c.subsMu.Unlock()
	if s := c.snapshot.Load(); s != nil {
		sendLatest(ch, s)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, ch)
			c.subsMu.Unlock()
		})
	}
}

// Metrics returns current simulation metrics.
func (c *Clock) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// ExportMetrics writes metrics to a JSON file.
func (c *Clock) ExportMetrics(path string) error {
	metrics := c.Metrics()

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Result is the final output of a simulation run.
type Result struct {
	Config   Config    `json:"config"`
	Metrics  Metrics   `json:"metrics"`
	Final    *Snapshot `json:"final"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Duration string    `json:"duration"`
}

// RunSimulation is a convenience function to run a clock to completion.
func RunSimulation(ctx context.Context, c *Clock) (*Result, error) {
	start := time.Now()
	metrics, err := c.Run(ctx)

	result := &Result{
		Config:   c.cfg,
		Final:    c.Snapshot(),
		Success:  err == nil,
		Duration: time.Since(start).String(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	if metrics != nil {
		result.Metrics = *metrics
	}
	return result, err
}
