// Package station is the default home base: it keeps the ledger of what the
// swarm delivers and discovers and decides the robot roster.
package station

import (
	"context"
	"log/slog"
	"sync"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

// Config controls the roster policy.
type Config struct {
	// Robots in the initial roster, all placed on the station.
	Robots int `yaml:"robots" json:"robots"`

	// Types cycled through when creating robots; empty means every type.
	Types []core.RobotType `yaml:"types" json:"types"`

	// Remove robots that run out of energy in the field.
	DecommissionStranded bool `yaml:"decommission_stranded" json:"decommission_stranded"`

	// Delivered energy units that buy one more robot; zero disables building.
	RobotCost int `yaml:"robot_cost" json:"robot_cost"`

	// Upper bound on the roster when building; zero means unbounded.
	MaxRobots int `yaml:"max_robots" json:"max_robots"`
}

// DefaultConfig returns the stock roster: five robots cycling the types.
func DefaultConfig() Config {
	return Config{
		Robots:               5,
		DecommissionStranded: true,
	}
}

// Recorder persists batches. *store.Store implements it.
type Recorder interface {
	RecordBatch(ctx context.Context, runID string, b sim.Batch) error
}

// Ledger is a copy of the station's running totals.
type Ledger struct {
	Tick           uint64                    `json:"tick"`
	Delivered      map[core.ResourceKind]int `json:"delivered"`
	Collected      map[core.ResourceKind]int `json:"collected"`
	Discoveries    int                       `json:"discoveries"`
	Robots         int                       `json:"robots"`
	Built          int                       `json:"built"`
	Decommissioned int                       `json:"decommissioned"`
	RecordFaults   int                       `json:"record_faults"`
}

// Station implements sim.Station.
type Station struct {
	cfg Config
	pos core.Position
	log *slog.Logger

	mu       sync.Mutex
	nextType int
	credit   int
	pending  map[core.RobotID]bool // decommissions requested, not yet applied
	ledger   Ledger

	recorder Recorder
	runID    string
}

// New creates a station at pos.
func New(pos core.Position, cfg Config, logger *slog.Logger) *Station {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Types) == 0 {
		cfg.Types = core.AllRobotTypes()
	}
	return &Station{
		cfg:     cfg,
		pos:     pos,
		log:     logger,
		pending: make(map[core.RobotID]bool),
		ledger: Ledger{
			Delivered: make(map[core.ResourceKind]int),
			Collected: make(map[core.ResourceKind]int),
		},
	}
}

// SetRecorder makes the station persist every batch under runID.
func (s *Station) SetRecorder(rec Recorder, runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
	s.runID = runID
}

// Pos returns the station position.
func (s *Station) Pos() core.Position {
	return s.pos
}

// InitialRoster creates the configured robots on the station cell.
func (s *Station) InitialRoster() []*core.Robot {
	s.mu.Lock()
	defer s.mu.Unlock()
	robots := make([]*core.Robot, 0, s.cfg.Robots)
	for i := 0; i < s.cfg.Robots; i++ {
		robots = append(robots, s.build(core.RobotID(i+1)))
	}
	return robots
}

// build creates the next robot in the type cycle with the given ID; 0 lets
// the clock number it on arrival. Caller holds mu.
func (s *Station) build(id core.RobotID) *core.Robot {
	typ := s.cfg.Types[s.nextType%len(s.cfg.Types)]
	s.nextType++
	return core.NewRobot(id, typ, s.pos)
}

// Sync folds the batch into the ledger and answers with roster changes.
func (s *Station) Sync(ctx context.Context, b sim.Batch) (sim.Directives, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &s.ledger
	l.Tick = b.Tick
	l.Discoveries += len(b.Discovered)

	var dir sim.Directives
	for _, e := range b.Events {
		switch e.Kind {
		case sim.EventSpawned:
			l.Robots++
		case sim.EventDecommissioned:
			l.Robots--
			l.Decommissioned++
			delete(s.pending, e.Robot)
		case sim.EventCollected:
			l.Collected[e.Resource] += e.Amount
		case sim.EventDelivered:
			l.Delivered[e.Resource] += e.Amount
			if e.Resource == core.Energy {
				s.credit += e.Amount
			}
		case sim.EventStranded:
			if s.cfg.DecommissionStranded && !s.pending[e.Robot] {
				s.pending[e.Robot] = true
				dir.Decommission = append(dir.Decommission, e.Robot)
				s.log.Info("decommissioning stranded robot", "tick", b.Tick, "robot", e.Robot, "pos", e.Pos)
			}
		}
	}

	if s.cfg.RobotCost > 0 {
		roster := l.Robots - len(s.pending) + len(dir.Spawn)
		for s.credit >= s.cfg.RobotCost && (s.cfg.MaxRobots <= 0 || roster < s.cfg.MaxRobots) {
			s.credit -= s.cfg.RobotCost
			// Robots join the roster through other paths too (viewer
			// commands), so the clock numbers them.
			r := s.build(0)
			dir.Spawn = append(dir.Spawn, r)
			roster++
			l.Built++
			s.log.Info("building robot", "tick", b.Tick, "type", r.Type)
		}
	}

	if s.recorder != nil {
		if err := s.recorder.RecordBatch(ctx, s.runID, b); err != nil {
			l.RecordFaults++
			s.log.Warn("record batch failed", "tick", b.Tick, "error", err)
		}
	}
	return dir, nil
}

// Ledger returns a copy of the running totals.
func (s *Station) Ledger() Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger
	l.Delivered = make(map[core.ResourceKind]int, len(s.ledger.Delivered))
	for k, v := range s.ledger.Delivered {
		l.Delivered[k] = v
	}
	l.Collected = make(map[core.ResourceKind]int, len(s.ledger.Collected))
	for k, v := range s.ledger.Collected {
		l.Collected[k] = v
	}
	return l
}
