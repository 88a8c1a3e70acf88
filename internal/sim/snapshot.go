package sim

import (
	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// Outcome is what a robot's mutation step did this tick.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeMoved
	OutcomeWorked
	OutcomeUnavailable
	OutcomeDocked
	OutcomeIdle
	OutcomeStranded
)

// RobotView is the read-only state of one robot in a snapshot.
type RobotView struct {
	ID       core.RobotID   `json:"id"`
	Type     core.RobotType `json:"type"`
	Pos      core.Position  `json:"pos"`
	Energy   int            `json:"energy"`
	Capacity int            `json:"capacity"`
	Carrying *core.Payload  `json:"carrying,omitempty"`
	Task     core.Task      `json:"task"`
	Path     core.Path      `json:"path,omitempty"`
	Stranded bool           `json:"stranded,omitempty"`
	Outcome  Outcome        `json:"outcome"`
}

// Snapshot is the world between two ticks. Snapshots are immutable once
// published and may be shared freely.
type Snapshot struct {
	Tick            uint64              `json:"tick"`
	State           State               `json:"state"`
	Width           int                 `json:"width"`
	Height          int                 `json:"height"`
	Station         core.Position       `json:"station"`
	TerrainRevision uint64              `json:"terrain_revision"`
	Terrain         []string            `json:"terrain"` // glyph rows
	Discovered      [][]bool            `json:"discovered"`
	DiscoveredCount int                 `json:"discovered_count"`
	Resources       []core.ResourceSite `json:"resources"`
	Robots          []RobotView         `json:"robots"`
	Events          []Event             `json:"events,omitempty"`
}

// Robot returns the view of robot id.
func (s *Snapshot) Robot(id core.RobotID) (RobotView, bool) {
	for _, r := range s.Robots {
		if r.ID == id {
			return r, true
		}
	}
	return RobotView{}, false
}

// TerrainAt decodes the terrain glyph at p.
func (s *Snapshot) TerrainAt(p core.Position) core.TerrainType {
	t, _ := core.TerrainFromGlyph(s.Terrain[p.Y][p.X])
	return t
}

// sendLatest delivers snap, dropping the oldest queued one if the
// subscriber is behind.
func sendLatest(ch chan *Snapshot, snap *Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
