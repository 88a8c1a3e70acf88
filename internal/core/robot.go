package core

import "errors"

// ErrAlreadyCarrying is returned when a robot holding a unit tries to load another.
var ErrAlreadyCarrying = errors.New("robot already carrying a unit")

// RobotID is a unique robot identifier. Mutation order follows ascending IDs.
type RobotID int

// DefaultEnergyCapacity is the battery size robots are spawned with.
const DefaultEnergyCapacity = 100

// Payload is the single resource unit a robot may carry.
type Payload struct {
	Kind   ResourceKind `json:"kind"`
	Amount int          `json:"amount"`
}

// Robot represents an agent in the swarm.
type Robot struct {
	ID       RobotID
	Type     RobotType
	Pos      Position
	Energy   int // never negative
	Capacity int // max energy
	Carrying *Payload

	// Task chosen by the latest decision.
	Task Task

	// Cached route to PathGoal, valid while the map terrain revision
	// still equals PathRevision.
	Path         Path
	PathGoal     Position
	PathRevision uint64

	// Stranded is set once energy reaches zero away from the station.
	Stranded bool
}

// NewRobot creates a fully charged robot.
func NewRobot(id RobotID, typ RobotType, pos Position) *Robot {
	return &Robot{
		ID:       id,
		Type:     typ,
		Pos:      pos,
		Energy:   DefaultEnergyCapacity,
		Capacity: DefaultEnergyCapacity,
		Task:     IdleTask(pos),
	}
}

// ConsumeEnergy reduces energy, clamping at zero.
func (r *Robot) ConsumeEnergy(n int) {
	r.Energy -= n
	if r.Energy < 0 {
		r.Energy = 0
	}
}

// Recharge adds up to n energy without exceeding capacity. Returns the amount added.
func (r *Robot) Recharge(n int) int {
	if n <= 0 {
		return 0
	}
	room := r.Capacity - r.Energy
	if n > room {
		n = room
	}
	if n < 0 {
		n = 0
	}
	r.Energy += n
	if r.Energy > 0 {
		r.Stranded = false
	}
	return n
}

// IsCarrying reports whether the robot holds a unit.
func (r *Robot) IsCarrying() bool {
	return r.Carrying != nil
}

// Load picks up one unit of kind.
func (r *Robot) Load(kind ResourceKind) error {
	if r.Carrying != nil {
		return ErrAlreadyCarrying
	}
	r.Carrying = &Payload{Kind: kind, Amount: 1}
	return nil
}

// Unload drops the carried unit and returns it (nil when empty).
func (r *Robot) Unload() *Payload {
	p := r.Carrying
	r.Carrying = nil
	return p
}

// SetPath caches a route to goal computed at terrain revision rev.
func (r *Robot) SetPath(goal Position, path Path, rev uint64) {
	r.Path = path
	r.PathGoal = goal
	r.PathRevision = rev
}

// InvalidatePath drops the cached route.
func (r *Robot) InvalidatePath() {
	r.Path = nil
}

// CachedPath returns the cached route if it still leads to goal, was computed
// against terrain revision rev and starts next to the robot.
func (r *Robot) CachedPath(goal Position, rev uint64) (Path, bool) {
	if len(r.Path) == 0 || r.PathGoal != goal || r.PathRevision != rev {
		return nil, false
	}
	if !r.Pos.Adjacent(r.Path[0]) {
		return nil, false
	}
	return r.Path, true
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (r *Robot) Clone() *Robot {
	c := *r
	c.Path = r.Path.Clone()
	if r.Carrying != nil {
		p := *r.Carrying
		c.Carrying = &p
	}
	return &c
}
