package sim

import (
	"context"
	"fmt"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// Station receives one Batch per tick and answers with roster changes. The
// clock calls the station; the station never calls back into the clock.
type Station interface {
	Sync(ctx context.Context, b Batch) (Directives, error)
}

// StationFunc adapts a function to Station.
type StationFunc func(ctx context.Context, b Batch) (Directives, error)

func (f StationFunc) Sync(ctx context.Context, b Batch) (Directives, error) { return f(ctx, b) }

// EventKind classifies task events reported to the station.
type EventKind int

const (
	EventSpawned EventKind = iota
	EventDecommissioned
	EventExplored
	EventCollected
	EventUnavailable
	EventDelivered
	EventRecharged
	EventStranded
)

// Event is something that happened to one robot during a tick.
type Event struct {
	Tick     uint64            `json:"tick"`
	Robot    core.RobotID      `json:"robot"`
	Kind     EventKind         `json:"kind"`
	Task     core.TaskKind     `json:"task"`
	Pos      core.Position     `json:"pos"`
	Resource core.ResourceKind `json:"resource,omitempty"`
	Amount   int               `json:"amount,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("t%d robot %d %v at %v", e.Tick, e.Robot, e.Kind, e.Pos)
}

// ResourceDelta records a change to a resource site.
type ResourceDelta struct {
	Pos   core.Position     `json:"pos"`
	Kind  core.ResourceKind `json:"kind"`
	Delta int               `json:"delta"`
}

// Batch is everything a tick changed, pushed to the station after the
// mutation phase.
type Batch struct {
	Tick           uint64          `json:"tick"`
	Discovered     []core.Position `json:"discovered"`
	ResourceDeltas []ResourceDelta `json:"resource_deltas"`
	Events         []Event         `json:"events"`
}

// Empty reports whether the batch carries nothing.
func (b Batch) Empty() bool {
	return len(b.Discovered) == 0 && len(b.ResourceDeltas) == 0 && len(b.Events) == 0
}

// Directives are roster changes requested by the station. They take effect
// at the start of the next tick.
type Directives struct {
	Spawn        []*core.Robot
	Decommission []core.RobotID
}

// Empty reports whether there is nothing to apply.
func (d Directives) Empty() bool {
	return len(d.Spawn) == 0 && len(d.Decommission) == 0
}
