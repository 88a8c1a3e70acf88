package core

import (
	"errors"
	"fmt"
)

// Scenario is the initial world handed to a simulation run.
type Scenario struct {
	Map     *Map
	Station Position
	Robots  []*Robot
	Seed    int64
}

// NewScenario creates a scenario with no robots.
func NewScenario(m *Map, station Position, seed int64) *Scenario {
	return &Scenario{
		Map:     m,
		Station: station,
		Seed:    seed,
	}
}

// Validate checks scenario consistency.
func (s *Scenario) Validate() error {
	if s.Map == nil {
		return errors.New("scenario has no map")
	}
	if !s.Map.InBounds(s.Station) {
		return fmt.Errorf("station %v outside map", s.Station)
	}
	if !s.Map.Passable(s.Station) {
		return fmt.Errorf("station %v on impassable terrain", s.Station)
	}
	seen := make(map[RobotID]bool, len(s.Robots))
	for _, r := range s.Robots {
		if seen[r.ID] {
			return fmt.Errorf("duplicate robot id %d", r.ID)
		}
		seen[r.ID] = true
		if !s.Map.InBounds(r.Pos) {
			return fmt.Errorf("robot %d at %v outside map", r.ID, r.Pos)
		}
		if !s.Map.Passable(r.Pos) {
			return fmt.Errorf("robot %d at %v on impassable terrain", r.ID, r.Pos)
		}
		if r.Energy < 0 || r.Energy > r.Capacity {
			return fmt.Errorf("robot %d energy %d outside [0,%d]", r.ID, r.Energy, r.Capacity)
		}
	}
	return nil
}

// RobotByID finds robot by ID.
func (s *Scenario) RobotByID(id RobotID) *Robot {
	for _, r := range s.Robots {
		if r.ID == id {
			return r
		}
	}
	return nil
}
