// Package core defines domain models for the nova swarm simulation.
package core

import "fmt"

// RobotType classifies robot specialisation.
type RobotType int

const (
	Explorer  RobotType = iota // Maps unexplored cells
	Harvester                  // Collects energy and minerals
	Scientist                  // Analyzes sites of scientific interest
)

func (t RobotType) String() string {
	return [...]string{"Explorer", "Harvester", "Scientist"}[t]
}

// AllRobotTypes lists robot types in roster order.
func AllRobotTypes() []RobotType {
	return []RobotType{Explorer, Harvester, Scientist}
}

// ParseRobotType maps a name (as printed by String) back to a RobotType.
func ParseRobotType(s string) (RobotType, error) {
	for _, t := range AllRobotTypes() {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown robot type %q", s)
}

func (t RobotType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *RobotType) UnmarshalText(b []byte) error {
	v, err := ParseRobotType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ResourceKind classifies what a resource site yields.
type ResourceKind int

const (
	Energy ResourceKind = iota
	Mineral
	ScientificInterest
)

func (k ResourceKind) String() string {
	return [...]string{"Energy", "Mineral", "ScientificInterest"}[k]
}

// ParseResourceKind maps a name back to a ResourceKind.
func ParseResourceKind(s string) (ResourceKind, error) {
	for _, k := range []ResourceKind{Energy, Mineral, ScientificInterest} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

func (k ResourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ResourceKind) UnmarshalText(b []byte) error {
	v, err := ParseResourceKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// TerrainType classifies a grid cell.
type TerrainType uint8

const (
	Plain    TerrainType = iota // cost 1
	Hill                        // cost 2
	Mountain                    // cost 3
	Canyon                      // cost 4
	Crater                      // impassable
)

func (t TerrainType) String() string {
	return [...]string{"Plain", "Hill", "Mountain", "Canyon", "Crater"}[t]
}

// Passable reports whether robots may enter cells of this terrain.
func (t TerrainType) Passable() bool {
	return t != Crater
}

// Cost returns the movement cost of entering a cell of this terrain.
// Impassable terrain reports 0; check Passable first.
func (t TerrainType) Cost() float64 {
	switch t {
	case Plain:
		return 1
	case Hill:
		return 2
	case Mountain:
		return 3
	case Canyon:
		return 4
	default:
		return 0
	}
}

// Glyph is the single-byte encoding used in map files and snapshots:
// '0'..'3' for Plain..Canyon and 'X' for Crater.
func (t TerrainType) Glyph() byte {
	if t == Crater {
		return 'X'
	}
	return '0' + byte(t)
}

// TerrainFromGlyph decodes a Glyph.
func TerrainFromGlyph(c byte) (TerrainType, bool) {
	switch {
	case c == 'X':
		return Crater, true
	case c >= '0' && c <= '3':
		return TerrainType(c - '0'), true
	default:
		return 0, false
	}
}

// MinTerrainCost is the cheapest passable terrain cost.
const MinTerrainCost = 1.0
