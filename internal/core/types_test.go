package core

import "testing"

func TestTerrainCost(t *testing.T) {
	tests := []struct {
		terrain  TerrainType
		cost     float64
		passable bool
	}{
		{Plain, 1, true},
		{Hill, 2, true},
		{Mountain, 3, true},
		{Canyon, 4, true},
		{Crater, 0, false},
	}

	for _, tt := range tests {
		if got := tt.terrain.Cost(); got != tt.cost {
			t.Errorf("%v.Cost() = %v, want %v", tt.terrain, got, tt.cost)
		}
		if got := tt.terrain.Passable(); got != tt.passable {
			t.Errorf("%v.Passable() = %v, want %v", tt.terrain, got, tt.passable)
		}
	}
}

func TestParseRobotType(t *testing.T) {
	for _, rt := range AllRobotTypes() {
		got, err := ParseRobotType(rt.String())
		if err != nil {
			t.Fatalf("ParseRobotType(%q): %v", rt.String(), err)
		}
		if got != rt {
			t.Errorf("ParseRobotType(%q) = %v, want %v", rt.String(), got, rt)
		}
	}

	if _, err := ParseRobotType("Drone"); err == nil {
		t.Errorf("ParseRobotType should reject unknown names")
	}
}

func TestParseResourceKind(t *testing.T) {
	k, err := ParseResourceKind("Mineral")
	if err != nil || k != Mineral {
		t.Errorf("ParseResourceKind(Mineral) = %v, %v", k, err)
	}
	if _, err := ParseResourceKind("Gold"); err == nil {
		t.Errorf("ParseResourceKind should reject unknown kinds")
	}
}
