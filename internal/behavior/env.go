package behavior

// RuleEnv is the data a rule condition can see. Field names are the
// identifiers available in condition expressions.
type RuleEnv struct {
	Type       string
	Energy     int
	Capacity   int
	Threshold  int
	Carrying   bool
	AtStation  bool
	Recharging bool // the station refills docked robots
	Nearby     int  // robots within sensing range
	Tick       int
}

// EnergyFraction returns energy as a share of capacity.
func (e RuleEnv) EnergyFraction() float64 {
	if e.Capacity <= 0 {
		return 0
	}
	return float64(e.Energy) / float64(e.Capacity)
}
