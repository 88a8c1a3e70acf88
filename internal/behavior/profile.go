package behavior

import (
	"fmt"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// ReturnCondition is the stock return-to-station precondition: low energy,
// a payload to deliver, or docked at a recharging station and not yet full.
const ReturnCondition = "Carrying || Energy < Threshold || (AtStation && Recharging && Energy < Capacity)"

// Profile is the parameter set of one robot type. All types share a single
// decision routine; only these values differ.
type Profile struct {
	Type            core.RobotType
	EnergyCost      int // per movement or work action
	ReturnThreshold int // return when energy drops below this
	Preferred       []core.ResourceKind
	SearchRadius    int
	FallbackRadius  int
	SensorRadius    int  // discovery radius around the robot after each move
	AvoidOccupied   bool // skip acquisition targets other robots stand on
	Rules           []Rule
}

// AcquireTask is the task kind produced by the acquisition rule.
func (p Profile) AcquireTask() core.TaskKind {
	switch p.Type {
	case core.Harvester:
		return core.TaskHarvest
	case core.Scientist:
		return core.TaskAnalyze
	default:
		return core.TaskExplore
	}
}

// Prefers reports whether kind is one of the profile's target resources.
func (p Profile) Prefers(kind core.ResourceKind) bool {
	for _, k := range p.Preferred {
		if k == kind {
			return true
		}
	}
	return false
}

// Validate checks the numeric parameters.
func (p Profile) Validate() error {
	if p.EnergyCost < 0 {
		return fmt.Errorf("%v: negative energy cost", p.Type)
	}
	if p.ReturnThreshold < 0 {
		return fmt.Errorf("%v: negative return threshold", p.Type)
	}
	if p.SearchRadius < 0 || p.FallbackRadius < 0 || p.SensorRadius < 0 {
		return fmt.Errorf("%v: negative radius", p.Type)
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("%v: no rules", p.Type)
	}
	if p.Type != core.Explorer && len(p.Preferred) == 0 {
		return fmt.Errorf("%v: no preferred resources", p.Type)
	}
	return nil
}

func stockRules(ret, acquire, fallback int) []Rule {
	return []Rule{
		{Name: "return-to-station", Kind: RuleReturn, Priority: ret, ConditionSrc: ReturnCondition},
		{Name: "acquire", Kind: RuleAcquire, Priority: acquire},
		{Name: "fallback-explore", Kind: RuleFallback, Priority: fallback},
	}
}

// DefaultProfiles returns the stock parameters for every robot type.
func DefaultProfiles() map[core.RobotType]Profile {
	return map[core.RobotType]Profile{
		core.Explorer: {
			Type:            core.Explorer,
			EnergyCost:      2,
			ReturnThreshold: 20,
			SearchRadius:    5,
			FallbackRadius:  2,
			SensorRadius:    1,
			AvoidOccupied:   true,
			Rules:           stockRules(9, 7, 5),
		},
		core.Harvester: {
			Type:            core.Harvester,
			EnergyCost:      3,
			ReturnThreshold: 15,
			Preferred:       []core.ResourceKind{core.Energy, core.Mineral},
			SearchRadius:    4,
			FallbackRadius:  2,
			Rules:           stockRules(10, 8, 6),
		},
		core.Scientist: {
			Type:            core.Scientist,
			EnergyCost:      4,
			ReturnThreshold: 25,
			Preferred:       []core.ResourceKind{core.ScientificInterest},
			SearchRadius:    6,
			FallbackRadius:  2,
			Rules:           stockRules(9, 8, 6),
		},
	}
}
