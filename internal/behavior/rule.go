package behavior

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// RuleKind selects how a rule picks its target once its condition holds.
type RuleKind int

const (
	RuleReturn   RuleKind = iota // head back to the station
	RuleAcquire                  // type-specific target within the search radius
	RuleFallback                 // seeded wander target within the fallback radius
)

func (k RuleKind) String() string {
	return [...]string{"return", "acquire", "fallback"}[k]
}

// ParseRuleKind maps a name back to a RuleKind.
func ParseRuleKind(s string) (RuleKind, error) {
	for _, k := range []RuleKind{RuleReturn, RuleAcquire, RuleFallback} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown rule kind %q", s)
}

// Rule is one entry of a profile's priority list: a precondition over
// RuleEnv and the kind of target it produces.
type Rule struct {
	Name         string
	Kind         RuleKind
	Priority     int         // higher = evaluated first
	ConditionSrc string      // expr source; empty means always
	program      *vm.Program // compiled bytecode
}

// compileRules compiles every condition and returns a copy sorted by
// priority, highest first. Equal priorities keep their listed order.
func compileRules(rules []Rule) ([]*Rule, error) {
	out := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		r := r
		src := r.ConditionSrc
		if src == "" {
			src = "true"
		}
		prog, err := expr.Compile(src, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
		out = append(out, &r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out, nil
}

// eval runs the compiled condition against env.
func (r *Rule) eval(env RuleEnv) (bool, error) {
	result, err := vm.Run(r.program, env)
	if err != nil {
		return false, err
	}
	match, ok := result.(bool)
	return ok && match, nil
}
