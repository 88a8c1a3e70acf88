// Package behavior selects one task per robot per tick from ranked rules.
package behavior

import (
	"fmt"
	"log/slog"

	"github.com/elektrokombinacija/nova-swarm/internal/algo"
	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// DefaultMaxCandidates bounds how many targets one rule tries to path to.
const DefaultMaxCandidates = 8

// View is the read-only world a decision may consult.
type View interface {
	algo.CostMap
	Resource(p core.Position) (core.Resource, bool)
	Discovered(p core.Position) bool
	FullyDiscovered() bool
	Revision() uint64
}

// World bundles the view with the per-tick context of a decision.
type World struct {
	Map             View
	Station         core.Position
	RechargePerTick int
	Tick            uint64
	Seed            int64
}

// Decision is the outcome of one robot's decision phase.
type Decision struct {
	Robot core.RobotID
	Task  core.Task
	Path  core.Path // route to Task.Target, empty when already there
}

// Engine evaluates profiles against robot state. Decide has no side
// effects, so one Engine serves all robots concurrently.
type Engine struct {
	profiles      map[core.RobotType]*compiledProfile
	planner       algo.PathFinder
	MaxCandidates int
	log           *slog.Logger
}

type compiledProfile struct {
	Profile
	rules []*Rule
}

// NewEngine validates and compiles profiles.
func NewEngine(profiles map[core.RobotType]Profile, planner algo.PathFinder, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		profiles:      make(map[core.RobotType]*compiledProfile, len(profiles)),
		planner:       planner,
		MaxCandidates: DefaultMaxCandidates,
		log:           logger,
	}
	for t, p := range profiles {
		p.Type = t
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile: %w", err)
		}
		rules, err := compileRules(p.Rules)
		if err != nil {
			return nil, fmt.Errorf("profile %v: %w", t, err)
		}
		e.profiles[t] = &compiledProfile{Profile: p, rules: rules}
	}
	return e, nil
}

// Profile returns the parameters for t.
func (e *Engine) Profile(t core.RobotType) (Profile, bool) {
	p, ok := e.profiles[t]
	if !ok {
		return Profile{}, false
	}
	return p.Profile, true
}

// Decide returns exactly one task for r. Planning failures push evaluation
// on to the fallback rules; when nothing applies the idle task is returned.
func (e *Engine) Decide(r *core.Robot, w World, nearby []*core.Robot) Decision {
	idle := Decision{Robot: r.ID, Task: core.IdleTask(r.Pos)}

	p, ok := e.profiles[r.Type]
	if !ok {
		e.log.Warn("no profile for robot type", "robot", r.ID, "type", r.Type)
		return idle
	}

	env := RuleEnv{
		Type:       r.Type.String(),
		Energy:     r.Energy,
		Capacity:   r.Capacity,
		Threshold:  p.ReturnThreshold,
		Carrying:   r.IsCarrying(),
		AtStation:  r.Pos == w.Station,
		Recharging: w.RechargePerTick > 0,
		Nearby:     len(nearby),
		Tick:       int(w.Tick),
	}

	fallbackOnly := false
	for _, rule := range p.rules {
		if fallbackOnly && rule.Kind != RuleFallback {
			continue
		}
		match, err := rule.eval(env)
		if err != nil {
			e.log.Warn("rule condition error", "robot", r.ID, "rule", rule.Name, "error", err)
			continue
		}
		if !match {
			continue
		}

		var cands []core.Position
		var kind core.TaskKind
		switch rule.Kind {
		case RuleReturn:
			cands, kind = []core.Position{w.Station}, core.TaskReturnToStation
		case RuleAcquire:
			cands, kind = e.acquireCandidates(p, r, w, nearby), p.AcquireTask()
		case RuleFallback:
			cands, kind = e.fallbackCandidates(p, r, w), core.TaskExplore
		}
		if len(cands) == 0 {
			continue
		}

		d, planned, failed := e.firstReachable(r, w, cands, kind, rule)
		if planned {
			e.log.Debug("rule fired", "robot", r.ID, "rule", rule.Name, "priority", rule.Priority, "task", d.Task)
			return d
		}
		if failed {
			e.log.Debug("no route for rule, falling back", "robot", r.ID, "rule", rule.Name)
			fallbackOnly = true
		}
	}

	return idle
}

// firstReachable plans to candidates in order and returns the first that
// has a route. failed reports a recoverable planner error on some candidate.
func (e *Engine) firstReachable(r *core.Robot, w World, cands []core.Position, kind core.TaskKind, rule *Rule) (d Decision, planned, failed bool) {
	limit := e.MaxCandidates
	if limit <= 0 || limit > len(cands) {
		limit = len(cands)
	}
	for _, target := range cands[:limit] {
		path, err := e.route(r, w.Map, target)
		if err != nil {
			if !algo.Recoverable(err) {
				e.log.Error("planner error", "robot", r.ID, "target", target, "error", err)
			}
			failed = true
			continue
		}
		task := core.NewTask(kind, target, rule.Priority)
		task.Rule = rule.Name
		return Decision{Robot: r.ID, Task: task, Path: path}, true, failed
	}
	return Decision{}, false, failed
}

// route reuses the robot's cached path when still valid.
func (e *Engine) route(r *core.Robot, m View, target core.Position) (core.Path, error) {
	if r.Pos == target {
		return core.Path{}, nil
	}
	if cached, ok := r.CachedPath(target, m.Revision()); ok {
		return cached.Clone(), nil
	}
	return e.planner.FindPath(m, r.Pos, target)
}

func (e *Engine) acquireCandidates(p *compiledProfile, r *core.Robot, w World, nearby []*core.Robot) []core.Position {
	occupied := make(map[core.Position]bool, len(nearby))
	if p.AvoidOccupied {
		for _, o := range nearby {
			if o.ID != r.ID {
				occupied[o.Pos] = true
			}
		}
	}

	if p.Type == core.Explorer {
		return algo.RingSearch(w.Map, r.Pos, p.SearchRadius, func(c core.Position) bool {
			return !occupied[c] && w.Map.Passable(c) && !w.Map.Discovered(c)
		})
	}
	return algo.RingSearch(w.Map, r.Pos, p.SearchRadius, func(c core.Position) bool {
		if occupied[c] || !w.Map.Passable(c) {
			return false
		}
		res, ok := w.Map.Resource(c)
		return ok && p.Prefers(res.Kind)
	})
}

// fallbackCandidates prefers undiscovered cells near the robot and widens
// to any passable cell while part of the map is still unexplored.
func (e *Engine) fallbackCandidates(p *compiledProfile, r *core.Robot, w World) []core.Position {
	if w.Map.FullyDiscovered() {
		return nil
	}
	keep := func(c core.Position) bool {
		return c != r.Pos && w.Map.Passable(c) && !w.Map.Discovered(c)
	}
	cands := algo.RingSearch(w.Map, r.Pos, p.FallbackRadius, keep)
	if len(cands) == 0 {
		cands = algo.RingSearch(w.Map, r.Pos, p.FallbackRadius, func(c core.Position) bool {
			return c != r.Pos && w.Map.Passable(c)
		})
	}
	return algo.SeededOrder(cands, w.Seed, int(r.ID), int(w.Tick))
}
