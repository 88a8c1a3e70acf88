package sim

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/elektrokombinacija/nova-swarm/internal/behavior"
	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// batchBuilder accumulates one tick's changes for the station.
type batchBuilder struct {
	discovered []core.Position
	deltas     []ResourceDelta
	events     []Event
}

func (b *batchBuilder) event(e Event) {
	b.events = append(b.events, e)
}

func (b *batchBuilder) build(tick uint64) Batch {
	return Batch{
		Tick:           tick,
		Discovered:     b.discovered,
		ResourceDeltas: b.deltas,
		Events:         b.events,
	}
}

// tickCounts are metric increments gathered during one tick.
type tickCounts struct {
	decisions, idle, moves, collected, unavailable  int
	delivered, discovered, stranded, spawned, decom int
	rejected                                        int
}

// step runs one full tick and publishes its snapshot.
func (c *Clock) step(ctx context.Context) *Snapshot {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.mu.Lock()
	c.tick++
	tick := c.tick
	spawns, removes, edits := c.pendingSpawn, c.pendingRemove, c.pendingTerrain
	c.pendingSpawn, c.pendingRemove, c.pendingTerrain = nil, nil, nil
	c.mu.Unlock()

	b := c.carry
	c.carry = batchBuilder{}
	var counts tickCounts

	c.applyRoster(tick, spawns, removes, edits, &b, &counts)

	start := time.Now()
	decisions := c.decide(tick)
	elapsed := time.Since(start)

	outcomes := c.mutate(tick, decisions, &b, &counts)

	counts.discovered += len(b.discovered)
	batch := b.build(tick)
	c.syncStation(ctx, batch)

	c.mu.Lock()
	m := &c.metrics
	m.Ticks = tick
	c.decisionTime += elapsed
	m.AvgDecisionMs = float64(c.decisionTime.Microseconds()) / 1000 / float64(tick)
	m.Decisions += counts.decisions
	m.IdleDecisions += counts.idle
	m.Moves += counts.moves
	m.Collected += counts.collected
	m.Unavailable += counts.unavailable
	m.Delivered += counts.delivered
	m.Discovered += counts.discovered
	m.Stranded += counts.stranded
	m.Spawned += counts.spawned
	m.Decommissioned += counts.decom
	m.Rejected += counts.rejected
	c.mu.Unlock()

	return c.publish(tick, &publishInput{batch: batch, outcomes: outcomes})
}

// applyRoster incorporates queued changes in a fixed order: terrain edits,
// removals, then spawns by ascending ID with unnumbered robots last in
// queue order.
func (c *Clock) applyRoster(tick uint64, spawns []*core.Robot, removes []core.RobotID, edits []TerrainEdit, b *batchBuilder, counts *tickCounts) {
	for _, e := range edits {
		if !c.world.InBounds(e.Pos) {
			c.log.Warn("terrain edit outside map", "tick", tick, "pos", e.Pos)
			continue
		}
		if !e.Terrain.Passable() && e.Pos == c.station {
			c.log.Warn("refusing to block the station", "tick", tick)
			continue
		}
		c.world.SetTerrain(e.Pos, e.Terrain)
	}

	if len(removes) > 0 {
		drop := make(map[core.RobotID]bool, len(removes))
		for _, id := range removes {
			drop[id] = true
		}
		kept := c.robots[:0]
		for _, r := range c.robots {
			if drop[r.ID] {
				b.event(Event{Tick: tick, Robot: r.ID, Kind: EventDecommissioned, Pos: r.Pos})
				counts.decom++
				continue
			}
			kept = append(kept, r)
		}
		c.robots = kept
	}

	sort.SliceStable(spawns, func(i, j int) bool {
		a, b := spawns[i].ID, spawns[j].ID
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})
	for _, r := range spawns {
		if c.admit(r, b, tick) {
			counts.spawned++
		} else {
			counts.rejected++
		}
	}

	// A robot standing on a cell that just became impassable keeps its
	// position; it will route off it on the next decision.
}

// admit validates r, numbers it if its ID is 0, and inserts it into the
// roster keeping ID order.
func (c *Clock) admit(r *core.Robot, b *batchBuilder, tick uint64) bool {
	if r == nil || !c.world.InBounds(r.Pos) || !c.world.Passable(r.Pos) {
		c.log.Warn("rejected spawn: bad position", "tick", tick)
		return false
	}
	if r.ID == 0 {
		r.ID = c.lastID + 1
	}
	i := sort.Search(len(c.robots), func(i int) bool { return c.robots[i].ID >= r.ID })
	if i < len(c.robots) && c.robots[i].ID == r.ID {
		c.log.Warn("rejected spawn: duplicate id", "tick", tick, "robot", r.ID)
		return false
	}
	if r.Capacity <= 0 {
		r.Capacity = core.DefaultEnergyCapacity
	}
	if r.Energy < 0 {
		r.Energy = 0
	}
	if r.Energy > r.Capacity {
		r.Energy = r.Capacity
	}
	c.robots = append(c.robots, nil)
	copy(c.robots[i+1:], c.robots[i:])
	c.robots[i] = r
	if r.ID > c.lastID {
		c.lastID = r.ID
	}

	sensor := 0
	if p, ok := c.decider.Profile(r.Type); ok {
		sensor = p.SensorRadius
	}
	b.discovered = append(b.discovered, c.world.DiscoverRadius(r.Pos, sensor)...)
	b.event(Event{Tick: tick, Robot: r.ID, Kind: EventSpawned, Pos: r.Pos})
	c.log.Debug("robot joined", "tick", tick, "robot", r.ID, "type", r.Type, "pos", r.Pos)
	return true
}

// decide runs the decision phase: one goroutine per active robot, joined
// by a barrier before anything is mutated.
func (c *Clock) decide(tick uint64) []behavior.Decision {
	w := behavior.World{
		Map:             c.world,
		Station:         c.station,
		RechargePerTick: c.cfg.RechargePerTick,
		Tick:            tick,
		Seed:            c.cfg.Seed,
	}

	decisions := make([]behavior.Decision, len(c.robots))
	var wg sync.WaitGroup
	for i, r := range c.robots {
		if r.Stranded {
			decisions[i] = behavior.Decision{Robot: r.ID, Task: core.IdleTask(r.Pos)}
			continue
		}
		wg.Add(1)
		go func(i int, r *core.Robot) {
			defer wg.Done()
			decisions[i] = c.decider.Decide(r, w, c.nearby(r))
		}(i, r)
	}
	wg.Wait()
	return decisions
}

func (c *Clock) nearby(r *core.Robot) []*core.Robot {
	var out []*core.Robot
	for _, o := range c.robots {
		if o.ID != r.ID && r.Pos.Chebyshev(o.Pos) <= c.cfg.NearbyRadius {
			out = append(out, o)
		}
	}
	return out
}

// mutate applies decisions one robot at a time in ascending ID order. This
// is the only place robots, resources and discovery are written during a tick.
func (c *Clock) mutate(tick uint64, decisions []behavior.Decision, b *batchBuilder, counts *tickCounts) map[core.RobotID]Outcome {
	outcomes := make(map[core.RobotID]Outcome, len(c.robots))
	for i, r := range c.robots {
		d := decisions[i]
		if !r.Stranded {
			counts.decisions++
			if d.Task.IsIdle() {
				counts.idle++
			}
		}
		outcomes[r.ID] = c.apply(tick, r, d, b, counts)
	}
	return outcomes
}

func (c *Clock) apply(tick uint64, r *core.Robot, d behavior.Decision, b *batchBuilder, counts *tickCounts) Outcome {
	if r.Stranded {
		return OutcomeStranded
	}
	prof, _ := c.decider.Profile(r.Type)

	if r.Energy == 0 && r.Pos != c.station {
		c.strand(tick, r, b, counts)
		return OutcomeStranded
	}

	task := d.Task
	if !task.Valid(c.world) {
		c.log.Error("invalid task from decision", "tick", tick, "robot", r.ID, "task", task)
		task = core.IdleTask(r.Pos)
	}

	switch {
	case task.IsIdle():
		r.Task = task
		r.InvalidatePath()
		return OutcomeIdle

	case r.Pos != task.Target:
		if len(d.Path) == 0 || !r.Pos.Adjacent(d.Path[0]) || !c.world.Passable(d.Path[0]) {
			c.log.Warn("unusable route", "tick", tick, "robot", r.ID, "task", task)
			r.Task = task
			r.InvalidatePath()
			return OutcomeIdle
		}
		r.Pos = d.Path[0]
		r.ConsumeEnergy(prof.EnergyCost)
		r.Task = task
		r.SetPath(task.Target, d.Path[1:].Clone(), c.world.Revision())
		b.discovered = append(b.discovered, c.world.DiscoverRadius(r.Pos, prof.SensorRadius)...)
		counts.moves++
		if r.Energy == 0 && r.Pos != c.station {
			c.strand(tick, r, b, counts)
			return OutcomeStranded
		}
		return OutcomeMoved
	}

	// At the target.
	r.InvalidatePath()
	switch task.Kind {
	case core.TaskExplore:
		r.Task = task
		fresh := c.world.DiscoverRadius(r.Pos, prof.SensorRadius)
		b.discovered = append(b.discovered, fresh...)
		b.event(Event{Tick: tick, Robot: r.ID, Kind: EventExplored, Task: task.Kind, Pos: r.Pos, Amount: len(fresh)})
		return OutcomeWorked

	case core.TaskHarvest, core.TaskAnalyze:
		r.Task = task
		if !c.claim(r, prof) {
			counts.unavailable++
			b.event(Event{Tick: tick, Robot: r.ID, Kind: EventUnavailable, Task: task.Kind, Pos: r.Pos})
			return OutcomeUnavailable
		}
		got := r.Carrying
		r.ConsumeEnergy(prof.EnergyCost)
		counts.collected++
		b.deltas = append(b.deltas, ResourceDelta{Pos: r.Pos, Kind: got.Kind, Delta: -got.Amount})
		b.event(Event{Tick: tick, Robot: r.ID, Kind: EventCollected, Task: task.Kind, Pos: r.Pos, Resource: got.Kind, Amount: got.Amount})
		if r.Energy == 0 && r.Pos != c.station {
			c.strand(tick, r, b, counts)
			return OutcomeStranded
		}
		return OutcomeWorked

	case core.TaskReturnToStation:
		r.Task = task
		if p := r.Unload(); p != nil {
			counts.delivered++
			b.event(Event{Tick: tick, Robot: r.ID, Kind: EventDelivered, Task: task.Kind, Pos: r.Pos, Resource: p.Kind, Amount: p.Amount})
		}
		if added := r.Recharge(c.cfg.RechargePerTick); added > 0 {
			b.event(Event{Tick: tick, Robot: r.ID, Kind: EventRecharged, Task: task.Kind, Pos: r.Pos, Amount: added})
		}
		return OutcomeDocked
	}

	r.Task = task
	return OutcomeIdle
}

// claim collects one unit at the robot's cell. A lost race for the last
// unit or a site of the wrong kind is reported as unavailable; the robot
// keeps its task for the next decision.
func (c *Clock) claim(r *core.Robot, prof behavior.Profile) bool {
	if r.IsCarrying() {
		return false
	}
	if res, ok := c.world.Resource(r.Pos); ok && !prof.Prefers(res.Kind) {
		return false
	}
	got, err := c.world.Collect(r.Pos, 1)
	if err != nil {
		if !errors.Is(err, core.ErrResourceDepleted) && !errors.Is(err, core.ErrInsufficientResource) {
			c.log.Error("collect failed", "robot", r.ID, "error", err)
		}
		return false
	}
	if err := r.Load(got.Kind); err != nil {
		c.log.Error("load failed", "robot", r.ID, "error", err)
		return false
	}
	return true
}

func (c *Clock) strand(tick uint64, r *core.Robot, b *batchBuilder, counts *tickCounts) {
	r.Stranded = true
	r.InvalidatePath()
	counts.stranded++
	b.event(Event{Tick: tick, Robot: r.ID, Kind: EventStranded, Task: r.Task.Kind, Pos: r.Pos})
	c.log.Info("robot stranded", "tick", tick, "robot", r.ID, "pos", r.Pos)
}

// syncStation pushes the batch and queues the returned directives. A
// failing station never stops the clock.
func (c *Clock) syncStation(ctx context.Context, batch Batch) {
	if c.sink == nil {
		return
	}
	dir, err := c.sink.Sync(ctx, batch)
	if err != nil {
		c.mu.Lock()
		c.metrics.SyncFaults++
		c.mu.Unlock()
		c.log.Warn("station sync failed", "tick", batch.Tick, "error", err)
		return
	}
	if dir.Empty() {
		return
	}
	c.mu.Lock()
	c.pendingSpawn = append(c.pendingSpawn, dir.Spawn...)
	c.pendingRemove = append(c.pendingRemove, dir.Decommission...)
	c.mu.Unlock()
}

type publishInput struct {
	batch    Batch
	outcomes map[core.RobotID]Outcome
}

// publish builds and stores the snapshot for tick and fans it out.
func (c *Clock) publish(tick uint64, in *publishInput) *Snapshot {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	snap := &Snapshot{
		Tick:            tick,
		State:           state,
		Width:           c.world.Width,
		Height:          c.world.Height,
		Station:         c.station,
		TerrainRevision: c.world.Revision(),
		Discovered:      c.world.DiscoveredRows(),
		DiscoveredCount: c.world.DiscoveredCount(),
		Resources:       c.world.Resources(),
		Robots:          make([]RobotView, 0, len(c.robots)),
	}
	if prev := c.snapshot.Load(); prev != nil && prev.TerrainRevision == snap.TerrainRevision && prev.Terrain != nil {
		snap.Terrain = prev.Terrain
	} else {
		snap.Terrain = c.world.TerrainGlyphs()
	}
	for _, r := range c.robots {
		v := RobotView{
			ID:       r.ID,
			Type:     r.Type,
			Pos:      r.Pos,
			Energy:   r.Energy,
			Capacity: r.Capacity,
			Task:     r.Task,
			Path:     r.Path.Clone(),
			Stranded: r.Stranded,
		}
		if r.Carrying != nil {
			p := *r.Carrying
			v.Carrying = &p
		}
		if in != nil {
			v.Outcome = in.outcomes[r.ID]
		}
		snap.Robots = append(snap.Robots, v)
	}
	if in != nil {
		snap.Events = in.batch.Events
	}

	c.snapshot.Store(snap)
	c.fanOut(snap)
	return snap
}

// republishState refreshes the State field of the latest snapshot.
func (c *Clock) republishState() {
	prev := c.snapshot.Load()
	if prev == nil {
		return
	}
	next := *prev
	next.State = c.State()
	c.snapshot.Store(&next)
	c.fanOut(&next)
}

func (c *Clock) fanOut(snap *Snapshot) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for ch := range c.subs {
		sendLatest(ch, snap)
	}
}
