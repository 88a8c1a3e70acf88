package algo

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

// DefaultMaxExpansions bounds a single search.
const DefaultMaxExpansions = 20000

// step is one of the 8 grid moves.
type step struct {
	dx, dy   int
	diagonal bool
}

// neighborOrder is fixed so ties resolve the same way on every run.
var neighborOrder = [8]step{
	{0, -1, false},
	{1, 0, false},
	{0, 1, false},
	{-1, 0, false},
	{1, -1, true},
	{1, 1, true},
	{-1, 1, true},
	{-1, -1, true},
}

// astarNode for priority queue.
type astarNode struct {
	idx   int     // row-major cell index
	g     float64 // Cost so far
	f     float64 // g + h
	seq   uint64  // insertion order, breaks f ties
	index int     // heap index
}

// astarHeap implements heap.Interface.
type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h astarHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *astarHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// AStar is an 8-connected, cost-aware grid planner. It never writes to the
// map, so one value may serve many goroutines.
type AStar struct {
	MaxExpansions int // <= 0 means unbounded
}

// NewAStar creates a planner with the given expansion budget.
func NewAStar(maxExpansions int) *AStar {
	return &AStar{MaxExpansions: maxExpansions}
}

// Name returns the algorithm name.
func (a *AStar) Name() string { return "A*" }

// FindPath returns a minimum-cost route from start (exclusive) to goal
// (inclusive). Entering a cell costs its terrain cost, times sqrt(2) on a
// diagonal. A diagonal is only allowed when both flanking orthogonal cells
// are passable.
func (a *AStar) FindPath(m CostMap, start, goal core.Position) (core.Path, error) {
	w, h := m.Dims()
	for _, p := range [2]core.Position{start, goal} {
		if !m.InBounds(p) {
			panic(&core.OutOfBoundsError{Pos: p, Width: w, Height: h})
		}
	}
	if start == goal {
		return core.Path{}, nil
	}
	if !m.Passable(goal) {
		return nil, fmt.Errorf("path %v->%v: goal impassable: %w", start, goal, ErrNoPathFound)
	}

	minCost := m.MinCost()
	heuristic := func(p core.Position) float64 {
		dx := math.Abs(float64(p.X - goal.X))
		dy := math.Abs(float64(p.Y - goal.Y))
		lo, hi := math.Min(dx, dy), math.Max(dx, dy)
		return ((hi - lo) + math.Sqrt2*lo) * minCost
	}

	n := w * h
	best := make([]float64, n)
	for i := range best {
		best[i] = math.Inf(1)
	}
	parent := make([]int32, n)
	closed := make([]bool, n)

	at := func(i int) core.Position { return core.Position{X: i % w, Y: i / w} }
	startIdx := start.Y*w + start.X
	goalIdx := goal.Y*w + goal.X

	open := &astarHeap{}
	heap.Init(open)
	var seq uint64
	best[startIdx] = 0
	parent[startIdx] = -1
	heap.Push(open, &astarNode{idx: startIdx, g: 0, f: heuristic(start), seq: seq})

	expansions := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*astarNode)
		if closed[current.idx] {
			continue
		}
		closed[current.idx] = true

		if current.idx == goalIdx {
			return reconstructPath(parent, goalIdx, at), nil
		}

		expansions++
		if a.MaxExpansions > 0 && expansions > a.MaxExpansions {
			return nil, fmt.Errorf("path %v->%v after %d expansions: %w", start, goal, a.MaxExpansions, ErrSearchLimitExceeded)
		}

		cur := at(current.idx)
		for _, s := range neighborOrder {
			next := cur.Add(s.dx, s.dy)
			if !m.InBounds(next) || !m.Passable(next) {
				continue
			}
			stepCost := m.Cost(next)
			if s.diagonal {
				// No corner-cutting.
				if !m.Passable(cur.Add(s.dx, 0)) || !m.Passable(cur.Add(0, s.dy)) {
					continue
				}
				stepCost *= math.Sqrt2
			}

			ni := next.Y*w + next.X
			if closed[ni] {
				continue
			}
			g := current.g + stepCost
			if g >= best[ni] {
				continue
			}
			best[ni] = g
			parent[ni] = int32(current.idx)
			seq++
			heap.Push(open, &astarNode{idx: ni, g: g, f: g + heuristic(next), seq: seq})
		}
	}

	return nil, fmt.Errorf("path %v->%v: %w", start, goal, ErrNoPathFound)
}

func reconstructPath(parent []int32, goal int, at func(int) core.Position) core.Path {
	var path core.Path
	for i := goal; parent[i] != -1; i = int(parent[i]) {
		path = append(path, at(i))
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// StepCost is the cost of moving from a to the adjacent cell b.
func StepCost(m CostMap, a, b core.Position) float64 {
	c := m.Cost(b)
	if a.X != b.X && a.Y != b.Y {
		c *= math.Sqrt2
	}
	return c
}

// PathCost sums the step costs of path starting from start.
func PathCost(m CostMap, start core.Position, path core.Path) float64 {
	total := 0.0
	prev := start
	for _, p := range path {
		total += StepCost(m, prev, p)
		prev = p
	}
	return total
}
