package algo

import (
	"errors"
	"math"
	"testing"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createGrid creates a plain n x n map.
func createGrid(n int) *core.Map {
	return core.NewMap(n, n)
}

// bruteForceCost runs an exhaustive Dijkstra with the same move rules as
// AStar and returns the optimal cost, or +Inf if goal is unreachable.
func bruteForceCost(m *core.Map, start, goal core.Position) float64 {
	w, h := m.Dims()
	dist := make([]float64, w*h)
	done := make([]bool, w*h)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[start.Y*w+start.X] = 0

	for {
		u := -1
		for i := range dist {
			if !done[i] && !math.IsInf(dist[i], 1) && (u == -1 || dist[i] < dist[u]) {
				u = i
			}
		}
		if u == -1 {
			return math.Inf(1)
		}
		done[u] = true
		cur := core.Position{X: u % w, Y: u / w}
		if cur == goal {
			return dist[u]
		}
		for _, s := range neighborOrder {
			next := cur.Add(s.dx, s.dy)
			if !m.InBounds(next) || !m.Passable(next) {
				continue
			}
			if s.diagonal && (!m.Passable(cur.Add(s.dx, 0)) || !m.Passable(cur.Add(0, s.dy))) {
				continue
			}
			ni := next.Y*w + next.X
			if d := dist[u] + StepCost(m, cur, next); d < dist[ni] {
				dist[ni] = d
			}
		}
	}
}

// assertWellFormed checks adjacency, passability and the corner rule.
func assertWellFormed(t *testing.T, m *core.Map, start, goal core.Position, path core.Path) {
	t.Helper()
	if start == goal {
		assert.Empty(t, path)
		return
	}
	require.NotEmpty(t, path)
	last, _ := path.Last()
	assert.Equal(t, goal, last)
	prev := start
	for _, p := range path {
		require.True(t, prev.Adjacent(p), "step %v->%v not adjacent", prev, p)
		require.True(t, m.Passable(p), "step onto impassable %v", p)
		if p.X != prev.X && p.Y != prev.Y {
			assert.True(t, m.Passable(core.Position{X: p.X, Y: prev.Y}), "corner cut at %v->%v", prev, p)
			assert.True(t, m.Passable(core.Position{X: prev.X, Y: p.Y}), "corner cut at %v->%v", prev, p)
		}
		prev = p
	}
}

func TestAStar_DiagonalRoute(t *testing.T) {
	m := createGrid(10)
	path, err := NewAStar(DefaultMaxExpansions).FindPath(m, core.Position{X: 0, Y: 0}, core.Position{X: 3, Y: 3})
	require.NoError(t, err)
	assert.Equal(t, core.Path{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}, path)
	assert.InDelta(t, 3*math.Sqrt2, PathCost(m, core.Position{}, path), 1e-9)
}

func TestAStar_StartEqualsGoal(t *testing.T) {
	m := createGrid(4)
	path, err := NewAStar(0).FindPath(m, core.Position{X: 2, Y: 2}, core.Position{X: 2, Y: 2})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestAStar_NoCornerCutting(t *testing.T) {
	m := createGrid(3)
	m.SetTerrain(core.Position{X: 1, Y: 0}, core.Crater)

	path, err := NewAStar(0).FindPath(m, core.Position{X: 0, Y: 0}, core.Position{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, core.Path{{X: 0, Y: 1}, {X: 1, Y: 1}}, path)
}

func TestAStar_AvoidsExpensiveTerrain(t *testing.T) {
	// A wall of canyon is cheaper to walk around than through.
	m := createGrid(5)
	for y := 0; y < 4; y++ {
		m.SetTerrain(core.Position{X: 2, Y: y}, core.Canyon)
	}
	start, goal := core.Position{X: 0, Y: 0}, core.Position{X: 4, Y: 0}
	path, err := NewAStar(0).FindPath(m, start, goal)
	require.NoError(t, err)
	assertWellFormed(t, m, start, goal, path)
	assert.InDelta(t, bruteForceCost(m, start, goal), PathCost(m, start, path), 1e-9)
}

func TestAStar_NoPathFound(t *testing.T) {
	m := createGrid(5)
	for y := 0; y < 5; y++ {
		m.SetTerrain(core.Position{X: 2, Y: y}, core.Crater)
	}
	_, err := NewAStar(0).FindPath(m, core.Position{X: 0, Y: 0}, core.Position{X: 4, Y: 4})
	assert.True(t, errors.Is(err, ErrNoPathFound), "got %v", err)
	assert.True(t, Recoverable(err))

	_, err = NewAStar(0).FindPath(m, core.Position{X: 0, Y: 0}, core.Position{X: 2, Y: 2})
	assert.True(t, errors.Is(err, ErrNoPathFound), "impassable goal, got %v", err)
}

func TestAStar_SearchLimitExceeded(t *testing.T) {
	m := createGrid(30)
	_, err := NewAStar(5).FindPath(m, core.Position{X: 0, Y: 0}, core.Position{X: 29, Y: 29})
	assert.True(t, errors.Is(err, ErrSearchLimitExceeded), "got %v", err)
	assert.True(t, Recoverable(err))
}

func TestAStar_OutOfBoundsPanics(t *testing.T) {
	m := createGrid(3)
	assert.Panics(t, func() {
		_, _ = NewAStar(0).FindPath(m, core.Position{X: 0, Y: 0}, core.Position{X: 5, Y: 5})
	})
}

// TestAStar_Optimality compares against brute force on generated terrain.
func TestAStar_Optimality(t *testing.T) {
	planner := NewAStar(0)
	for seed := int64(1); seed <= 6; seed++ {
		params := core.DefaultGenParams()
		params.Frequency = 0.35
		params.CraterChance = 0.12
		m := core.GenerateMap(12, 10, seed, params)

		for i := 0; i < 25; i++ {
			h := core.Hash2(seed, i, 99)
			start := core.Position{X: int(h % 12), Y: int((h >> 8) % 10)}
			goal := core.Position{X: int((h >> 16) % 12), Y: int((h >> 24) % 10)}
			if !m.Passable(start) || !m.Passable(goal) {
				continue
			}

			want := bruteForceCost(m, start, goal)
			path, err := planner.FindPath(m, start, goal)
			if math.IsInf(want, 1) {
				assert.True(t, errors.Is(err, ErrNoPathFound), "seed %d %v->%v: want no path, got %v", seed, start, goal, err)
				continue
			}
			require.NoError(t, err, "seed %d %v->%v", seed, start, goal)
			assertWellFormed(t, m, start, goal, path)
			assert.InDelta(t, want, PathCost(m, start, path), 1e-9, "seed %d %v->%v", seed, start, goal)
		}
	}
}

func TestAStar_Deterministic(t *testing.T) {
	m := core.GenerateMap(16, 16, 11, core.DefaultGenParams())
	start, goal := core.Position{X: 0, Y: 0}, core.Position{X: 15, Y: 15}
	m.SetTerrain(start, core.Plain)
	m.SetTerrain(goal, core.Plain)

	first, err1 := NewAStar(0).FindPath(m, start, goal)
	for i := 0; i < 10; i++ {
		again, err2 := NewAStar(0).FindPath(m, start, goal)
		assert.Equal(t, err1, err2)
		assert.Equal(t, first, again)
	}
}

func TestAStar_ConcurrentCallers(t *testing.T) {
	m := core.GenerateMap(20, 20, 5, core.DefaultGenParams())
	start, goal := core.Position{X: 0, Y: 0}, core.Position{X: 19, Y: 19}
	m.SetTerrain(start, core.Plain)
	m.SetTerrain(goal, core.Plain)
	planner := NewAStar(DefaultMaxExpansions)
	want, wantErr := planner.FindPath(m, start, goal)

	results := make(chan core.Path, 8)
	for i := 0; i < 8; i++ {
		go func() {
			p, _ := planner.FindPath(m, start, goal)
			results <- p
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-results, "err %v", wantErr)
	}
}
