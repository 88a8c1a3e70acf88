package algo

import (
	"testing"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestRingSearchOrder(t *testing.T) {
	m := createGrid(5)
	got := RingSearch(m, core.Position{X: 2, Y: 2}, 1, func(core.Position) bool { return true })
	want := []core.Position{
		{X: 2, Y: 2},
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1},
		{X: 1, Y: 2}, {X: 3, Y: 2},
		{X: 1, Y: 3}, {X: 2, Y: 3}, {X: 3, Y: 3},
	}
	assert.Equal(t, want, got)
}

func TestNearestTieBreaksByRowThenColumn(t *testing.T) {
	m := createGrid(7)
	// Equal distance 2: (5,3) and (1,3) and (3,5). Smallest (y,x) wins.
	targets := map[core.Position]bool{{X: 5, Y: 3}: true, {X: 1, Y: 3}: true, {X: 3, Y: 5}: true}
	got, ok := Nearest(m, core.Position{X: 3, Y: 3}, 3, func(p core.Position) bool { return targets[p] })
	assert.True(t, ok)
	assert.Equal(t, core.Position{X: 1, Y: 3}, got)
}

func TestNearestRespectsRadiusAndBounds(t *testing.T) {
	m := createGrid(4)
	_, ok := Nearest(m, core.Position{X: 0, Y: 0}, 2, func(p core.Position) bool { return p == core.Position{X: 3, Y: 3} })
	assert.False(t, ok)

	got, ok := Nearest(m, core.Position{X: 0, Y: 0}, 3, func(p core.Position) bool { return p == core.Position{X: 3, Y: 3} })
	assert.True(t, ok)
	assert.Equal(t, core.Position{X: 3, Y: 3}, got)
}

func TestSeededOrderDeterministic(t *testing.T) {
	cands := []core.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	a := SeededOrder(cands, 42, 1, 7)
	b := SeededOrder(cands, 42, 1, 7)
	assert.Equal(t, a, b)
	assert.ElementsMatch(t, cands, a)
	assert.Nil(t, SeededOrder(nil, 42, 1, 7))
}
