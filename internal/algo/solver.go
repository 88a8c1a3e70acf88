// Package algo implements grid path planning and candidate search.
package algo

import (
	"errors"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
)

var (
	// ErrNoPathFound means the goal is unreachable from the start.
	ErrNoPathFound = errors.New("no path found")
	// ErrSearchLimitExceeded means the expansion budget ran out first.
	ErrSearchLimitExceeded = errors.New("search limit exceeded")
)

// CostMap is the read-only view of the world a planner needs.
type CostMap interface {
	Dims() (width, height int)
	InBounds(p core.Position) bool
	Passable(p core.Position) bool
	Cost(p core.Position) float64
	MinCost() float64
}

// PathFinder computes routes over a CostMap.
type PathFinder interface {
	// FindPath returns the cells from start (exclusive) to goal (inclusive).
	FindPath(m CostMap, start, goal core.Position) (core.Path, error)

	// Name returns the algorithm name.
	Name() string
}

// Recoverable reports whether err is a planning failure the caller is
// expected to handle by choosing another target.
func Recoverable(err error) bool {
	return errors.Is(err, ErrNoPathFound) || errors.Is(err, ErrSearchLimitExceeded)
}
