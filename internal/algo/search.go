package algo

import "github.com/elektrokombinacija/nova-swarm/internal/core"

// Bounds is the part of a map candidate search needs.
type Bounds interface {
	InBounds(p core.Position) bool
}

// walkRings visits in-bounds cells within Chebyshev distance radius of
// center, nearest ring first and (y, x) order within a ring, until visit
// returns false.
func walkRings(m Bounds, center core.Position, radius int, visit func(core.Position) bool) {
	for d := 0; d <= radius; d++ {
		for y := center.Y - d; y <= center.Y+d; y++ {
			for x := center.X - d; x <= center.X+d; x++ {
				p := core.Position{X: x, Y: y}
				if center.Chebyshev(p) != d || !m.InBounds(p) {
					continue
				}
				if !visit(p) {
					return
				}
			}
		}
	}
}

// RingSearch returns the cells within radius of center that satisfy keep,
// ordered by ring and then (y, x), so equal-distance ties always resolve
// the same way. The center itself is ring 0.
func RingSearch(m Bounds, center core.Position, radius int, keep func(core.Position) bool) []core.Position {
	var out []core.Position
	walkRings(m, center, radius, func(p core.Position) bool {
		if keep(p) {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Nearest returns the first RingSearch hit.
func Nearest(m Bounds, center core.Position, radius int, keep func(core.Position) bool) (core.Position, bool) {
	var found core.Position
	ok := false
	walkRings(m, center, radius, func(p core.Position) bool {
		if keep(p) {
			found, ok = p, true
			return false
		}
		return true
	})
	return found, ok
}

// SeededOrder returns cands rotated to start at a position derived from
// seed and salt. Identical inputs give identical orders.
func SeededOrder(cands []core.Position, seed int64, salt1, salt2 int) []core.Position {
	if len(cands) == 0 {
		return nil
	}
	start := int(core.Hash2(seed, salt1, salt2) % uint64(len(cands)))
	out := make([]core.Position, 0, len(cands))
	out = append(out, cands[start:]...)
	out = append(out, cands[:start]...)
	return out
}
