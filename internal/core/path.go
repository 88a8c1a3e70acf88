package core

// Path is an ordered route that excludes the starting cell and ends at the goal.
type Path []Position

// Last returns the final cell of the path.
func (p Path) Last() (Position, bool) {
	if len(p) == 0 {
		return Position{}, false
	}
	return p[len(p)-1], true
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// Contains reports whether q is on the path.
func (p Path) Contains(q Position) bool {
	for _, c := range p {
		if c == q {
			return true
		}
	}
	return false
}
