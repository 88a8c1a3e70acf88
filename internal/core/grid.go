package core

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrResourceDepleted is returned when collecting from a cell whose site is gone.
	ErrResourceDepleted = errors.New("resource depleted")
	// ErrInsufficientResource is returned when a site holds less than requested.
	ErrInsufficientResource = errors.New("insufficient resource")
)

// Position is a grid cell coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Add returns p offset by (dx, dy).
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Chebyshev returns the king-move distance between two cells.
func (p Position) Chebyshev(q Position) int {
	return max(abs(p.X-q.X), abs(p.Y-q.Y))
}

// Adjacent reports whether q is one of the 8 neighbours of p.
func (p Position) Adjacent(q Position) bool {
	return p.Chebyshev(q) == 1
}

// Less orders positions by (y, x).
func (p Position) Less(q Position) bool {
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.X < q.X
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// OutOfBoundsError signals a query outside the grid. Positions are checked
// before they reach the Map, so this is raised as a panic.
type OutOfBoundsError struct {
	Pos           Position
	Width, Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("position %v outside %dx%d map", e.Pos, e.Width, e.Height)
}

// Resource is the content of a resource site.
type Resource struct {
	Kind   ResourceKind `json:"kind"`
	Amount int          `json:"amount"`
}

// ResourceSite is a resource together with its location.
type ResourceSite struct {
	Pos Position `json:"pos"`
	Resource
}

// Map is the grid world: terrain, resource table and discovered cells,
// each stored row-major.
//
// Terrain is only changed through SetTerrain, which bumps Revision so cached
// paths can be invalidated. Resource and discovery writes happen in the
// simulation's mutation phase; concurrent readers during the decision phase
// never overlap with them.
type Map struct {
	Width, Height int

	terrain    []TerrainType
	resources  []Resource
	discovered []bool
	revision   uint64
}

// NewMap creates a w x h map of plain, undiscovered terrain.
func NewMap(w, h int) *Map {
	if w <= 0 || h <= 0 {
		panic(fmt.Sprintf("core: invalid map size %dx%d", w, h))
	}
	n := w * h
	return &Map{
		Width:      w,
		Height:     h,
		terrain:    make([]TerrainType, n),
		resources:  make([]Resource, n),
		discovered: make([]bool, n),
	}
}

// Dims returns the grid width and height.
func (m *Map) Dims() (int, int) {
	return m.Width, m.Height
}

// InBounds reports whether p lies on the grid.
func (m *Map) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

func (m *Map) index(p Position) int {
	if !m.InBounds(p) {
		panic(&OutOfBoundsError{Pos: p, Width: m.Width, Height: m.Height})
	}
	return p.Y*m.Width + p.X
}

// Terrain returns the terrain at p.
func (m *Map) Terrain(p Position) TerrainType {
	return m.terrain[m.index(p)]
}

// SetTerrain changes the terrain at p and bumps the terrain revision.
func (m *Map) SetTerrain(p Position, t TerrainType) {
	i := m.index(p)
	if m.terrain[i] == t {
		return
	}
	m.terrain[i] = t
	m.revision++
}

// Revision counts terrain changes since creation.
func (m *Map) Revision() uint64 {
	return m.revision
}

// Cost returns the cost of stepping onto p.
func (m *Map) Cost(p Position) float64 {
	return m.Terrain(p).Cost()
}

// Passable reports whether robots may stand on p.
func (m *Map) Passable(p Position) bool {
	return m.Terrain(p).Passable()
}

// MinCost is the lowest cost any cell can have.
func (m *Map) MinCost() float64 {
	return MinTerrainCost
}

// Resource returns the site at p, if any.
func (m *Map) Resource(p Position) (Resource, bool) {
	r := m.resources[m.index(p)]
	return r, r.Amount > 0
}

// PlaceResource puts a site at p, replacing any existing one. Zero amount
// clears the cell.
func (m *Map) PlaceResource(p Position, kind ResourceKind, amount int) {
	if amount < 0 {
		amount = 0
	}
	m.resources[m.index(p)] = Resource{Kind: kind, Amount: amount}
}

// Collect removes amount units from the site at p. The site disappears once
// its amount reaches zero.
func (m *Map) Collect(p Position, amount int) (Resource, error) {
	if amount <= 0 {
		return Resource{}, fmt.Errorf("collect %d at %v: %w", amount, p, ErrInsufficientResource)
	}
	i := m.index(p)
	site := m.resources[i]
	if site.Amount == 0 {
		return Resource{}, fmt.Errorf("collect at %v: %w", p, ErrResourceDepleted)
	}
	if site.Amount < amount {
		return Resource{}, fmt.Errorf("collect %d at %v (have %d): %w", amount, p, site.Amount, ErrInsufficientResource)
	}
	site.Amount -= amount
	if site.Amount == 0 {
		m.resources[i] = Resource{}
	} else {
		m.resources[i] = site
	}
	return Resource{Kind: site.Kind, Amount: amount}, nil
}

// Resources lists every remaining site ordered by (y, x).
func (m *Map) Resources() []ResourceSite {
	var out []ResourceSite
	for i, r := range m.resources {
		if r.Amount > 0 {
			out = append(out, ResourceSite{Pos: Position{X: i % m.Width, Y: i / m.Width}, Resource: r})
		}
	}
	return out
}

// TotalResources sums remaining amounts per kind.
func (m *Map) TotalResources() map[ResourceKind]int {
	totals := make(map[ResourceKind]int)
	for _, r := range m.resources {
		if r.Amount > 0 {
			totals[r.Kind] += r.Amount
		}
	}
	return totals
}

// Discover marks p as observed. Returns true when p was not discovered before.
func (m *Map) Discover(p Position) bool {
	i := m.index(p)
	if m.discovered[i] {
		return false
	}
	m.discovered[i] = true
	return true
}

// DiscoverRadius marks every in-bounds cell within Chebyshev radius r of p
// and returns the newly discovered ones in (y, x) order.
func (m *Map) DiscoverRadius(p Position, r int) []Position {
	var fresh []Position
	for y := p.Y - r; y <= p.Y+r; y++ {
		for x := p.X - r; x <= p.X+r; x++ {
			q := Position{X: x, Y: y}
			if m.InBounds(q) && m.Discover(q) {
				fresh = append(fresh, q)
			}
		}
	}
	return fresh
}

// Discovered reports whether p has been observed.
func (m *Map) Discovered(p Position) bool {
	return m.discovered[m.index(p)]
}

// DiscoveredCount returns how many cells have been observed.
func (m *Map) DiscoveredCount() int {
	n := 0
	for _, d := range m.discovered {
		if d {
			n++
		}
	}
	return n
}

// Undiscovered lists the passable cells not yet observed, in (y, x) order.
func (m *Map) Undiscovered() []Position {
	var out []Position
	for i, d := range m.discovered {
		if !d && m.terrain[i].Passable() {
			out = append(out, Position{X: i % m.Width, Y: i / m.Width})
		}
	}
	return out
}

// FullyDiscovered reports whether every passable cell has been observed.
func (m *Map) FullyDiscovered() bool {
	for i, d := range m.discovered {
		if !d && m.terrain[i].Passable() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	c := &Map{
		Width:      m.Width,
		Height:     m.Height,
		terrain:    append([]TerrainType(nil), m.terrain...),
		resources:  append([]Resource(nil), m.resources...),
		discovered: append([]bool(nil), m.discovered...),
		revision:   m.revision,
	}
	return c
}

// TerrainRows returns a copy of the terrain grid indexed [y][x].
func (m *Map) TerrainRows() [][]TerrainType {
	rows := make([][]TerrainType, m.Height)
	for y := range rows {
		rows[y] = append([]TerrainType(nil), m.terrain[y*m.Width:(y+1)*m.Width]...)
	}
	return rows
}

// TerrainGlyphs returns the terrain grid as one glyph string per row.
func (m *Map) TerrainGlyphs() []string {
	rows := make([]string, m.Height)
	buf := make([]byte, m.Width)
	for y := range rows {
		for x := 0; x < m.Width; x++ {
			buf[x] = m.terrain[y*m.Width+x].Glyph()
		}
		rows[y] = string(buf)
	}
	return rows
}

// DiscoveredRows returns a copy of the discovery overlay indexed [y][x].
func (m *Map) DiscoveredRows() [][]bool {
	rows := make([][]bool, m.Height)
	for y := range rows {
		rows[y] = append([]bool(nil), m.discovered[y*m.Width:(y+1)*m.Width]...)
	}
	return rows
}

// SortPositions orders ps by (y, x) in place.
func SortPositions(ps []Position) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Less(ps[j]) })
}
