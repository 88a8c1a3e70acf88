package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// mapFile is the on-disk form of a Map. Terrain rows are glyph strings.
type mapFile struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Seed       int64          `json:"seed"`
	Terrain    []string       `json:"terrain"`
	Resources  []ResourceSite `json:"resources"`
	Discovered []Position     `json:"discovered,omitempty"`
}

// WriteMap encodes m as JSON.
func WriteMap(w io.Writer, m *Map, seed int64) error {
	f := mapFile{
		Width:     m.Width,
		Height:    m.Height,
		Seed:      seed,
		Resources: m.Resources(),
	}
	for y := 0; y < m.Height; y++ {
		var sb strings.Builder
		for x := 0; x < m.Width; x++ {
			sb.WriteByte(m.Terrain(Position{X: x, Y: y}).Glyph())
			if m.Discovered(Position{X: x, Y: y}) {
				f.Discovered = append(f.Discovered, Position{X: x, Y: y})
			}
		}
		f.Terrain = append(f.Terrain, sb.String())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// ReadMap decodes a map written by WriteMap and returns it with its seed.
func ReadMap(r io.Reader) (*Map, int64, error) {
	var f mapFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, 0, fmt.Errorf("decode map: %w", err)
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Terrain) != f.Height {
		return nil, 0, fmt.Errorf("decode map: bad dimensions %dx%d with %d rows", f.Width, f.Height, len(f.Terrain))
	}
	m := NewMap(f.Width, f.Height)
	for y, row := range f.Terrain {
		if len(row) != f.Width {
			return nil, 0, fmt.Errorf("decode map: row %d has %d cells, want %d", y, len(row), f.Width)
		}
		for x := 0; x < len(row); x++ {
			t, ok := TerrainFromGlyph(row[x])
			if !ok {
				return nil, 0, fmt.Errorf("decode map: bad terrain %q at (%d,%d)", row[x], x, y)
			}
			m.terrain[y*f.Width+x] = t
		}
	}
	for _, s := range f.Resources {
		if !m.InBounds(s.Pos) {
			return nil, 0, fmt.Errorf("decode map: resource at %v outside map", s.Pos)
		}
		m.PlaceResource(s.Pos, s.Kind, s.Amount)
	}
	for _, p := range f.Discovered {
		if !m.InBounds(p) {
			return nil, 0, fmt.Errorf("decode map: discovered cell %v outside map", p)
		}
		m.Discover(p)
	}
	return m, f.Seed, nil
}

// SaveMap writes m to path. Paths ending in ".zst" are zstd-compressed.
// The file is written next to path and renamed into place, so a failed save
// leaves any previous file intact.
func SaveMap(path string, m *Map, seed int64) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = writeMapFile(f, strings.HasSuffix(path, ".zst"), m, seed)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save map %s: %w", path, err)
	}
	return nil
}

func writeMapFile(w io.Writer, compress bool, m *Map, seed int64) error {
	if !compress {
		bw := bufio.NewWriter(w)
		if err := WriteMap(bw, m, seed); err != nil {
			return err
		}
		return bw.Flush()
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	if err := WriteMap(bw, m, seed); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// LoadMap reads a map saved by SaveMap.
func LoadMap(path string) (*Map, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return ReadMap(bufio.NewReader(f))
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Close()
	return ReadMap(dec)
}
