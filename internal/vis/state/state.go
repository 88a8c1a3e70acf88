// Package state holds the viewer model: snapshot history, playback cursor
// and selection. It is owned by the UI goroutine.
package state

import (
	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

// DefaultHistory bounds how many snapshots are kept for scrubbing.
const DefaultHistory = 4096

type State struct {
	Playback *PlaybackState

	// Selected is the highlighted robot, 0 for none.
	Selected  core.RobotID
	ShowPaths bool
	ShowFog   bool

	history []*sim.Snapshot
	limit   int
}

func New(limit int) *State {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &State{
		Playback:  NewPlaybackState(),
		ShowPaths: true,
		ShowFog:   true,
		limit:     limit,
	}
}

// Push appends a snapshot. A snapshot older than the newest one means the
// source restarted, so history is cleared. Republished snapshots for the
// same tick (state changes) replace the newest entry.
func (s *State) Push(snap *sim.Snapshot) {
	if snap == nil {
		return
	}
	if n := len(s.history); n > 0 {
		last := s.history[n-1]
		switch {
		case snap.Tick < last.Tick:
			s.history = s.history[:0]
			s.Playback.Live()
		case snap.Tick == last.Tick:
			s.history[n-1] = snap
			return
		}
	}
	s.history = append(s.history, snap)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
		s.Playback.Shift(over)
	}
	s.Playback.Extend(len(s.history) - 1)
}

// Len is the number of snapshots held.
func (s *State) Len() int {
	return len(s.history)
}

// At returns the i-th snapshot of the history.
func (s *State) At(i int) *sim.Snapshot {
	if i < 0 || i >= len(s.history) {
		return nil
	}
	return s.history[i]
}

// Current is the snapshot under the playback cursor.
func (s *State) Current() *sim.Snapshot {
	return s.At(s.Playback.Index())
}

// Latest is the newest snapshot.
func (s *State) Latest() *sim.Snapshot {
	return s.At(len(s.history) - 1)
}

// Trail returns up to n positions of robot id ending at the cursor,
// oldest first.
func (s *State) Trail(id core.RobotID, n int) []core.Position {
	end := s.Playback.Index()
	start := end - n + 1
	if start < 0 {
		start = 0
	}
	var trail []core.Position
	for i := start; i <= end && i < len(s.history); i++ {
		if v, ok := s.history[i].Robot(id); ok {
			trail = append(trail, v.Pos)
		}
	}
	return trail
}

// SelectAt selects the robot standing on p in the current snapshot, or
// clears the selection. Among robots sharing a cell the lowest ID wins.
func (s *State) SelectAt(p core.Position) {
	s.Selected = 0
	snap := s.Current()
	if snap == nil {
		return
	}
	for _, r := range snap.Robots {
		if r.Pos == p {
			s.Selected = r.ID
			return
		}
	}
}
