package state

import "time"

// PlaybackState is a cursor over the snapshot history. Cursor and Max are
// history indices; Speed is in ticks per second.
type PlaybackState struct {
	Cursor  float64
	Max     float64
	Speed   float64
	Playing bool
	// Follow pins the cursor to the newest snapshot as history grows.
	Follow bool

	lastUpdate time.Time
}

func NewPlaybackState() *PlaybackState {
	return &PlaybackState{Speed: 4, Follow: true}
}

// Index is the history index under the cursor.
func (p *PlaybackState) Index() int {
	return int(p.Cursor)
}

func (p *PlaybackState) TogglePlay(now time.Time) {
	if p.Playing {
		p.Pause()
		return
	}
	p.Play(now)
}

// Play starts replay from the cursor, rewinding if it is at the end.
func (p *PlaybackState) Play(now time.Time) {
	if p.Cursor >= p.Max {
		p.Cursor = 0
	}
	p.Playing = true
	p.Follow = false
	p.lastUpdate = now
}

func (p *PlaybackState) Pause() {
	p.Playing = false
}

// Live jumps to the newest snapshot and follows it.
func (p *PlaybackState) Live() {
	p.Playing = false
	p.Follow = true
	p.Cursor = p.Max
}

// Advance moves the cursor by the time elapsed since the last call. Replay
// that reaches the newest snapshot switches to Follow.
func (p *PlaybackState) Advance(now time.Time) {
	if !p.Playing {
		return
	}
	elapsed := now.Sub(p.lastUpdate).Seconds()
	p.lastUpdate = now
	p.Cursor += elapsed * p.Speed
	if p.Cursor >= p.Max {
		p.Live()
	}
}

// Extend records a new history length. Follow keeps the cursor at the end.
func (p *PlaybackState) Extend(max int) {
	p.Max = float64(max)
	if p.Follow || p.Cursor > p.Max {
		p.Cursor = p.Max
	}
}

// Shift moves the cursor back by n after n old snapshots were dropped.
func (p *PlaybackState) Shift(n int) {
	p.Cursor -= float64(n)
	if p.Cursor < 0 {
		p.Cursor = 0
	}
}

// Seek sets the cursor, clamped to the history.
func (p *PlaybackState) Seek(c float64) {
	if c < 0 {
		c = 0
	}
	if c > p.Max {
		c = p.Max
	}
	p.Cursor = c
	p.Follow = c == p.Max
}

func (p *PlaybackState) StepForward() {
	p.Pause()
	p.Seek(float64(p.Index() + 1))
}

func (p *PlaybackState) StepBack() {
	p.Pause()
	p.Seek(float64(p.Index() - 1))
}

func (p *PlaybackState) SetSpeed(speed float64) {
	if speed < 0.5 {
		speed = 0.5
	}
	if speed > 64 {
		speed = 64
	}
	p.Speed = speed
}

// Progress returns the cursor position as 0..1.
func (p *PlaybackState) Progress() float64 {
	if p.Max <= 0 {
		return 1
	}
	return p.Cursor / p.Max
}
