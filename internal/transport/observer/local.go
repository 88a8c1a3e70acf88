package observer

import (
	"errors"
	"io"
	"sync"

	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

// Local is an in-process viewer connection to a clock. It offers the same
// Next/Control surface as Client without a socket.
type Local struct {
	clock       *sim.Clock
	snaps       <-chan *sim.Snapshot
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

func NewLocal(c *sim.Clock) *Local {
	snaps, unsubscribe := c.Subscribe()
	return &Local{
		clock:       c,
		snaps:       snaps,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}
}

// Next blocks for the next snapshot. It returns io.EOF after Close.
func (l *Local) Next() (*sim.Snapshot, error) {
	select {
	case s := <-l.snaps:
		return s, nil
	case <-l.done:
		return nil, io.EOF
	}
}

// Control applies pause, resume or stop to the clock.
func (l *Local) Control(action string) error {
	switch action {
	case "pause":
		return l.clock.Pause()
	case "resume":
		return l.clock.Resume()
	case "stop":
		l.clock.Stop()
		return nil
	}
	return errors.New("unknown action " + action)
}

func (l *Local) Close() error {
	l.closeOnce.Do(func() {
		l.unsubscribe()
		close(l.done)
	})
	return nil
}
