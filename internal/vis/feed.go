package vis

import "github.com/elektrokombinacija/nova-swarm/internal/sim"

// Feed delivers snapshots to the viewer. Next blocks until one arrives.
// observer.Client and observer.Local implement it.
type Feed interface {
	Next() (*sim.Snapshot, error)
}
