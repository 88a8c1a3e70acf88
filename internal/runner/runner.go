// Package runner assembles a simulation run from configuration: world,
// station, behavior engine, clock, and the optional store and observer.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elektrokombinacija/nova-swarm/internal/config"
	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/station"
	"github.com/elektrokombinacija/nova-swarm/internal/store"
	"github.com/elektrokombinacija/nova-swarm/internal/transport/observer"
)

// Runner owns the components of one run.
type Runner struct {
	Config  config.Config
	Clock   *sim.Clock
	Station *station.Station
	Store   *store.Store // nil unless Config.Store.Path is set
	RunID   string

	log *slog.Logger
}

// New builds every component but does not start the clock.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, home, seed, err := cfg.World.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Sim.Seed == 0 {
		cfg.Sim.Seed = seed
	}

	st := station.New(home, cfg.Station, logger.With("component", "station"))
	sc := core.NewScenario(m, home, seed)
	sc.Robots = st.InitialRoster()

	engine, err := cfg.Engine(logger.With("component", "behavior"))
	if err != nil {
		return nil, err
	}

	r := &Runner{Config: cfg, Station: st, log: logger}
	if cfg.Store.Path != "" {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		run, err := db.CreateRun(ctx, seed, m.Width, m.Height, cfg)
		if err != nil {
			db.Close()
			return nil, err
		}
		st.SetRecorder(db, run.ID)
		r.Store, r.RunID = db, run.ID
		logger.Info("recording run", "run", run.ID, "path", cfg.Store.Path)
	}

	clock, err := sim.New(cfg.Sim, sc, engine, st, logger.With("component", "clock"))
	if err != nil {
		r.Close()
		return nil, err
	}
	r.Clock = clock
	return r, nil
}

// Run serves the observer when configured and runs the clock until it
// stops, MaxTicks is reached or ctx is cancelled. The run record is
// finished with the final metrics.
func (r *Runner) Run(ctx context.Context) (*sim.Result, error) {
	obsErr := make(chan error, 1)
	obsCtx, stopObserver := context.WithCancel(ctx)
	defer stopObserver()
	if addr := r.Config.Observer.Addr; addr != "" {
		srv := observer.NewServer(r.Clock, r.Clock, r.log.With("component", "observer"))
		go func() { obsErr <- srv.ListenAndServe(obsCtx, addr) }()
	} else {
		obsErr <- nil
	}

	result, err := sim.RunSimulation(ctx, r.Clock)

	if r.Store != nil {
		// The run may have been cancelled; the record is still closed.
		if ferr := r.Store.FinishRun(context.WithoutCancel(ctx), r.RunID, result.Metrics.Ticks, result.Metrics); ferr != nil {
			r.log.Error("finish run", "run", r.RunID, "error", ferr)
		}
	}

	stopObserver()
	if oerr := <-obsErr; oerr != nil && !errors.Is(oerr, http.ErrServerClosed) {
		r.log.Error("observer", "error", oerr)
	}
	return result, err
}

// Close releases the store.
func (r *Runner) Close() error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
