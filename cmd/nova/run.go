package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/nova-swarm/internal/config"
	"github.com/elektrokombinacija/nova-swarm/internal/runner"
)

var runFlags struct {
	seed     int64
	width    int
	height   int
	robots   int
	ticks    uint64
	interval time.Duration
	mapFile  string
	db       string
	observe  string
	metrics  string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation headless",
	Long:  `Runs the simulation until --ticks is reached or the process is interrupted, then prints the final metrics.`,
	RunE:  runRun,
}

func init() {
	addWorldFlags(runCmd)
	runCmd.Flags().StringVar(&runFlags.metrics, "metrics", "", "write final metrics JSON to this file")
}

// addWorldFlags registers the flags shared by run and tui.
func addWorldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&runFlags.seed, "seed", 42, "world seed")
	f.IntVar(&runFlags.width, "width", 10, "map width")
	f.IntVar(&runFlags.height, "height", 10, "map height")
	f.IntVar(&runFlags.robots, "robots", 5, "initial robots")
	f.Uint64Var(&runFlags.ticks, "ticks", 0, "stop after this many ticks (0: until interrupted)")
	f.DurationVar(&runFlags.interval, "interval", 100*time.Millisecond, "wall time between ticks")
	f.StringVar(&runFlags.mapFile, "map", "", "load the map from a .json.zst file")
	f.StringVar(&runFlags.db, "db", "", "record the run in this SQLite file")
	f.StringVar(&runFlags.observe, "observe", "", "serve the websocket observer on this address")
}

// applyWorldFlags overrides config values with flags the user set.
func applyWorldFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.World.Seed = runFlags.seed
	}
	if f.Changed("width") {
		cfg.World.Width = runFlags.width
	}
	if f.Changed("height") {
		cfg.World.Height = runFlags.height
	}
	if f.Changed("robots") {
		cfg.Station.Robots = runFlags.robots
	}
	if f.Changed("ticks") {
		cfg.Sim.MaxTicks = runFlags.ticks
	}
	if f.Changed("interval") {
		cfg.Sim.TickInterval = runFlags.interval
	}
	if f.Changed("map") {
		cfg.World.MapFile = runFlags.mapFile
	}
	if f.Changed("db") {
		cfg.Store.Path = runFlags.db
	}
	if f.Changed("observe") {
		cfg.Observer.Addr = runFlags.observe
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyWorldFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Starting simulation: seed %d, map %dx%d, %d robots\n",
		cfg.World.Seed, cfg.World.Width, cfg.World.Height, cfg.Station.Robots)

	res, err := r.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}

	if runFlags.metrics != "" {
		if err := r.Clock.ExportMetrics(runFlags.metrics); err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(struct {
		Run      string `json:"run,omitempty"`
		Duration string `json:"duration"`
		Metrics  any    `json:"metrics"`
		Ledger   any    `json:"ledger"`
	}{r.RunID, res.Duration, res.Metrics, r.Station.Ledger()}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
