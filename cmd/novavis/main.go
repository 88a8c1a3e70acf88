// Command novavis shows a swarm simulation in a desktop window. It runs a
// simulation locally, or follows a remote observer with -connect.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/elektrokombinacija/nova-swarm/internal/config"
	"github.com/elektrokombinacija/nova-swarm/internal/runner"
	"github.com/elektrokombinacija/nova-swarm/internal/transport/observer"
	"github.com/elektrokombinacija/nova-swarm/internal/vis"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	connect := flag.String("connect", "", "follow a remote observer (ws://host:port/v1/ws)")
	seed := flag.Int64("seed", 0, "world seed (0: from config)")
	width := flag.Int("width", 0, "map width (0: from config)")
	height := flag.Int("height", 0, "map height (0: from config)")
	interval := flag.Duration("interval", 250*time.Millisecond, "wall time between ticks")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}
	if *width > 0 {
		cfg.World.Width = *width
	}
	if *height > 0 {
		cfg.World.Height = *height
	}
	cfg.Sim.TickInterval = *interval
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("Nova Swarm"),
			app.Size(unit.Dp(1200), unit.Dp(900)),
		)
		if err := run(window, cfg, *connect, logger); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func run(w *app.Window, cfg config.Config, connect string, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if connect != "" {
		client, err := observer.Dial(ctx, connect)
		if err != nil {
			return err
		}
		defer client.Close()
		return vis.NewApp(client, client, logger).Run(w)
	}

	r, err := runner.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	local := observer.NewLocal(r.Clock)
	defer local.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := r.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("simulation", "error", err)
		}
	}()

	err = vis.NewApp(local, local, logger).Run(w)
	r.Clock.Stop()
	<-done
	return err
}
