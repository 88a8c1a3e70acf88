package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/nova-swarm/internal/runner"
	"github.com/elektrokombinacija/nova-swarm/internal/transport/observer"
	"github.com/elektrokombinacija/nova-swarm/internal/tui"
)

var (
	tuiConnect string
	tuiLogFile string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run a simulation in the terminal viewer",
	Long:  `Runs a local simulation and shows it in the terminal, or follows a remote one with --connect ws://host:port/v1/ws.`,
	RunE:  runTUI,
}

func init() {
	addWorldFlags(tuiCmd)
	tuiCmd.Flags().StringVar(&tuiConnect, "connect", "", "follow a remote observer instead of running locally")
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "write logs here (the screen is taken by the viewer)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyWorldFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if tuiLogFile != "" {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut, cfg)
	ctx := cmd.Context()

	if tuiConnect != "" {
		client, err := observer.Dial(ctx, tuiConnect)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := tui.New(client, client, nil).Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	}

	r, err := runner.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := r.Run(ctx)
		done <- err
	}()

	local := observer.NewLocal(r.Clock)
	defer local.Close()
	uiErr := tui.New(local, local, r.Clock).Run()

	r.Clock.Stop()
	if err := <-done; err != nil && ctx.Err() == nil {
		return err
	}
	if uiErr != nil {
		return fmt.Errorf("TUI error: %w", uiErr)
	}
	return nil
}
