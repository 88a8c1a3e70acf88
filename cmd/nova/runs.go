package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/store"
)

var runsFlags struct {
	db    string
	limit int
	robot int
	kind  string
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

var runsEventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "Show a run's deliveries and events",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsEvents,
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsFlags.db, "db", "nova.db", "SQLite file written by run --db")
	runsCmd.PersistentFlags().IntVar(&runsFlags.limit, "limit", 20, "maximum rows")
	runsEventsCmd.Flags().IntVar(&runsFlags.robot, "robot", 0, "only events of this robot")
	runsEventsCmd.Flags().StringVar(&runsFlags.kind, "kind", "", "only events of this kind (e.g. delivered)")
	runsCmd.AddCommand(runsListCmd, runsEventsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	db, err := store.Open(runsFlags.db)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), runsFlags.limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEED\tMAP\tTICKS\tSTARTED\tENDED")
	for _, r := range runs {
		ended := "-"
		if r.EndedAt != nil {
			ended = r.EndedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%dx%d\t%d\t%s\t%s\n", r.ID, r.Seed, r.Width, r.Height, r.Ticks, r.StartedAt.Format(time.RFC3339), ended)
	}
	return w.Flush()
}

func runRunsEvents(cmd *cobra.Command, args []string) error {
	db, err := store.Open(runsFlags.db)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()
	runID := args[0]

	if _, err := db.GetRun(ctx, runID); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	filter := store.EventFilter{Limit: runsFlags.limit}
	if runsFlags.robot > 0 {
		id := core.RobotID(runsFlags.robot)
		filter.Robot = &id
	}
	if runsFlags.kind != "" {
		k, err := sim.ParseEventKind(runsFlags.kind)
		if err != nil {
			return err
		}
		filter.Kind = &k
	}

	out := cmd.OutOrStdout()
	deliveries, err := db.Deliveries(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Delivered: energy %d, mineral %d, scientific interest %d\n",
		deliveries[core.Energy], deliveries[core.Mineral], deliveries[core.ScientificInterest])

	events, err := db.Events(ctx, runID, filter)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintln(out, e)
	}
	return nil
}
