package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/nova-swarm/internal/core"
	"github.com/elektrokombinacija/nova-swarm/internal/sim"
	"github.com/elektrokombinacija/nova-swarm/internal/tui"
)

var genmapFlags struct {
	seed   int64
	width  int
	height int
	out    string
	print  bool
}

var genmapCmd = &cobra.Command{
	Use:   "genmap",
	Short: "Generate a map and save it",
	Long:  `Generates a map from a seed and saves it zstd-compressed, for use with run --map.`,
	RunE:  runGenmap,
}

func init() {
	f := genmapCmd.Flags()
	f.Int64Var(&genmapFlags.seed, "seed", 42, "world seed")
	f.IntVar(&genmapFlags.width, "width", 10, "map width")
	f.IntVar(&genmapFlags.height, "height", 10, "map height")
	f.StringVarP(&genmapFlags.out, "out", "o", "", "output file (default map_seed_<seed>.json.zst)")
	f.BoolVar(&genmapFlags.print, "print", true, "print the map")
}

func runGenmap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if genmapFlags.width <= 0 || genmapFlags.height <= 0 {
		return fmt.Errorf("map size %dx%d", genmapFlags.width, genmapFlags.height)
	}
	m := core.GenerateMap(genmapFlags.width, genmapFlags.height, genmapFlags.seed, cfg.World.Gen)

	path := genmapFlags.out
	if path == "" {
		path = fmt.Sprintf("map_seed_%d.json.zst", genmapFlags.seed)
	}
	if err := core.SaveMap(path, m, genmapFlags.seed); err != nil {
		return fmt.Errorf("save map: %w", err)
	}

	out := cmd.OutOrStdout()
	if genmapFlags.print {
		snap := &sim.Snapshot{
			Width:      m.Width,
			Height:     m.Height,
			Station:    core.Position{X: -1, Y: -1},
			Terrain:    m.TerrainGlyphs(),
			Discovered: m.DiscoveredRows(),
			Resources:  m.Resources(),
		}
		fmt.Fprintf(out, "Map %dx%d (seed: %d)\n%s\n%s\n", m.Width, m.Height, genmapFlags.seed, tui.Legend(), tui.RenderMap(snap, false, 0))
	}
	totals := m.TotalResources()
	fmt.Fprintf(out, "Resources: energy %d, mineral %d, scientific interest %d\n",
		totals[core.Energy], totals[core.Mineral], totals[core.ScientificInterest])
	fmt.Fprintf(out, "Map saved to %s\n", path)
	return nil
}
