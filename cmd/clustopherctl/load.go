package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tcabral/clustopher/cluster"
	"github.com/tcabral/clustopher/clusterio"
)

func newLoadCommand() *cobra.Command {
	var zoom int
	var mmap bool

	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Load a saved cluster snapshot and report its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(args[0], zoom, mmap)
		},
	}
	cmd.Flags().IntVar(&zoom, "zoom", 0, "zoom level to summarize after loading")
	cmd.Flags().BoolVar(&mmap, "mmap", false, "read the snapshot via memory-mapped I/O instead of a zstd stream")
	return cmd
}

func runLoad(path string, zoom int, useMMap bool) error {
	codec := clusterio.JSONCodec[GeoPoint]()
	var points []GeoPoint
	var err error
	if useMMap {
		points, err = clusterio.LoadCompressedMMap(path, codec)
	} else {
		points, err = clusterio.LoadCompressed(path, codec)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	opts := geoPointOptions()
	opts.Aggregate = sumMetrics()
	engine := cluster.NewSupercluster(opts)
	if err := engine.Load(points); err != nil {
		return fmt.Errorf("failed to build cluster from %s: %w", path, err)
	}

	results, err := engine.Search(-180, -90, 180, 90, zoom)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("loaded %d points from %s\n", len(points), path)
	fmt.Printf("zoom %d: %d visible elements\n", zoom, len(results))
	return nil
}
