package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/tcabral/clustopher/cluster"
)

func newBenchCommand() *cobra.Command {
	var numPoints int
	var zoomLevel int
	var cpuProfile string
	var memProfile string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark Load and Search over randomly generated points",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(numPoints, zoomLevel, cpuProfile, memProfile)
		},
	}
	cmd.Flags().IntVar(&numPoints, "points", 100000, "number of points to generate")
	cmd.Flags().IntVar(&zoomLevel, "zoom", 8, "zoom level to query after loading")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	cmd.Flags().StringVar(&memProfile, "memprofile", "", "write a heap profile to this file")
	return cmd
}

func runBench(numPoints, zoomLevel int, cpuProfile, memProfile string) error {
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	fmt.Printf("generating %d points in the continental US\n", numPoints)
	points := generateRandomPoints(numPoints, -125.0, -67.0, 25.0, 49.0)

	opts := geoPointOptions()
	opts.Radius = 40
	opts.Aggregate = sumMetrics()
	engine := cluster.NewSupercluster(opts)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	loadStart := time.Now()
	if err := engine.Load(points); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	fmt.Printf("loaded %d points in %v\n", numPoints, time.Since(loadStart))

	searchStart := time.Now()
	results, err := engine.Search(-180, -90, 180, 90, zoomLevel)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	fmt.Printf("searched zoom %d in %v, %d results\n", zoomLevel, time.Since(searchStart), len(results))

	runtime.ReadMemStats(&after)
	fmt.Printf("heap grew by %s\n", formatFileSize(int64(after.HeapAlloc-before.HeapAlloc)))

	if memProfile != "" {
		f, err := os.Create(memProfile)
		if err != nil {
			return fmt.Errorf("failed to create mem profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("failed to write mem profile: %w", err)
		}
	}
	return nil
}
