package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/OlivierFch/sky-track/internal/kv"
	"github.com/OlivierFch/sky-track/internal/propagation"
	"github.com/OlivierFch/sky-track/internal/tle"
	"github.com/OlivierFch/sky-track/internal/trail"
	"github.com/spf13/cobra"
)

var (
	source string
	file   string
)

var rootCmd = &cobra.Command{
	Use:   "diag [name]",
	Short: "Resolve one object and print its live position and trail statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiag,
}

func main() {
	rootCmd.Flags().StringVar(&source, "source", tle.DefaultSourceURL, "element set source URL")
	rootCmd.Flags().StringVar(&file, "file", "", "read the three-line element set from this file instead of fetching")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDiag(cmd *cobra.Command, args []string) error {
	name := "ISS (ZARYA)"
	if len(args) == 1 {
		name = args[0]
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	var eph tle.Ephemeris
	var err error
	if file != "" {
		data, readErr := os.ReadFile(file)
		if readErr != nil {
			return fmt.Errorf("reading element set: %w", readErr)
		}
		eph, err = tle.ParseEphemeris(name, string(data))
	} else {
		cache := tle.NewCache(kv.NewMemory(), logger)
		eph, err = tle.NewResolver(cache, tle.NewFetcher(source, logger), logger).Resolve(ctx, name)
	}
	if err != nil {
		return fmt.Errorf("resolving element set: %w", err)
	}
	fmt.Printf("Resolved %s (NORAD %d) epoch %v\n", eph.Name, eph.NORADID(), eph.Epoch().Format(time.RFC3339))

	prop, err := propagation.NewPropagator(propagation.PropConfig{}, logger)
	if err != nil {
		return fmt.Errorf("creating propagator: %w", err)
	}
	sgp4, err := prop.For(eph)
	if err != nil {
		return fmt.Errorf("initialising SGP4: %w", err)
	}
	fmt.Printf("Mean motion: %.6f rad/min, period: %v\n", sgp4.MeanMotion(), sgp4.Period().Round(time.Second))

	now := time.Now().UTC()
	if pos, ok := sgp4.Propagate(now); ok {
		fmt.Printf("Position at %s: lat=%.3f° lon=%.3f° alt=%.1f km\n",
			now.Format(time.RFC3339), pos.Lat, pos.Lon, pos.Alt)
	} else {
		fmt.Printf("Position at %s: unavailable\n", now.Format(time.RFC3339))
	}

	sampler := trail.NewSampler(prop, trail.DefaultConfig(), logger)
	start := time.Now()
	points, err := sampler.Sample(ctx, eph, now)
	if err != nil {
		return fmt.Errorf("sampling trail: %w", err)
	}
	fmt.Printf("Trail: %d points in %v\n", len(points), time.Since(start).Round(time.Millisecond))
	if len(points) > 0 {
		fmt.Printf("  first=%+v\n  last=%+v\n", points[0], points[len(points)-1])
	}
	return nil
}
