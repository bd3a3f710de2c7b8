package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/flightarcs/internal/bootstrap"
	"github.com/unklstewy/flightarcs/internal/session"
	"github.com/unklstewy/flightarcs/pkg/arcs"
	"github.com/unklstewy/flightarcs/pkg/config"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	origin := flag.String("origin", "", "Origin airport code (overrides config)")
	dest := flag.String("dest", "", "Print routes to this destination and exit")
	geojsonPath := flag.String("geojson", "", "With -dest, also write the arcs as GeoJSON to this file (- for stdout)")
	seed := flag.Int64("seed", 0, "Seed for reproducible routes (default: from config or clock)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *origin != "" {
		cfg.Map.Origin = strings.ToUpper(*origin)
	}
	if flagPassed(flag.CommandLine, "seed") {
		cfg.Routing.Seed = seed
	}

	if err := run(cfg, strings.ToUpper(*dest), *geojsonPath); err != nil {
		log.Fatal(err)
	}
}

// run owns the runtime so deferred cleanup happens before main exits. A
// non-empty dest prints the routes instead of starting the viewer.
func run(cfg *config.Config, dest, geojsonPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headless := dest != ""
	opts := bootstrap.Options{Console: headless}
	if !headless {
		// The TUI owns the terminal; without a log file, logs are dropped
		opts.LogOutput = io.Discard
	}

	rt, err := bootstrap.New(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer rt.Close()

	rt.ServeMetrics(ctx)

	sink := mapsink.NewMemory(rt.InitialCamera())
	s := rt.NewSession(sink)
	if err := s.Start(ctx, rt.IconLoader()); err != nil {
		return fmt.Errorf("failed to start map session: %w", err)
	}

	if headless {
		out, err := s.SelectCode(dest)
		if err != nil {
			return fmt.Errorf("failed to generate routes: %w", err)
		}
		if err := printRoutes(os.Stdout, out); err != nil {
			return fmt.Errorf("failed to print routes: %w", err)
		}
		if geojsonPath != "" {
			if err := writeGeoJSON(geojsonPath, out); err != nil {
				return fmt.Errorf("failed to write GeoJSON: %w", err)
			}
		}
		return nil
	}

	p := tea.NewProgram(newModel(rt, sink, s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// flagPassed reports whether name was set on fs, so an explicit zero is
// told apart from the default.
func flagPassed(fs *flag.FlagSet, name string) bool {
	passed := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}

// printRoutes writes one line per route with its legs and distances.
func printRoutes(w io.Writer, out session.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Destination: %s (%s)\n", out.Destination.Code(), out.Destination.Label())
	fmt.Fprintf(tw, "Routes: %d  Sampled: %d  Rejected: %d  Arcs: %d\n\n",
		len(out.Routes), out.Sampled, out.Rejected, len(out.Arcs))

	fmt.Fprintln(tw, "ROUTE\tSTOPS\tDISTANCE")
	for _, r := range out.Routes {
		stops := "direct"
		if wp, ok := r.Waypoint(); ok {
			stops = "via " + wp.Code()
		}
		km, err := r.DistanceKm()
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%.0f km\n", r, stops, km)
	}

	partner := 0
	for _, a := range out.Arcs {
		if a.PartnerAirline {
			partner++
		}
	}
	fmt.Fprintf(tw, "\nLegs flown by partners: %d of %d\n", partner, len(out.Arcs))
	return tw.Flush()
}

// writeGeoJSON writes the arcs of out as a FeatureCollection.
func writeGeoJSON(path string, out session.Outcome) error {
	data, err := arcs.FeatureCollection(out.Arcs).MarshalJSON()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0644)
}
