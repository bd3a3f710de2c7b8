package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/unklstewy/flightarcs/internal/bootstrap"
	"github.com/unklstewy/flightarcs/pkg/config"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	origin := flag.String("origin", "", "Origin airport code (overrides config)")
	seed := flag.Int64("seed", 0, "Seed for reproducible routes (default: from config or clock)")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("routemap version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *origin != "" {
		cfg.Map.Origin = strings.ToUpper(*origin)
	}
	if flagPassed(flag.CommandLine, "seed") {
		cfg.Routing.Seed = seed
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

// run owns the runtime so deferred cleanup happens before main exits.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The UI owns the terminal, so logs go to the panel (and the log file, if set)
	logs := NewLogManager(200)
	rt, err := bootstrap.New(ctx, cfg, bootstrap.Options{LogOutput: logs})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer rt.Close()

	rt.ServeMetrics(ctx)

	app := NewApp(ctx, rt, logs)
	if err := app.Run(); err != nil {
		return fmt.Errorf("application error: %w", err)
	}
	return nil
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

// printHelp prints usage information
func printHelp() {
	fmt.Println("routemap - Terminal route map")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  routemap [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to configuration file (default: configs/config.json)")
	fmt.Println("  -origin string")
	fmt.Println("        Origin airport code, e.g. ATL")
	fmt.Println("  -seed int")
	fmt.Println("        Seed for reproducible route sets")
	fmt.Println("  -version")
	fmt.Println("        Show version information")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("MOUSE:")
	fmt.Println("  Hover an airport to highlight it, click it to open its card.")
	fmt.Println("  \"View Details\" on the card makes it the destination and draws")
	fmt.Println("  the direct and one-stop routes from the origin.")
	fmt.Println()
	fmt.Println("KEYBOARD SHORTCUTS:")
	fmt.Println("  ←↑↓→           Pan the map")
	fmt.Println("  +/- or scroll  Zoom in/out")
	fmt.Println("  0              Reset view")
	fmt.Println("  /              Type a destination code")
	fmt.Println("  r              Regenerate routes for the current destination")
	fmt.Println("  TAB            Next panel")
	fmt.Println("  q or ESC       Quit")
	fmt.Println()
	fmt.Println("LEGEND:")
	fmt.Println("  •  airport     ▲  hub     ◉  origin/destination")
	fmt.Println("  ── route leg   ─ ─ partner leg")
}
