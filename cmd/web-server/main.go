// Flight Arcs Web Server
// Serves the airport catalog and generated route arcs as GeoJSON so a
// browser map (Mapbox GL, MapLibre, Leaflet) can draw them directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/unklstewy/flightarcs/internal/bootstrap"
	"github.com/unklstewy/flightarcs/pkg/config"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
	port       = flag.Int("port", 8080, "HTTP server port")
	origin     = flag.String("origin", "", "Origin airport code (overrides config)")
)

func main() {
	flag.Parse()

	log.Println("🚀 Starting Flight Arcs Web Server...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *origin != "" {
		cfg.Map.Origin = strings.ToUpper(*origin)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := run(cfg, fmt.Sprintf(":%d", *port), quit); err != nil {
		log.Fatal(err)
	}
	log.Println("✅ Server stopped")
}

// run serves the API on addr until quit fires or the listener fails. The
// runtime is closed before run returns.
func run(cfg *config.Config, addr string, quit <-chan os.Signal) error {
	rt, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Console: true})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer rt.Close()

	srv := newServer(rt)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("📡 Server listening on %s", addr)
		log.Printf("🛫 Origin %s, %d airports", rt.Origin.Code(), rt.Catalog.Len())
		log.Printf("💡 Try /api/v1/routes/LHR")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("\n👋 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
