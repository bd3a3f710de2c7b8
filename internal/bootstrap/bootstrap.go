// Package bootstrap turns a loaded configuration into the pieces every
// route tool needs: logger, airport catalog, origin, route generator,
// arc builder, random source and optional metrics.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/unklstewy/flightarcs/internal/db"
	"github.com/unklstewy/flightarcs/internal/session"
	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/arcs"
	"github.com/unklstewy/flightarcs/pkg/config"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
	"github.com/unklstewy/flightarcs/pkg/logger"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
	"github.com/unklstewy/flightarcs/pkg/metrics"
	"github.com/unklstewy/flightarcs/pkg/routing"
)

// DefaultIconSize is the edge length of the built-in hub icon in pixels.
const DefaultIconSize = 64

// Options adjusts how the runtime is assembled.
type Options struct {
	// LogOutput receives console log lines, e.g. a terminal log panel
	LogOutput io.Writer

	// Console also logs to stderr; terminal UIs leave this off
	Console bool

	// Logger replaces the configured logger entirely (tests)
	Logger logger.Logger
}

// Runtime holds the assembled components.
type Runtime struct {
	Config    *config.Config
	Logger    logger.Logger
	Catalog   *airports.Catalog
	Origin    airports.Airport
	Generator *routing.Generator
	Builder   *arcs.Builder
	Random    routing.RandomSource
	Metrics   *metrics.Metrics // nil when disabled

	database *db.DB
}

// New assembles a Runtime from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Options{
			Level:      cfg.Logging.Level,
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
			Console:    opts.Console,
			Extra:      opts.LogOutput,
		})
	}

	rt := &Runtime{Config: cfg, Logger: log}

	catalog, database, err := LoadCatalog(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rt.Catalog = catalog
	rt.database = database

	origin, err := catalog.Lookup(cfg.Map.Origin)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("origin: %w", err)
	}
	rt.Origin = origin

	rt.Generator = routing.NewGenerator(routing.Config{
		DirectProbability: cfg.Routing.DirectProbability,
		SampleProbability: cfg.Routing.SampleProbability,
		MaxLegKm:          cfg.Routing.MaxLegKm,
	})
	rt.Builder = &arcs.Builder{
		PartnerProbability: cfg.Routing.PartnerProbability,
		Points:             cfg.Routing.ArcPoints,
	}

	if cfg.Routing.Seed != nil {
		rt.Random = routing.NewSource(*cfg.Routing.Seed)
	} else {
		rt.Random = routing.NewTimeSource()
	}

	if cfg.Metrics.Enabled {
		rt.Metrics = metrics.NewMetrics(cfg.Metrics.Namespace, nil)
		rt.Generator.WithObserver(rt.Metrics)
	}

	log.Info("Runtime ready",
		"dataset", cfg.Dataset.Source,
		"airports", catalog.Len(),
		"origin", origin.Code(),
		"seeded", cfg.Routing.Seed != nil,
		"metrics", cfg.Metrics.Enabled)
	return rt, nil
}

// LoadCatalog reads airports from the configured dataset source. For the
// postgres source the open connection is returned so the caller can close it.
func LoadCatalog(ctx context.Context, cfg *config.Config, log logger.Logger) (*airports.Catalog, *db.DB, error) {
	switch cfg.Dataset.Source {
	case config.SourceEmbedded, "":
		catalog, err := airports.Embedded()
		if err != nil {
			return nil, nil, fmt.Errorf("embedded dataset: %w", err)
		}
		return catalog, nil, nil

	case config.SourceFile:
		catalog, err := airports.LoadFile(cfg.Dataset.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset file: %w", err)
		}
		return catalog, nil, nil

	case config.SourcePostgres:
		database, err := db.ReconnectWithRetry(ctx, cfg.Database, 3, time.Second, log)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset database: %w", err)
		}
		catalog, err := db.NewAirportRepository(database).LoadCatalog(ctx)
		if err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("dataset database: %w", err)
		}
		return catalog, database, nil

	default:
		return nil, nil, fmt.Errorf("unknown dataset source %q", cfg.Dataset.Source)
	}
}

// InitialCamera is the view before any destination is chosen.
func (r *Runtime) InitialCamera() mapsink.Camera {
	return mapsink.Camera{
		Center: coordinates.LonLat(r.Config.Map.CenterLongitude, r.Config.Map.CenterLatitude),
		Zoom:   r.Config.Map.Zoom,
	}
}

// SessionOptions wires the runtime into a map session.
func (r *Runtime) SessionOptions() session.Options {
	opts := session.Options{
		Generator:  r.Generator,
		Builder:    r.Builder,
		Random:     r.Random,
		FitPadding: r.Config.Map.FitPadding,
		ImageCount: r.Config.Map.PopupImages,
		Logger:     r.Logger,
	}
	// a nil *Metrics in the interface would be non-nil
	if r.Metrics != nil {
		opts.Observer = r.Metrics
	}
	return opts
}

// IconLoader returns the configured hub icon source.
func (r *Runtime) IconLoader() session.IconLoader {
	if r.Config.Map.HubIcon != "" {
		return session.PNGFile(r.Config.Map.HubIcon)
	}
	return session.DeltaCircle(DefaultIconSize)
}

// NewSession creates a session drawing into sink.
func (r *Runtime) NewSession(sink mapsink.Sink) *session.Session {
	return session.New(sink, r.Catalog, r.Origin, r.SessionOptions())
}

// ServeMetrics runs the metrics endpoint until ctx is done. It is a no-op
// when metrics are disabled.
func (r *Runtime) ServeMetrics(ctx context.Context) {
	if r.Metrics == nil {
		return
	}
	go func() {
		r.Logger.Info("Serving metrics", "address", r.Config.Metrics.Address)
		if err := r.Metrics.Serve(ctx, r.Config.Metrics.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Error("Metrics server stopped", "error", err)
		}
	}()
}

// ObserveError counts a failed operation when metrics are enabled.
func (r *Runtime) ObserveError(operation string) {
	if r.Metrics != nil {
		r.Metrics.ObserveError(operation)
	}
}

// Close releases the database connection, if any, and flushes the logger.
func (r *Runtime) Close() {
	if r.database != nil {
		r.database.Close()
		r.database = nil
	}
	_ = r.Logger.Sync()
}
