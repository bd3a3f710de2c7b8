package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration.
// Configuration is loaded from a JSON file, then overridden from the
// environment (and a .env file, if present).
type Config struct {
	Map      MapConfig      `json:"map"`
	Routing  RoutingConfig  `json:"routing"`
	Dataset  DatasetConfig  `json:"dataset"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// MapConfig contains the initial view and the session origin.
type MapConfig struct {
	// Origin is the airport code every route starts from (default: "ATL")
	Origin string `json:"origin"`

	// CenterLongitude and CenterLatitude set the initial map center
	CenterLongitude float64 `json:"center_longitude"`
	CenterLatitude  float64 `json:"center_latitude"`

	// Zoom is the initial zoom level (0 = whole world)
	Zoom float64 `json:"zoom"`

	// FitPadding is the padding around the origin and destination markers
	// after a destination is committed
	FitPadding int `json:"fit_padding"`

	// HubIcon is an optional PNG for hub airports; empty draws the built-in icon
	HubIcon string `json:"hub_icon"`

	// PopupImages is the number of popup header images to pick from
	PopupImages int `json:"popup_images"`
}

// RoutingConfig tunes route generation and arc rendering.
type RoutingConfig struct {
	// DirectProbability is the chance the direct route is offered (default: 0.5)
	DirectProbability float64 `json:"direct_probability"`

	// SampleProbability is the chance each airport is evaluated as a waypoint (default: 0.03)
	SampleProbability float64 `json:"sample_probability"`

	// PartnerProbability is the chance a leg is drawn as a partner flight (default: 0.3)
	PartnerProbability float64 `json:"partner_probability"`

	// MaxLegKm bounds the short leg of a one-stop route (default: 2000)
	MaxLegKm float64 `json:"max_leg_km"`

	// ArcPoints is the number of vertices per great-circle arc (default: 100)
	ArcPoints int `json:"arc_points"`

	// Seed makes route sets reproducible; nil seeds from the clock
	Seed *int64 `json:"seed,omitempty"`
}

// DatasetConfig selects where airports are loaded from.
type DatasetConfig struct {
	// Source is one of "embedded", "file" or "postgres"
	Source string `json:"source"`

	// Path is the GeoJSON file used when Source is "file"
	Path string `json:"path"`

	// URL is the remote GeoJSON fetched by the import tool
	URL string `json:"url"`

	// RequestsPerSecond limits remote fetches
	RequestsPerSecond float64 `json:"requests_per_second"`

	// MaxRetries is the number of retries for failed fetches
	MaxRetries int `json:"max_retries"`

	// TimeoutSeconds is the HTTP timeout per request
	TimeoutSeconds int `json:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Driver is the database driver (postgres)
	Driver string `json:"driver"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level"`

	// File enables rotated JSON logs; the terminal UIs own stdout
	File string `json:"file"`

	MaxSizeMB  int  `json:"max_size_mb"`
	MaxBackups int  `json:"max_backups"`
	MaxAgeDays int  `json:"max_age_days"`
	Compress   bool `json:"compress"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`

	// Address is the listen address for /metrics (e.g. ":9102")
	Address string `json:"address"`

	// Namespace prefixes every metric name
	Namespace string `json:"namespace"`
}

// Dataset sources
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Map: MapConfig{
			Origin:          "ATL",
			CenterLongitude: -73.99055,
			CenterLatitude:  40.735225,
			Zoom:            2,
			FitPadding:      300,
			PopupImages:     11,
		},
		Routing: RoutingConfig{
			DirectProbability:  0.5,
			SampleProbability:  0.03,
			PartnerProbability: 0.3,
			MaxLegKm:           2000,
			ArcPoints:          100,
		},
		Dataset: DatasetConfig{
			Source:            SourceEmbedded,
			RequestsPerSecond: 1,
			MaxRetries:        3,
			TimeoutSeconds:    30,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			Database:     "flightarcs",
			Username:     "flightarcs",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  32,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Address:   ":9102",
			Namespace: "flightarcs",
		},
	}
}

// Validate rejects settings the route generator cannot run with.
func (c *Config) Validate() error {
	var errs []error

	probs := []struct {
		name  string
		value float64
	}{
		{"routing.direct_probability", c.Routing.DirectProbability},
		{"routing.sample_probability", c.Routing.SampleProbability},
		{"routing.partner_probability", c.Routing.PartnerProbability},
	}
	for _, p := range probs {
		if p.value < 0 || p.value > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", p.name, p.value))
		}
	}

	if c.Routing.MaxLegKm <= 0 {
		errs = append(errs, fmt.Errorf("routing.max_leg_km must be positive, got %v", c.Routing.MaxLegKm))
	}
	if c.Routing.ArcPoints < 2 {
		errs = append(errs, fmt.Errorf("routing.arc_points must be at least 2, got %d", c.Routing.ArcPoints))
	}
	if c.Map.Origin == "" {
		errs = append(errs, errors.New("map.origin is required"))
	}
	if c.Map.CenterLongitude < -180 || c.Map.CenterLongitude > 180 ||
		c.Map.CenterLatitude < -90 || c.Map.CenterLatitude > 90 {
		errs = append(errs, fmt.Errorf("map center (%v, %v) out of range", c.Map.CenterLongitude, c.Map.CenterLatitude))
	}

	switch c.Dataset.Source {
	case SourceEmbedded, SourcePostgres:
	case SourceFile:
		if c.Dataset.Path == "" {
			errs = append(errs, errors.New("dataset.path is required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dataset.source %q", c.Dataset.Source))
	}

	return errors.Join(errs...)
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() error {
	if dbPassword := os.Getenv("FLIGHTARCS_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if origin := os.Getenv("FLIGHTARCS_ORIGIN"); origin != "" {
		c.Map.Origin = origin
	}
	if seed := os.Getenv("FLIGHTARCS_SEED"); seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid FLIGHTARCS_SEED: %w", err)
		}
		c.Routing.Seed = &v
	}
	if url := os.Getenv("FLIGHTARCS_DATASET_URL"); url != "" {
		c.Dataset.URL = url
	}
	if level := os.Getenv("FLIGHTARCS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("FLIGHTARCS_METRICS_ADDR"); addr != "" {
		c.Metrics.Address = addr
		c.Metrics.Enabled = true
	}
	return nil
}
