package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
)

// ErrMissingIdent is returned when an airport cannot be keyed.
var ErrMissingIdent = errors.New("airport has no ident")

// AirportRepository stores the airport reference dataset.
type AirportRepository struct {
	db *DB
}

// NewAirportRepository creates a new airport repository.
func NewAirportRepository(db *DB) *AirportRepository {
	return &AirportRepository{db: db}
}

const airportColumns = `ident, id, type, name, latitude, longitude, elevation_ft,
	continent, country_name, iso_country, region_name, iso_region, local_region,
	municipality, scheduled_service, gps_code, icao_code, iata_code, local_code,
	home_link, wikipedia_link, keywords, score, hub, last_updated`

const upsertAirportSQL = `INSERT INTO airports (` + airportColumns + `, ordinal, imported_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, NOW())
	ON CONFLICT (ident) DO UPDATE SET
		id = EXCLUDED.id,
		type = EXCLUDED.type,
		name = EXCLUDED.name,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		elevation_ft = EXCLUDED.elevation_ft,
		continent = EXCLUDED.continent,
		country_name = EXCLUDED.country_name,
		iso_country = EXCLUDED.iso_country,
		region_name = EXCLUDED.region_name,
		iso_region = EXCLUDED.iso_region,
		local_region = EXCLUDED.local_region,
		municipality = EXCLUDED.municipality,
		scheduled_service = EXCLUDED.scheduled_service,
		gps_code = EXCLUDED.gps_code,
		icao_code = EXCLUDED.icao_code,
		iata_code = EXCLUDED.iata_code,
		local_code = EXCLUDED.local_code,
		home_link = EXCLUDED.home_link,
		wikipedia_link = EXCLUDED.wikipedia_link,
		keywords = EXCLUDED.keywords,
		score = EXCLUDED.score,
		hub = EXCLUDED.hub,
		last_updated = EXCLUDED.last_updated,
		ordinal = EXCLUDED.ordinal,
		imported_at = NOW()`

// UpsertAirports inserts or updates every airport in one transaction.
// The slice order is stored so LoadCatalog returns the same order.
func (r *AirportRepository) UpsertAirports(ctx context.Context, list []airports.Airport) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertAirportSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, a := range list {
		args, err := airportArgs(a)
		if err != nil {
			return 0, fmt.Errorf("airport %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, append(args, i)...); err != nil {
			return 0, fmt.Errorf("failed to upsert airport %s: %w", a.Ident, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit airports: %w", err)
	}
	return len(list), nil
}

// ListAirports returns all airports in dataset order.
func (r *AirportRepository) ListAirports(ctx context.Context) ([]airports.Airport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+airportColumns+` FROM airports ORDER BY ordinal, ident`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	var list []airports.Airport
	for rows.Next() {
		a, err := scanAirport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate airports: %w", err)
	}
	return list, nil
}

// GetAirport looks up one airport by ident. Returns nil, nil if not found.
func (r *AirportRepository) GetAirport(ctx context.Context, ident string) (*airports.Airport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+airportColumns+` FROM airports WHERE ident = $1`, ident)
	a, err := scanAirport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LoadCatalog reads the stored dataset into a Catalog.
func (r *AirportRepository) LoadCatalog(ctx context.Context) (*airports.Catalog, error) {
	list, err := r.ListAirports(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New("airports table is empty; run import-airports first")
	}
	return airports.NewCatalog(list), nil
}

// DeleteMissing removes airports whose ident is not in keep.
func (r *AirportRepository) DeleteMissing(ctx context.Context, keep []airports.Airport) (int64, error) {
	idents := make([]string, 0, len(keep))
	for _, a := range keep {
		idents = append(idents, a.Ident)
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM airports WHERE NOT (ident = ANY($1))`, pq.Array(idents))
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale airports: %w", err)
	}
	return res.RowsAffected()
}

func airportArgs(a airports.Airport) ([]interface{}, error) {
	if a.Ident == "" {
		return nil, ErrMissingIdent
	}
	if err := coordinates.Validate(a.Position); err != nil {
		return nil, err
	}

	var lastUpdated sql.NullTime
	if !a.LastUpdated.IsZero() {
		lastUpdated = sql.NullTime{Time: a.LastUpdated, Valid: true}
	}

	return []interface{}{
		a.Ident, a.ID, a.Type, a.Name,
		a.Position.Latitude, a.Position.Longitude, a.ElevationFt,
		a.Continent, a.CountryName, a.ISOCountry, a.RegionName, a.ISORegion, a.LocalRegion,
		a.Municipality, a.ScheduledService,
		a.GPSCode, a.ICAOCode, a.IATACode, a.LocalCode,
		a.HomeLink, a.WikipediaLink, a.Keywords,
		a.Score, a.Hub, lastUpdated,
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAirport(row rowScanner) (airports.Airport, error) {
	var a airports.Airport
	var lat, lon float64
	var lastUpdated sql.NullTime

	err := row.Scan(
		&a.Ident, &a.ID, &a.Type, &a.Name, &lat, &lon, &a.ElevationFt,
		&a.Continent, &a.CountryName, &a.ISOCountry, &a.RegionName, &a.ISORegion, &a.LocalRegion,
		&a.Municipality, &a.ScheduledService,
		&a.GPSCode, &a.ICAOCode, &a.IATACode, &a.LocalCode,
		&a.HomeLink, &a.WikipediaLink, &a.Keywords,
		&a.Score, &a.Hub, &lastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("failed to scan airport: %w", err)
	}

	a.Position = coordinates.LonLat(lon, lat)
	if lastUpdated.Valid {
		a.LastUpdated = lastUpdated.Time
	}
	return a, nil
}
