package refloc

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS rates_location (
    location   TEXT NOT NULL,
    country    TEXT NOT NULL,
    latitude   DOUBLE PRECISION NOT NULL,
    longitude  DOUBLE PRECISION NOT NULL,
    rate_type  TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (location, rate_type)
);
CREATE INDEX IF NOT EXISTS idx_rates_location_country ON rates_location (rate_type, country);
`

// SQLRepository keeps locations in the rates_location table. The SQL is
// shared by Postgres and SQLite.
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// EnsureSchema creates the table and index if they do not exist.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create rates_location: %w", err)
	}
	return nil
}

func (r *SQLRepository) Exists(ctx context.Context, name string, cat Category) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rates_location WHERE location = $1 AND rate_type = $2)`,
		name, string(cat)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check location %q: %w", name, err)
	}
	return exists, nil
}

func (r *SQLRepository) Save(ctx context.Context, loc Location) error {
	if err := loc.validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rates_location (location, country, latitude, longitude, rate_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (location, rate_type) DO UPDATE SET
			country = EXCLUDED.country,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = CURRENT_TIMESTAMP`,
		loc.Name, loc.Country, loc.Latitude, loc.Longitude, string(loc.Category))
	if err != nil {
		return fmt.Errorf("failed to save location %q: %w", loc.Name, err)
	}
	return nil
}

func (r *SQLRepository) ByCountry(ctx context.Context, country string, cat Category) ([]Location, error) {
	return r.query(ctx, `
		SELECT location, country, latitude, longitude, rate_type
		FROM rates_location
		WHERE rate_type = $1 AND country = $2
		ORDER BY location`, string(cat), country)
}

func (r *SQLRepository) All(ctx context.Context, cat Category) ([]Location, error) {
	return r.query(ctx, `
		SELECT location, country, latitude, longitude, rate_type
		FROM rates_location
		WHERE rate_type = $1
		ORDER BY location`, string(cat))
}

func (r *SQLRepository) query(ctx context.Context, q string, args ...any) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locs []Location
	for rows.Next() {
		var (
			loc Location
			cat string
		)
		if err := rows.Scan(&loc.Name, &loc.Country, &loc.Latitude, &loc.Longitude, &cat); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		loc.Category = Category(cat)
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}
