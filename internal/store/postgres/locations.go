package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/i474232898/tomorrow-pipeline/internal/logger"
	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

const locationColumns = "id, lat, lon, name, is_active, created_at"

// LocationStore provides CRUD operations for the locations table.
// It satisfies weather.LocationStore.
type LocationStore struct {
	db DB
}

// NewLocationStore creates a LocationStore backed by db.
func NewLocationStore(db DB) *LocationStore {
	return &LocationStore{db: db}
}

// GetActiveLocations returns all locations flagged active, ordered by ID so
// the pipeline visits them in a stable order.
func (s *LocationStore) GetActiveLocations(ctx context.Context) ([]weather.Location, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE is_active = TRUE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active locations: %w", err)
	}
	defer rows.Close()

	var locations []weather.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read locations: %w", err)
	}

	logger.Get().Infow("locations_fetched", "count", len(locations))
	return locations, nil
}

// GetByID fetches a single location. Returns ErrNotFound when absent.
func (s *LocationStore) GetByID(ctx context.Context, id int) (*weather.Location, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE id = $1`, id)

	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &loc, nil
}

// GetByCoordinates fetches a location by its (lat, lon) identity.
// Returns ErrNotFound when absent.
func (s *LocationStore) GetByCoordinates(ctx context.Context, lat, lon float64) (*weather.Location, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE lat = $1 AND lon = $2`, lat, lon)

	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &loc, nil
}

// Create inserts a location, reactivating and renaming an existing record
// when the coordinates are already known. Returns the location ID.
func (s *LocationStore) Create(ctx context.Context, loc weather.Location) (int, error) {
	var id int
	err := s.db.QueryRow(ctx, `
		INSERT INTO locations (lat, lon, name, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (lat, lon) DO UPDATE SET
			name = EXCLUDED.name,
			is_active = TRUE
		RETURNING id`,
		loc.Lat, loc.Lon, loc.Name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create location: %w", err)
	}

	logger.Get().Infow("location_created", "id", id, "lat", loc.Lat, "lon", loc.Lon, "name", loc.Name)
	return id, nil
}

func scanLocation(row pgx.Row) (weather.Location, error) {
	var (
		loc       weather.Location
		name      *string
		createdAt *time.Time
	)
	if err := row.Scan(&loc.ID, &loc.Lat, &loc.Lon, &name, &loc.IsActive, &createdAt); err != nil {
		return weather.Location{}, fmt.Errorf("failed to scan location: %w", err)
	}
	if name != nil {
		loc.Name = *name
	}
	if createdAt != nil {
		loc.CreatedAt = *createdAt
	}
	return loc, nil
}
