package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func strPtr(s string) *string { return &s }

func TestGetActiveLocations(t *testing.T) {
	mock := newMockPool(t)
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, lat, lon, name, is_active, created_at").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lat", "lon", "name", "is_active", "created_at"}).
			AddRow(1, 25.86, -97.42, strPtr("Brownsville"), true, &createdAt).
			AddRow(2, 26.2034, -98.23, (*string)(nil), true, (*time.Time)(nil)))

	locations, err := NewLocationStore(mock).GetActiveLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locations, 2)

	assert.Equal(t, 1, locations[0].ID)
	assert.Equal(t, 25.86, locations[0].Lat)
	assert.Equal(t, -97.42, locations[0].Lon)
	assert.Equal(t, "Brownsville", locations[0].Name)
	assert.True(t, locations[0].IsActive)
	assert.Equal(t, createdAt, locations[0].CreatedAt)

	// NULL name and created_at stay zero-valued.
	assert.Equal(t, 2, locations[1].ID)
	assert.Empty(t, locations[1].Name)
	assert.True(t, locations[1].CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveLocationsEmpty(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery("SELECT id, lat, lon, name, is_active, created_at").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lat", "lon", "name", "is_active", "created_at"}))

	locations, err := NewLocationStore(mock).GetActiveLocations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, locations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery("SELECT id, lat, lon, name, is_active, created_at").
		WithArgs(42).
		WillReturnError(pgx.ErrNoRows)

	loc, err := NewLocationStore(mock).GetByID(context.Background(), 42)
	assert.Nil(t, loc)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByCoordinates(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery("SELECT id, lat, lon, name, is_active, created_at").
		WithArgs(25.86, -97.42).
		WillReturnRows(pgxmock.NewRows([]string{"id", "lat", "lon", "name", "is_active", "created_at"}).
			AddRow(7, 25.86, -97.42, strPtr("Brownsville"), false, (*time.Time)(nil)))

	loc, err := NewLocationStore(mock).GetByCoordinates(context.Background(), 25.86, -97.42)
	require.NoError(t, err)
	assert.Equal(t, 7, loc.ID)
	assert.False(t, loc.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLocation(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery("INSERT INTO locations").
		WithArgs(25.86, -97.42, "Brownsville").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(3))

	id, err := NewLocationStore(mock).Create(context.Background(), weather.Location{
		Lat:  25.86,
		Lon:  -97.42,
		Name: "Brownsville",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
