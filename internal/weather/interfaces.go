package weather

import (
	"context"
	"time"
)

// Client abstracts the Tomorrow.io API for the pipeline. Fetch failures are
// classified via ErrRateLimited and ErrUnauthorized; everything else (network,
// timeout, non-2xx, malformed body) surfaces as a generic error.
type Client interface {
	// FetchTimelines fetches the timelines for one location. startTime and
	// endTime are UTC ISO-8601 strings with a trailing Z and second precision.
	FetchTimelines(ctx context.Context, loc Location, timesteps, startTime, endTime string) (*TimelinesResponse, error)

	// Close releases held connection resources. Idempotent.
	Close() error
}

// LocationStore provides the set of locations to poll.
type LocationStore interface {
	// GetActiveLocations returns active locations ordered by ID.
	GetActiveLocations(ctx context.Context) ([]Location, error)
}

// ReadingStore durably persists normalized readings.
type ReadingStore interface {
	// UpsertReadings bulk inserts-or-updates readings keyed by
	// (location_id, timestamp, data_granularity), overwriting every value
	// field on conflict. An empty slice is a no-op returning 0.
	UpsertReadings(ctx context.Context, readings []Reading) (int, error)

	// DataAvailability returns the earliest and latest stored timestamps for a
	// granularity, or ok=false when no data exists yet.
	DataAvailability(ctx context.Context, granularity Granularity) (earliest, latest time.Time, ok bool, err error)
}
