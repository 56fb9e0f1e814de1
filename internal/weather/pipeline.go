package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/tomorrow-pipeline/internal/logger"
)

// DefaultPacing is the fixed delay inserted between successive vendor calls.
// It is a deliberate self-imposed rate limit, not a response-driven backoff.
const DefaultPacing = 3 * time.Second

// RunOptions controls a single pipeline run. The zero value runs the hourly
// pipeline over the default time range for all active locations.
type RunOptions struct {
	// Client to fetch with. When nil the pipeline constructs its own client
	// and closes it before returning.
	Client Client

	// Granularity of the readings to produce. Defaults to hourly.
	Granularity Granularity

	// Timesteps is the vendor timestep tag. Defaults to Granularity.Timestep().
	Timesteps string

	// StartTime and EndTime bound the requested range. When zero they default
	// to now-1d and now+5d respectively.
	StartTime time.Time
	EndTime   time.Time

	// Locations to process, in order. When nil the active locations are
	// loaded from the location store.
	Locations []Location
}

// Result is the immutable summary of one pipeline run.
type Result struct {
	LocationsProcessed int
	ReadingsInserted   int
	LocationsFailed    int
	Errors             []string
	StartedAt          time.Time
	CompletedAt        time.Time
	Duration           time.Duration
}

// Success reports whether every attempted location was processed. An isolated
// persistence failure does not flip this; it is recorded in Errors only.
func (r Result) Success() bool {
	return r.LocationsFailed == 0
}

// TotalLocations is the number of locations attempted.
func (r Result) TotalLocations() int {
	return r.LocationsProcessed + r.LocationsFailed
}

// Pipeline extracts forecasts per location, transforms them into normalized
// readings, and loads them in one batched upsert. It is the error boundary
// for a run: Run never returns an error, every fault lands in the Result.
type Pipeline struct {
	locations LocationStore
	readings  ReadingStore
	newClient func() (Client, error)
	pacing    time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPacing overrides the inter-request pacing delay. Used by tests; the
// production delay is DefaultPacing.
func WithPacing(d time.Duration) Option {
	return func(p *Pipeline) {
		p.pacing = d
	}
}

// NewPipeline creates a Pipeline. newClient is invoked when a run is started
// without an injected client; the pipeline owns and closes clients it creates.
func NewPipeline(locations LocationStore, readings ReadingStore, newClient func() (Client, error), opts ...Option) *Pipeline {
	p := &Pipeline{
		locations: locations,
		readings:  readings,
		newClient: newClient,
		pacing:    DefaultPacing,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunHourly runs the standard hourly pipeline over the default time range.
func (p *Pipeline) RunHourly(ctx context.Context) Result {
	return p.Run(ctx, RunOptions{Granularity: GranularityHourly, Timesteps: "1h"})
}

// RunMinutely runs the high-frequency minutely pipeline.
func (p *Pipeline) RunMinutely(ctx context.Context) Result {
	return p.Run(ctx, RunOptions{Granularity: GranularityMinutely, Timesteps: "1m"})
}

// Run executes one complete extract-transform-load cycle.
//
// Locations are visited strictly sequentially in input order with a fixed
// pacing delay before every call except the first. A rate-limited call aborts
// the loop to preserve quota; any other failure is recorded and the loop
// continues. Whatever was accumulated is always persisted in a single batched
// upsert, even after an abort.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) Result {
	log := logger.Get().With("run_id", uuid.NewString())
	startedAt := time.Now().UTC()

	var (
		locationsProcessed int
		readingsInserted   int
		locationsFailed    int
		errs               []string
	)

	if opts.Granularity == "" {
		opts.Granularity = GranularityHourly
	}
	if opts.Timesteps == "" {
		opts.Timesteps = opts.Granularity.Timestep()
	}

	client := opts.Client
	clientCreated := false
	if client == nil {
		c, err := p.newClient()
		if err != nil {
			errs = append(errs, fmt.Sprintf("Pipeline failed: %v", err))
			log.Errorw("client_setup_failed", "error", err)
			return p.finalize(log, startedAt, locationsProcessed, readingsInserted, locationsFailed, errs)
		}
		client = c
		clientCreated = true
	}
	defer func() {
		if clientCreated {
			if err := client.Close(); err != nil {
				log.Warnw("client_close_failed", "error", err)
			}
		}
	}()

	locations := opts.Locations
	if locations == nil {
		log.Infow("loading_active_locations")
		locs, err := p.locations.GetActiveLocations(ctx)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Pipeline failed: %v", err))
			log.Errorw("pipeline_failed", "error", err)
			return p.finalize(log, startedAt, locationsProcessed, readingsInserted, locationsFailed, errs)
		}
		locations = locs
		log.Infow("loaded_locations", "count", len(locations))
	}

	if len(locations) == 0 {
		// No attempts were made, so the run still counts as successful.
		log.Warnw("no_locations_to_process")
		errs = append(errs, "No active locations found")
		return p.finalize(log, startedAt, locationsProcessed, readingsInserted, locationsFailed, errs)
	}

	startTime := opts.StartTime
	if startTime.IsZero() {
		startTime = startedAt.Add(-24 * time.Hour)
	}
	endTime := opts.EndTime
	if endTime.IsZero() {
		endTime = startedAt.Add(5 * 24 * time.Hour)
	}
	startStr := formatAPITime(startTime)
	endStr := formatAPITime(endTime)

	log.Infow("etl_pipeline_started",
		"locations", len(locations),
		"granularity", opts.Granularity,
		"timesteps", opts.Timesteps,
		"start", startStr,
		"end", endStr,
	)

	var allReadings []Reading
	rateLimited := false

	for i, loc := range locations {
		if i > 0 {
			log.Debugw("rate_limit_delay", "duration", p.pacing)
			p.pace(ctx)
		}

		log.Debugw("fetching_weather", "location_id", loc.ID, "lat", loc.Lat, "lon", loc.Lon)

		readings, err := p.extract(ctx, client, loc, opts.Timesteps, startStr, endStr, opts.Granularity)

		switch {
		case err == nil:
			allReadings = append(allReadings, readings...)
			locationsProcessed++
			log.Debugw("location_processed", "location_id", loc.ID, "count", len(readings))

		case errors.Is(err, ErrRateLimited):
			locationsFailed++
			errs = append(errs, fmt.Sprintf("Rate limit hit at location %d - stopping to preserve quota", loc.ID))
			log.Warnw("rate_limit_hit", "location_id", loc.ID, "message", "stopping to preserve quota")
			rateLimited = true

		case isAPIError(err):
			locationsFailed++
			errs = append(errs, fmt.Sprintf("API error for location %d: %v", loc.ID, err))
			log.Errorw("api_error", "location_id", loc.ID, "error", err)

		default:
			locationsFailed++
			errs = append(errs, fmt.Sprintf("Unexpected error for location %d: %v", loc.ID, err))
			log.Errorw("unexpected_error", "location_id", loc.ID, "error", err)
		}

		if rateLimited {
			// Stop fetching but still load what we have.
			break
		}
	}

	if rateLimited {
		log.Warnw("etl_pipeline_rate_limited",
			"locations_processed", locationsProcessed,
			"total_locations", len(locations),
		)
	}

	if len(allReadings) > 0 {
		log.Infow("inserting_readings", "count", len(allReadings))
		count, err := p.readings.UpsertReadings(ctx, allReadings)
		if err != nil {
			// Load failure is orthogonal to per-location accounting: record it
			// without touching locationsFailed.
			errs = append(errs, fmt.Sprintf("Database insert failed: %v", err))
			log.Errorw("database_insert_failed", "error", err)
		} else {
			readingsInserted = count
			log.Infow("inserted_readings", "count", readingsInserted)
		}
	} else {
		log.Warnw("no_readings_to_insert")
	}

	return p.finalize(log, startedAt, locationsProcessed, readingsInserted, locationsFailed, errs)
}

// extract fetches and transforms one location. A panic from a misbehaving
// injected client is converted to an error so a single location can never
// take down the batch.
func (p *Pipeline) extract(ctx context.Context, client Client, loc Location, timesteps, startTime, endTime string, granularity Granularity) (readings []Reading, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during extraction: %v", r)
		}
	}()

	resp, err := client.FetchTimelines(ctx, loc, timesteps, startTime, endTime)
	if err != nil {
		return nil, err
	}
	return Transform(loc, resp, granularity), nil
}

func (p *Pipeline) finalize(log *zap.SugaredLogger, startedAt time.Time, processed, inserted, failed int, errs []string) Result {
	completedAt := time.Now().UTC()
	result := Result{
		LocationsProcessed: processed,
		ReadingsInserted:   inserted,
		LocationsFailed:    failed,
		Errors:             errs,
		StartedAt:          startedAt,
		CompletedAt:        completedAt,
		Duration:           completedAt.Sub(startedAt),
	}

	fields := []interface{}{
		"locations_processed", result.LocationsProcessed,
		"locations_failed", result.LocationsFailed,
		"readings_inserted", result.ReadingsInserted,
		"duration", result.Duration,
	}
	if result.Success() {
		log.Infow("etl_pipeline_completed", fields...)
	} else {
		log.Warnw("etl_pipeline_completed", fields...)
	}

	return result
}

// pace blocks for the configured pacing delay or until the context is done.
func (p *Pipeline) pace(ctx context.Context) {
	if p.pacing <= 0 {
		return
	}
	timer := time.NewTimer(p.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func isAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrUnauthorized)
}

// formatAPITime renders a timestamp the way the vendor expects: UTC ISO-8601
// with second precision and a trailing Z.
func formatAPITime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
