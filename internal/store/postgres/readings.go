package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/i474232898/tomorrow-pipeline/internal/logger"
	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

const upsertReadingSQL = `
	INSERT INTO weather_data (
		location_id, timestamp, data_granularity,
		temperature, temperature_apparent,
		wind_speed, wind_gust, wind_direction,
		humidity, dew_point,
		cloud_cover, cloud_base, cloud_ceiling, visibility,
		precipitation_probability,
		rain_intensity, rain_accumulation, freezing_rain_intensity,
		sleet_intensity, sleet_accumulation, sleet_accumulation_lwe,
		snow_intensity, snow_accumulation, snow_accumulation_lwe, snow_depth,
		ice_accumulation, ice_accumulation_lwe,
		evapotranspiration,
		pressure_sea_level, pressure_surface_level, altimeter_setting,
		weather_code, uv_index, uv_health_concern
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
		$29, $30, $31, $32, $33, $34
	)
	ON CONFLICT (location_id, timestamp, data_granularity) DO UPDATE SET
		temperature = EXCLUDED.temperature,
		temperature_apparent = EXCLUDED.temperature_apparent,
		wind_speed = EXCLUDED.wind_speed,
		wind_gust = EXCLUDED.wind_gust,
		wind_direction = EXCLUDED.wind_direction,
		humidity = EXCLUDED.humidity,
		dew_point = EXCLUDED.dew_point,
		cloud_cover = EXCLUDED.cloud_cover,
		cloud_base = EXCLUDED.cloud_base,
		cloud_ceiling = EXCLUDED.cloud_ceiling,
		visibility = EXCLUDED.visibility,
		precipitation_probability = EXCLUDED.precipitation_probability,
		rain_intensity = EXCLUDED.rain_intensity,
		rain_accumulation = EXCLUDED.rain_accumulation,
		freezing_rain_intensity = EXCLUDED.freezing_rain_intensity,
		sleet_intensity = EXCLUDED.sleet_intensity,
		sleet_accumulation = EXCLUDED.sleet_accumulation,
		sleet_accumulation_lwe = EXCLUDED.sleet_accumulation_lwe,
		snow_intensity = EXCLUDED.snow_intensity,
		snow_accumulation = EXCLUDED.snow_accumulation,
		snow_accumulation_lwe = EXCLUDED.snow_accumulation_lwe,
		snow_depth = EXCLUDED.snow_depth,
		ice_accumulation = EXCLUDED.ice_accumulation,
		ice_accumulation_lwe = EXCLUDED.ice_accumulation_lwe,
		evapotranspiration = EXCLUDED.evapotranspiration,
		pressure_sea_level = EXCLUDED.pressure_sea_level,
		pressure_surface_level = EXCLUDED.pressure_surface_level,
		altimeter_setting = EXCLUDED.altimeter_setting,
		weather_code = EXCLUDED.weather_code,
		uv_index = EXCLUDED.uv_index,
		uv_health_concern = EXCLUDED.uv_health_concern,
		fetched_at = NOW()`

// ReadingStore persists normalized weather readings. It satisfies
// weather.ReadingStore.
type ReadingStore struct {
	db DB
}

// NewReadingStore creates a ReadingStore backed by db.
func NewReadingStore(db DB) *ReadingStore {
	return &ReadingStore{db: db}
}

// UpsertReadings bulk inserts-or-updates readings keyed by
// (location_id, timestamp, data_granularity). Re-delivery of the same key
// overwrites every value field, so repeat runs never duplicate rows.
// An empty slice is a no-op returning 0.
func (s *ReadingStore) UpsertReadings(ctx context.Context, readings []weather.Reading) (int, error) {
	log := logger.Get()

	if len(readings) == 0 {
		log.Infow("upsert_readings_empty")
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range readings {
		batch.Queue(upsertReadingSQL, readingArgs(r)...)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	affected := 0
	for range readings {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("failed to upsert readings: %w", err)
		}
		affected += int(tag.RowsAffected())
	}

	log.Infow("readings_upserted", "count", affected)
	return affected, nil
}

// LatestByLocation returns the most recent reading per active location at the
// given granularity.
func (s *ReadingStore) LatestByLocation(ctx context.Context, granularity weather.Granularity) ([]weather.LocationSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (l.id)
			l.id, l.lat, l.lon, l.name,
			w.timestamp, w.temperature, w.wind_speed, w.humidity
		FROM locations l
		JOIN weather_data w ON w.location_id = l.id
		WHERE w.data_granularity = $1
		  AND l.is_active = TRUE
		ORDER BY l.id, w.timestamp DESC`, granularity)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", err)
	}
	defer rows.Close()

	var summaries []weather.LocationSummary
	for rows.Next() {
		var (
			s    weather.LocationSummary
			name *string
		)
		if err := rows.Scan(&s.LocationID, &s.Lat, &s.Lon, &name,
			&s.Timestamp, &s.Temperature, &s.WindSpeed, &s.Humidity); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if name != nil {
			s.Name = *name
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}

	logger.Get().Infow("latest_readings_fetched", "count", len(summaries), "granularity", granularity)
	return summaries, nil
}

// TimeSeries returns readings for one location between start and end
// (inclusive), ordered by timestamp.
func (s *ReadingStore) TimeSeries(ctx context.Context, locationID int, start, end time.Time, granularity weather.Granularity) ([]weather.Reading, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			location_id, timestamp, data_granularity,
			temperature, temperature_apparent,
			wind_speed, wind_gust, wind_direction,
			humidity, dew_point,
			cloud_cover, cloud_base, cloud_ceiling, visibility,
			precipitation_probability,
			rain_intensity, rain_accumulation, freezing_rain_intensity,
			sleet_intensity, sleet_accumulation, sleet_accumulation_lwe,
			snow_intensity, snow_accumulation, snow_accumulation_lwe, snow_depth,
			ice_accumulation, ice_accumulation_lwe,
			evapotranspiration,
			pressure_sea_level, pressure_surface_level, altimeter_setting,
			weather_code, uv_index, uv_health_concern
		FROM weather_data
		WHERE location_id = $1
		  AND data_granularity = $2
		  AND timestamp BETWEEN $3 AND $4
		ORDER BY timestamp ASC`,
		locationID, granularity, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query time series: %w", err)
	}
	defer rows.Close()

	var readings []weather.Reading
	for rows.Next() {
		var r weather.Reading
		if err := rows.Scan(
			&r.LocationID, &r.Timestamp, &r.Granularity,
			&r.Temperature, &r.TemperatureApparent,
			&r.WindSpeed, &r.WindGust, &r.WindDirection,
			&r.Humidity, &r.DewPoint,
			&r.CloudCover, &r.CloudBase, &r.CloudCeiling, &r.Visibility,
			&r.PrecipitationProbability,
			&r.RainIntensity, &r.RainAccumulation, &r.FreezingRainIntensity,
			&r.SleetIntensity, &r.SleetAccumulation, &r.SleetAccumulationLwe,
			&r.SnowIntensity, &r.SnowAccumulation, &r.SnowAccumulationLwe, &r.SnowDepth,
			&r.IceAccumulation, &r.IceAccumulationLwe,
			&r.Evapotranspiration,
			&r.PressureSeaLevel, &r.PressureSurfaceLevel, &r.AltimeterSetting,
			&r.WeatherCode, &r.UVIndex, &r.UVHealthConcern,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read time series: %w", err)
	}

	logger.Get().Infow("time_series_fetched",
		"location_id", locationID,
		"granularity", granularity,
		"count", len(readings),
	)
	return readings, nil
}

// DataAvailability returns the stored timestamp range for a granularity.
// ok is false when no data exists yet.
func (s *ReadingStore) DataAvailability(ctx context.Context, granularity weather.Granularity) (earliest, latest time.Time, ok bool, err error) {
	var minTS, maxTS *time.Time
	err = s.db.QueryRow(ctx, `
		SELECT MIN(timestamp), MAX(timestamp)
		FROM weather_data
		WHERE data_granularity = $1`, granularity).Scan(&minTS, &maxTS)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to query data availability: %w", err)
	}
	if minTS == nil || maxTS == nil {
		return time.Time{}, time.Time{}, false, nil
	}
	return *minTS, *maxTS, true, nil
}

func readingArgs(r weather.Reading) []any {
	return []any{
		r.LocationID, r.Timestamp, r.Granularity,
		r.Temperature, r.TemperatureApparent,
		r.WindSpeed, r.WindGust, r.WindDirection,
		r.Humidity, r.DewPoint,
		r.CloudCover, r.CloudBase, r.CloudCeiling, r.Visibility,
		r.PrecipitationProbability,
		r.RainIntensity, r.RainAccumulation, r.FreezingRainIntensity,
		r.SleetIntensity, r.SleetAccumulation, r.SleetAccumulationLwe,
		r.SnowIntensity, r.SnowAccumulation, r.SnowAccumulationLwe, r.SnowDepth,
		r.IceAccumulation, r.IceAccumulationLwe,
		r.Evapotranspiration,
		r.PressureSeaLevel, r.PressureSurfaceLevel, r.AltimeterSetting,
		r.WeatherCode, r.UVIndex, r.UVHealthConcern,
	}
}
