package weather

import (
	"fmt"
	"time"
)

// Granularity is the sampling cadence of a reading. It doubles as the storage
// partition key and the selector for the matching vendor timeline.
type Granularity string

const (
	GranularityMinutely Granularity = "minutely"
	GranularityHourly   Granularity = "hourly"
	GranularityDaily    Granularity = "daily"
)

// Timestep returns the Tomorrow.io timestep tag for this granularity.
// Unknown granularities fall back to the hourly timestep.
func (g Granularity) Timestep() string {
	switch g {
	case GranularityMinutely:
		return "1m"
	case GranularityHourly:
		return "1h"
	case GranularityDaily:
		return "1d"
	default:
		return "1h"
	}
}

// Location represents a geographic point we collect weather data for.
// Coordinates are stored with 4-decimal precision and the (Lat, Lon) pair is
// unique across all locations, so identity is defined by coordinates alone.
type Location struct {
	ID        int       `json:"id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Name      string    `json:"name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Key returns a canonical coordinate key for indexing this location in maps
// and sets. Two records with the same coordinates are the same location, even
// when their IDs differ.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// Equal reports whether two locations describe the same geographic point.
func (l Location) Equal(other Location) bool {
	return l.Lat == other.Lat && l.Lon == other.Lon
}

// Reading is a normalized weather observation keyed by
// (LocationID, Timestamp, Granularity). Every metric is optional because the
// vendor may omit any field per interval.
type Reading struct {
	LocationID  int         `json:"location_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Granularity Granularity `json:"data_granularity"`

	Temperature              *float64 `json:"temperature,omitempty"`
	TemperatureApparent      *float64 `json:"temperature_apparent,omitempty"`
	WindSpeed                *float64 `json:"wind_speed,omitempty"`
	WindGust                 *float64 `json:"wind_gust,omitempty"`
	WindDirection            *int     `json:"wind_direction,omitempty"`
	Humidity                 *float64 `json:"humidity,omitempty"`
	DewPoint                 *float64 `json:"dew_point,omitempty"`
	CloudCover               *float64 `json:"cloud_cover,omitempty"`
	CloudBase                *float64 `json:"cloud_base,omitempty"`
	CloudCeiling             *float64 `json:"cloud_ceiling,omitempty"`
	Visibility               *float64 `json:"visibility,omitempty"`
	PrecipitationProbability *float64 `json:"precipitation_probability,omitempty"`
	RainIntensity            *float64 `json:"rain_intensity,omitempty"`
	RainAccumulation         *float64 `json:"rain_accumulation,omitempty"`
	FreezingRainIntensity    *float64 `json:"freezing_rain_intensity,omitempty"`
	SleetIntensity           *float64 `json:"sleet_intensity,omitempty"`
	SleetAccumulation        *float64 `json:"sleet_accumulation,omitempty"`
	SleetAccumulationLwe     *float64 `json:"sleet_accumulation_lwe,omitempty"`
	SnowIntensity            *float64 `json:"snow_intensity,omitempty"`
	SnowAccumulation         *float64 `json:"snow_accumulation,omitempty"`
	SnowAccumulationLwe      *float64 `json:"snow_accumulation_lwe,omitempty"`
	SnowDepth                *float64 `json:"snow_depth,omitempty"`
	IceAccumulation          *float64 `json:"ice_accumulation,omitempty"`
	IceAccumulationLwe       *float64 `json:"ice_accumulation_lwe,omitempty"`
	Evapotranspiration       *float64 `json:"evapotranspiration,omitempty"`
	PressureSeaLevel         *float64 `json:"pressure_sea_level,omitempty"`
	PressureSurfaceLevel     *float64 `json:"pressure_surface_level,omitempty"`
	AltimeterSetting         *float64 `json:"altimeter_setting,omitempty"`
	WeatherCode              *int     `json:"weather_code,omitempty"`
	UVIndex                  *int     `json:"uv_index,omitempty"`
	UVHealthConcern          *int     `json:"uv_health_concern,omitempty"`
}

// TimelineValues is the value bag of one timeline interval as returned by the
// Tomorrow.io /v4/timelines endpoint. Integer-valued metrics (wind direction,
// weather code, UV fields) are kept as integers so they round-trip exactly.
type TimelineValues struct {
	Temperature              *float64 `json:"temperature,omitempty"`
	TemperatureApparent      *float64 `json:"temperatureApparent,omitempty"`
	WindSpeed                *float64 `json:"windSpeed,omitempty"`
	WindGust                 *float64 `json:"windGust,omitempty"`
	WindDirection            *int     `json:"windDirection,omitempty"`
	Humidity                 *float64 `json:"humidity,omitempty"`
	DewPoint                 *float64 `json:"dewPoint,omitempty"`
	CloudCover               *float64 `json:"cloudCover,omitempty"`
	CloudBase                *float64 `json:"cloudBase,omitempty"`
	CloudCeiling             *float64 `json:"cloudCeiling,omitempty"`
	Visibility               *float64 `json:"visibility,omitempty"`
	PrecipitationProbability *float64 `json:"precipitationProbability,omitempty"`
	RainIntensity            *float64 `json:"rainIntensity,omitempty"`
	RainAccumulation         *float64 `json:"rainAccumulation,omitempty"`
	FreezingRainIntensity    *float64 `json:"freezingRainIntensity,omitempty"`
	SleetIntensity           *float64 `json:"sleetIntensity,omitempty"`
	SleetAccumulation        *float64 `json:"sleetAccumulation,omitempty"`
	SleetAccumulationLwe     *float64 `json:"sleetAccumulationLwe,omitempty"`
	SnowIntensity            *float64 `json:"snowIntensity,omitempty"`
	SnowAccumulation         *float64 `json:"snowAccumulation,omitempty"`
	SnowAccumulationLwe      *float64 `json:"snowAccumulationLwe,omitempty"`
	SnowDepth                *float64 `json:"snowDepth,omitempty"`
	IceAccumulation          *float64 `json:"iceAccumulation,omitempty"`
	IceAccumulationLwe       *float64 `json:"iceAccumulationLwe,omitempty"`
	Evapotranspiration       *float64 `json:"evapotranspiration,omitempty"`
	PressureSeaLevel         *float64 `json:"pressureSeaLevel,omitempty"`
	PressureSurfaceLevel     *float64 `json:"pressureSurfaceLevel,omitempty"`
	AltimeterSetting         *float64 `json:"altimeterSetting,omitempty"`
	WeatherCode              *int     `json:"weatherCode,omitempty"`
	UVIndex                  *int     `json:"uvIndex,omitempty"`
	UVHealthConcern          *int     `json:"uvHealthConcern,omitempty"`
}

// Interval is a single timestamped entry within a timeline.
type Interval struct {
	StartTime time.Time      `json:"startTime"`
	Values    TimelineValues `json:"values"`
}

// Timeline is one vendor time series tagged with its step size ("1m", "1h", "1d").
type Timeline struct {
	Timestep  string     `json:"timestep"`
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Intervals []Interval `json:"intervals"`
}

// TimelinesData wraps the timeline list in the vendor response envelope.
type TimelinesData struct {
	Timelines []Timeline `json:"timelines"`
}

// TimelinesResponse is the root /v4/timelines response shape.
type TimelinesResponse struct {
	Data TimelinesData `json:"data"`
}

// LocationSummary is the latest reading for one location, used by the
// readings API to answer "what's the current weather per location".
type LocationSummary struct {
	LocationID  int       `json:"location_id"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Name        string    `json:"name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature,omitempty"`
	WindSpeed   *float64  `json:"wind_speed,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
}
