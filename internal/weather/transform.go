package weather

import (
	"github.com/i474232898/tomorrow-pipeline/internal/logger"
)

// Transform maps one vendor timelines response into normalized readings for a
// single location. Only the timeline whose timestep matches the requested
// granularity contributes; when no timeline matches, or more than one carries
// the same tag, the result is empty. Transform never fails.
func Transform(loc Location, resp *TimelinesResponse, granularity Granularity) []Reading {
	if resp == nil {
		return nil
	}

	target := granularity.Timestep()

	var matched *Timeline
	for i := range resp.Data.Timelines {
		tl := &resp.Data.Timelines[i]
		if tl.Timestep != target {
			continue
		}
		if matched != nil {
			// Ambiguous response; refuse to guess which timeline is right.
			matched = nil
			break
		}
		matched = tl
	}

	var readings []Reading
	if matched != nil {
		readings = make([]Reading, 0, len(matched.Intervals))
		for _, interval := range matched.Intervals {
			readings = append(readings, readingFromInterval(loc.ID, granularity, interval))
		}
	}

	logger.Get().Debugw("transformed_readings",
		"location_id", loc.ID,
		"granularity", granularity,
		"count", len(readings),
	)

	return readings
}

func readingFromInterval(locationID int, granularity Granularity, interval Interval) Reading {
	v := interval.Values
	return Reading{
		LocationID:  locationID,
		Timestamp:   interval.StartTime,
		Granularity: granularity,

		Temperature:              v.Temperature,
		TemperatureApparent:      v.TemperatureApparent,
		WindSpeed:                v.WindSpeed,
		WindGust:                 v.WindGust,
		WindDirection:            v.WindDirection,
		Humidity:                 v.Humidity,
		DewPoint:                 v.DewPoint,
		CloudCover:               v.CloudCover,
		CloudBase:                v.CloudBase,
		CloudCeiling:             v.CloudCeiling,
		Visibility:               v.Visibility,
		PrecipitationProbability: v.PrecipitationProbability,
		RainIntensity:            v.RainIntensity,
		RainAccumulation:         v.RainAccumulation,
		FreezingRainIntensity:    v.FreezingRainIntensity,
		SleetIntensity:           v.SleetIntensity,
		SleetAccumulation:        v.SleetAccumulation,
		SleetAccumulationLwe:     v.SleetAccumulationLwe,
		SnowIntensity:            v.SnowIntensity,
		SnowAccumulation:         v.SnowAccumulation,
		SnowAccumulationLwe:      v.SnowAccumulationLwe,
		SnowDepth:                v.SnowDepth,
		IceAccumulation:          v.IceAccumulation,
		IceAccumulationLwe:       v.IceAccumulationLwe,
		Evapotranspiration:       v.Evapotranspiration,
		PressureSeaLevel:         v.PressureSeaLevel,
		PressureSurfaceLevel:     v.PressureSurfaceLevel,
		AltimeterSetting:         v.AltimeterSetting,
		WeatherCode:              v.WeatherCode,
		UVIndex:                  v.UVIndex,
		UVHealthConcern:          v.UVHealthConcern,
	}
}
