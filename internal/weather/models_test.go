package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGranularityTimestep(t *testing.T) {
	assert.Equal(t, "1m", GranularityMinutely.Timestep())
	assert.Equal(t, "1h", GranularityHourly.Timestep())
	assert.Equal(t, "1d", GranularityDaily.Timestep())

	// Unknown granularities fall back to hourly.
	assert.Equal(t, "1h", Granularity("weekly").Timestep())
}

func TestLocationIdentityByCoordinates(t *testing.T) {
	locA := Location{ID: 1, Lat: 25.8600, Lon: -97.4200, Name: "Brownsville"}
	locB := Location{ID: 2, Lat: 25.8600, Lon: -97.4200, Name: "Duplicate"}
	locC := Location{ID: 3, Lat: 26.2034, Lon: -98.2300, Name: "McAllen"}

	assert.True(t, locA.Equal(locB), "same coordinates should compare equal despite different ids")
	assert.False(t, locA.Equal(locC))

	assert.Equal(t, locA.Key(), locB.Key())
	assert.NotEqual(t, locA.Key(), locC.Key())

	set := map[string]struct{}{}
	for _, loc := range []Location{locA, locB, locC} {
		set[loc.Key()] = struct{}{}
	}
	assert.Len(t, set, 2, "a set keyed by coordinates should collapse duplicates")
}
