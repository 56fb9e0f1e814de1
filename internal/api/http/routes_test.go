package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

type stubReadings struct {
	summaries []weather.LocationSummary
	series    []weather.Reading
	err       error

	gotLocationID  int
	gotFrom, gotTo time.Time
	gotGranularity weather.Granularity
}

func (s *stubReadings) LatestByLocation(_ context.Context, granularity weather.Granularity) ([]weather.LocationSummary, error) {
	s.gotGranularity = granularity
	return s.summaries, s.err
}

func (s *stubReadings) TimeSeries(_ context.Context, locationID int, start, end time.Time, granularity weather.Granularity) ([]weather.Reading, error) {
	s.gotLocationID = locationID
	s.gotFrom = start
	s.gotTo = end
	s.gotGranularity = granularity
	return s.series, s.err
}

type stubRunner struct {
	result weather.Result
	ran    int
}

func (r *stubRunner) Run(context.Context, weather.RunOptions) weather.Result {
	r.ran++
	return r.result
}

func newTestApp(readings *stubReadings, runner *stubRunner) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, readings, runner)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestLatestReadings(t *testing.T) {
	readings := &stubReadings{summaries: []weather.LocationSummary{
		{LocationID: 1, Lat: 25.86, Lon: -97.42, Name: "Brownsville"},
	}}
	app := newTestApp(readings, &stubRunner{})

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/readings/latest")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, weather.GranularityHourly, readings.gotGranularity, "granularity defaults to hourly")
	assert.Equal(t, "hourly", body["granularity"])
	assert.Len(t, body["locations"], 1)
}

func TestLatestReadingsInvalidGranularity(t *testing.T) {
	app := newTestApp(&stubReadings{}, &stubRunner{})

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/readings/latest?granularity=weekly")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLatestReadingsStoreError(t *testing.T) {
	app := newTestApp(&stubReadings{err: errors.New("boom")}, &stubRunner{})

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/readings/latest")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTimeSeries(t *testing.T) {
	readings := &stubReadings{series: []weather.Reading{
		{LocationID: 3, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Granularity: weather.GranularityDaily},
	}}
	app := newTestApp(readings, &stubRunner{})

	resp, body := doRequest(t, app, http.MethodGet,
		"/api/v1/readings/timeseries?location_id=3&granularity=daily&from=2024-01-01T00:00:00Z&to=2024-01-06T00:00:00Z")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 3, readings.gotLocationID)
	assert.Equal(t, weather.GranularityDaily, readings.gotGranularity)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), readings.gotFrom.UTC())
	assert.Equal(t, float64(3), body["location_id"])
	assert.Len(t, body["readings"], 1)
}

func TestTimeSeriesUnixTimestamps(t *testing.T) {
	readings := &stubReadings{}
	app := newTestApp(readings, &stubRunner{})

	resp, _ := doRequest(t, app, http.MethodGet,
		"/api/v1/readings/timeseries?location_id=1&from=1704067200&to=1704499200")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, time.Unix(1704067200, 0).UTC(), readings.gotFrom)
	assert.Equal(t, time.Unix(1704499200, 0).UTC(), readings.gotTo)
}

func TestTimeSeriesValidation(t *testing.T) {
	app := newTestApp(&stubReadings{}, &stubRunner{})

	cases := map[string]string{
		"missing location_id": "/api/v1/readings/timeseries?from=2024-01-01T00:00:00Z&to=2024-01-02T00:00:00Z",
		"missing range":       "/api/v1/readings/timeseries?location_id=1",
		"bad time format":     "/api/v1/readings/timeseries?location_id=1&from=yesterday&to=today",
		"to before from":      "/api/v1/readings/timeseries?location_id=1&from=2024-01-02T00:00:00Z&to=2024-01-01T00:00:00Z",
	}

	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := doRequest(t, app, http.MethodGet, target)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPipelineRun(t *testing.T) {
	runner := &stubRunner{result: weather.Result{
		LocationsProcessed: 5,
		ReadingsInserted:   120,
		Duration:           3 * time.Second,
	}}
	app := newTestApp(&stubReadings{}, runner)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/pipeline/run")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, runner.ran)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(5), body["locations_processed"])
	assert.Equal(t, float64(120), body["readings_inserted"])
}

func TestPipelineRunDegraded(t *testing.T) {
	runner := &stubRunner{result: weather.Result{
		LocationsProcessed: 1,
		LocationsFailed:    2,
		Errors:             []string{"API error for location 2: boom"},
	}}
	app := newTestApp(&stubReadings{}, runner)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/pipeline/run")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(2), body["locations_failed"])
	assert.Len(t, body["errors"], 1)
}
