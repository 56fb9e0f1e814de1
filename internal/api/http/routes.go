package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

var validate = validator.New()

// ReadingsReader is the slice of the reading store the API serves from.
type ReadingsReader interface {
	LatestByLocation(ctx context.Context, granularity weather.Granularity) ([]weather.LocationSummary, error)
	TimeSeries(ctx context.Context, locationID int, start, end time.Time, granularity weather.Granularity) ([]weather.Reading, error)
}

// PipelineRunner triggers a pipeline run on demand.
type PipelineRunner interface {
	Run(ctx context.Context, opts weather.RunOptions) weather.Result
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, readings ReadingsReader, runner PipelineRunner) {
	v1 := app.Group("/api/v1")

	v1.Get("/readings/latest", func(c *fiber.Ctx) error {
		granularity, err := parseGranularity(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summaries, err := readings.LatestByLocation(c.Context(), granularity)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest readings")
		}

		return c.JSON(fiber.Map{
			"granularity": granularity,
			"locations":   summaries,
		})
	})

	v1.Get("/readings/timeseries", func(c *fiber.Ctx) error {
		var req timeSeriesQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := readings.TimeSeries(c.Context(), req.LocationID, req.From, req.To, req.Granularity)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch time series")
		}

		return c.JSON(fiber.Map{
			"location_id": req.LocationID,
			"granularity": req.Granularity,
			"from":        req.From,
			"to":          req.To,
			"readings":    series,
		})
	})

	v1.Post("/pipeline/run", func(c *fiber.Ctx) error {
		granularity, err := parseGranularity(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result := runner.Run(c.Context(), weather.RunOptions{Granularity: granularity})

		status := fiber.StatusOK
		if !result.Success() {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"success":             result.Success(),
			"locations_processed": result.LocationsProcessed,
			"locations_failed":    result.LocationsFailed,
			"readings_inserted":   result.ReadingsInserted,
			"errors":              result.Errors,
			"duration_seconds":    result.Duration.Seconds(),
		})
	})
}

// granularityQuery validates the granularity query parameter.
type granularityQuery struct {
	Granularity string `validate:"omitempty,oneof=minutely hourly daily"`
}

func parseGranularity(c *fiber.Ctx) (weather.Granularity, error) {
	q := granularityQuery{Granularity: c.Query("granularity")}
	if err := validate.Struct(q); err != nil {
		return "", err
	}
	if q.Granularity == "" {
		return weather.GranularityHourly, nil
	}
	return weather.Granularity(q.Granularity), nil
}

// timeSeriesQuery holds query parameters for the time series endpoint.
type timeSeriesQuery struct {
	LocationID  int `validate:"required,gt=0"`
	Granularity weather.Granularity
	From        time.Time `validate:"required"`
	To          time.Time `validate:"required,gtefield=From"`
}

func (q *timeSeriesQuery) bind(c *fiber.Ctx) error {
	locationID, err := strconv.Atoi(c.Query("location_id"))
	if err != nil {
		return errors.New("location_id query parameter is required and must be an integer")
	}
	q.LocationID = locationID

	granularity, err := parseGranularity(c)
	if err != nil {
		return err
	}
	q.Granularity = granularity

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}
	q.From = from
	q.To = to

	return validate.Struct(q)
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
