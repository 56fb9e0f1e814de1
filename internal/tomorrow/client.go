// Package tomorrow implements the Tomorrow.io /v4/timelines API client.
package tomorrow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/tomorrow-pipeline/internal/logger"
	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

const (
	defaultBaseURL = "https://api.tomorrow.io/v4"
	defaultTimeout = 30 * time.Second
)

// defaultFields is every metric we request from the API. Field names are the
// vendor's camelCase tags and map 1:1 onto weather.TimelineValues.
var defaultFields = []string{
	"temperature",
	"temperatureApparent",
	"windSpeed",
	"windGust",
	"windDirection",
	"humidity",
	"dewPoint",
	"cloudCover",
	"cloudBase",
	"cloudCeiling",
	"visibility",
	"precipitationProbability",
	"rainIntensity",
	"rainAccumulation",
	"freezingRainIntensity",
	"sleetIntensity",
	"sleetAccumulation",
	"sleetAccumulationLwe",
	"snowIntensity",
	"snowAccumulation",
	"snowAccumulationLwe",
	"snowDepth",
	"iceAccumulation",
	"iceAccumulationLwe",
	"evapotranspiration",
	"pressureSeaLevel",
	"pressureSurfaceLevel",
	"altimeterSetting",
	"weatherCode",
	"uvIndex",
	"uvHealthConcern",
}

var (
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// Config bundles client settings. Zero values fall back to defaults.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client is an HTTP client for the Tomorrow.io Weather API with retries,
// exponential backoff for transient failures, and a circuit breaker.
// It satisfies weather.Client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Tomorrow.io API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tomorrow",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	logger.Get().Infow("tomorrow_client_initialized",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries,
	)

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		circuit:    cb,
	}
}

// FetchTimelines fetches weather timelines for a single location.
//
// HTTP 401 maps to weather.ErrUnauthorized and HTTP 429 to
// weather.ErrRateLimited; every other failure mode (network, timeout,
// non-2xx, malformed body) surfaces as a generic *weather.APIError.
func (c *Client) FetchTimelines(ctx context.Context, loc weather.Location, timesteps, startTime, endTime string) (*weather.TimelinesResponse, error) {
	log := logger.Get()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("location", fmt.Sprintf("%v,%v", loc.Lat, loc.Lon))
		values.Set("fields", strings.Join(defaultFields, ","))
		values.Set("timesteps", timesteps)
		values.Set("units", "metric")
		values.Set("apikey", c.apiKey)
		if startTime != "" {
			values.Set("startTime", startTime)
		}
		if endTime != "" {
			values.Set("endTime", endTime)
		}

		u := fmt.Sprintf("%s/timelines?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	log.Infow("fetching_weather",
		"location_id", loc.ID,
		"lat", loc.Lat,
		"lon", loc.Lon,
		"timesteps", timesteps,
	)

	resp, err := c.doWithResilience(ctx, buildRequest)
	if err != nil {
		return nil, &weather.APIError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &weather.APIError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		log.Errorw("api_auth_failed")
		return nil, &weather.APIError{StatusCode: resp.StatusCode, Body: string(body), Err: weather.ErrUnauthorized}
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Errorw("api_rate_limit_exceeded")
		return nil, &weather.APIError{StatusCode: resp.StatusCode, Body: string(body), Err: weather.ErrRateLimited}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &weather.APIError{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	var timelines weather.TimelinesResponse
	if err := json.Unmarshal(body, &timelines); err != nil {
		log.Errorw("api_response_parse_error", "error", err)
		return nil, &weather.APIError{Err: fmt.Errorf("failed to parse API response: %w", err)}
	}

	total := 0
	for _, tl := range timelines.Data.Timelines {
		total += len(tl.Intervals)
	}
	log.Infow("weather_fetch_success", "location_id", loc.ID, "entries", total)

	return &timelines, nil
}

// doWithResilience executes the request with retries, exponential backoff,
// and the circuit breaker. Only transport errors and 5xx responses are
// retried; classification of terminal status codes is the caller's job.
func (c *Client) doWithResilience(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.httpClient.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			}
			return resp, nil
		})

		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if attempt >= c.maxRetries {
			return nil, err
		}

		delay := c.retryDelay * time.Duration(1<<attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// Close releases idle connections held by the underlying transport. Idempotent.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	logger.Get().Infow("tomorrow_client_closed")
	return nil
}
