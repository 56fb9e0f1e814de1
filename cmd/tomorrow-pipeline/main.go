// Command tomorrow-pipeline ingests Tomorrow.io weather forecasts for a set
// of tracked locations into PostgreSQL.
//
// Commands:
//
//	run            Run the ETL pipeline once
//	serve          Run migrations, start the scheduler and the HTTP API
//	migrate        Apply database migrations
//	locations add  Register a location for data collection
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kelvins/geocoder"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/tomorrow-pipeline/internal/api/http"
	"github.com/i474232898/tomorrow-pipeline/internal/config"
	"github.com/i474232898/tomorrow-pipeline/internal/logger"
	"github.com/i474232898/tomorrow-pipeline/internal/scheduler"
	"github.com/i474232898/tomorrow-pipeline/internal/store/postgres"
	"github.com/i474232898/tomorrow-pipeline/internal/tomorrow"
	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

func main() {
	defer logger.Close() //nolint:errcheck

	if err := newRootCmd().Execute(); err != nil {
		logger.Get().Errorw("command_failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tomorrow-pipeline",
		Short:         "Tomorrow.io weather data pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newLocationsCmd())

	return root
}

func newRunCmd() *cobra.Command {
	var granularity string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ETL pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL(), cfg.PGPoolSize)
			if err != nil {
				return err
			}
			defer pool.Close()

			pipeline := newPipeline(cfg, pool)
			result := pipeline.Run(ctx, weather.RunOptions{
				Granularity: resolveGranularity(cmd.Flags().Changed("granularity"), granularity, cfg),
			})

			if !result.Success() {
				return fmt.Errorf("pipeline failed: %d location(s) failed: %v",
					result.LocationsFailed, result.Errors)
			}

			logger.Get().Infow("run_command_completed",
				"locations_processed", result.LocationsProcessed,
				"readings_inserted", result.ReadingsInserted,
				"duration", result.Duration,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&granularity, "granularity", "g", "hourly", "data granularity (minutely, hourly, daily); defaults to DATA_GRANULARITY")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		minutely         bool
		minutelyInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, start the scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if err := postgres.RunMigrations(cfg.DatabaseURL()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL(), cfg.PGPoolSize)
			if err != nil {
				return err
			}
			defer pool.Close()

			readings := postgres.NewReadingStore(pool)
			pipeline := newPipeline(cfg, pool)

			sched := scheduler.New(pipeline, readings)
			interval := time.Duration(0)
			if minutely {
				interval = resolveInterval(cmd.Flags().Changed("minutely-interval"), minutelyInterval, cfg)
			}
			if err := sched.Start(ctx, interval); err != nil {
				return err
			}
			defer sched.Stop()

			app := fiber.New(fiber.Config{
				AppName:               "tomorrow-pipeline",
				DisableStartupMessage: true,
				ReadTimeout:           10 * time.Second,
				WriteTimeout:          10 * time.Second,
				ErrorHandler: func(c *fiber.Ctx, err error) error {
					code := fiber.StatusInternalServerError
					var e *fiber.Error
					if errors.As(err, &e) {
						code = e.Code
					}
					return c.Status(code).JSON(fiber.Map{
						"error":   true,
						"message": err.Error(),
					})
				},
			})

			app.Use(fiberlogger.New())
			app.Use(recover.New())

			app.Get("/health", func(c *fiber.Ctx) error {
				if !postgres.HealthCheck(c.Context(), pool) {
					return fiber.NewError(fiber.StatusServiceUnavailable, "database unreachable")
				}
				return c.JSON(fiber.Map{
					"status":  "ok",
					"service": "tomorrow-pipeline",
				})
			})

			httpapi.RegisterRoutes(app, readings, pipeline)

			go func() {
				if err := app.Listen(":" + cfg.Port); err != nil {
					logger.Get().Errorw("http_server_stopped", "error", err)
				}
			}()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Get().Errorw("http_shutdown_failed", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&minutely, "minutely", "m", false, "also schedule the minutely pipeline")
	cmd.Flags().DurationVar(&minutelyInterval, "minutely-interval", 15*time.Minute, "interval between minutely runs; defaults to FETCH_INTERVAL")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return postgres.RunMigrations(cfg.DatabaseURL())
		},
	}
}

func newLocationsCmd() *cobra.Command {
	locations := &cobra.Command{
		Use:   "locations",
		Short: "Manage tracked locations",
	}
	locations.AddCommand(newLocationsAddCmd())
	return locations
}

func newLocationsAddCmd() *cobra.Command {
	var (
		lat, lon            float64
		name                string
		city, state, region string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a location for data collection",
		Long: `Register a location by coordinates (--lat/--lon) or by place
(--city/--state/--country, geocoded via the Google Geocoding API using
GOOGLE_GEOCODER_API_KEY). Coordinates are stored with 4-decimal precision;
adding a location with known coordinates reactivates the existing record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if city != "" {
				geocoder.ApiKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")
				location, err := geocoder.Geocoding(geocoder.Address{
					City:    city,
					State:   state,
					Country: region,
				})
				if err != nil {
					return fmt.Errorf("failed to geocode %q: %w", city, err)
				}
				lat = location.Latitude
				lon = location.Longitude
				if name == "" {
					name = city
				}
			} else if lat == 0 && lon == 0 {
				return errors.New("either --city or --lat/--lon is required")
			}

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL(), cfg.PGPoolSize)
			if err != nil {
				return err
			}
			defer pool.Close()

			id, err := postgres.NewLocationStore(pool).Create(ctx, weather.Location{
				Lat:  round4(lat),
				Lon:  round4(lon),
				Name: name,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "location %d registered (%.4f, %.4f)\n", id, round4(lat), round4(lon))
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&city, "city", "", "city to geocode")
	cmd.Flags().StringVar(&state, "state", "", "state or province for geocoding")
	cmd.Flags().StringVar(&region, "country", "", "country for geocoding")
	return cmd
}

// newPipeline wires the pipeline against the Postgres stores and a client
// factory bound to the API configuration.
func newPipeline(cfg *config.AppConfig, db postgres.DB) *weather.Pipeline {
	newClient := func() (weather.Client, error) {
		return tomorrow.NewClient(tomorrow.Config{
			APIKey:     cfg.TomorrowAPIKey,
			BaseURL:    cfg.TomorrowAPIBaseURL,
			Timeout:    cfg.APITimeout,
			MaxRetries: cfg.APIMaxRetries,
			RetryDelay: cfg.APIRetryDelay,
		}), nil
	}

	return weather.NewPipeline(
		postgres.NewLocationStore(db),
		postgres.NewReadingStore(db),
		newClient,
	)
}

// resolveGranularity prefers an explicitly passed --granularity flag over the
// DATA_GRANULARITY setting.
func resolveGranularity(flagSet bool, flagValue string, cfg *config.AppConfig) weather.Granularity {
	if flagSet {
		return weather.Granularity(flagValue)
	}
	return cfg.DataGranularity
}

// resolveInterval prefers an explicitly passed --minutely-interval flag over
// the FETCH_INTERVAL setting.
func resolveInterval(flagSet bool, flagValue time.Duration, cfg *config.AppConfig) time.Duration {
	if flagSet {
		return flagValue
	}
	return cfg.FetchInterval
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
