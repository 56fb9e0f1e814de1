// Package scheduler runs the ETL pipeline at regular intervals.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/tomorrow-pipeline/internal/logger"
	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

// Scheduler periodically triggers pipeline runs. Jobs run in singleton mode
// so a slow run is never overlapped by the next trigger.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pipeline  *weather.Pipeline
	readings  weather.ReadingStore
}

// New creates a Scheduler around the given pipeline.
func New(pipeline *weather.Pipeline, readings weather.ReadingStore) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pipeline:  pipeline,
		readings:  readings,
	}
}

// Start schedules the hourly pipeline on the hour and, when minutelyInterval
// is positive, the minutely pipeline at that interval. If the store holds no
// hourly data yet, one run is performed immediately so a fresh deployment
// does not sit empty until the next full hour.
func (s *Scheduler) Start(ctx context.Context, minutelyInterval time.Duration) error {
	log := logger.Get()

	if _, err := s.scheduler.Cron("0 * * * *").SingletonMode().Do(func() {
		s.runJob(ctx, "hourly_weather_pipeline", s.pipeline.RunHourly)
	}); err != nil {
		return fmt.Errorf("failed to schedule hourly job: %w", err)
	}
	log.Infow("hourly_job_scheduled", "job_id", "hourly_weather_pipeline")

	if minutelyInterval > 0 {
		if _, err := s.scheduler.Every(minutelyInterval).SingletonMode().Do(func() {
			s.runJob(ctx, "minutely_weather_pipeline", s.pipeline.RunMinutely)
		}); err != nil {
			return fmt.Errorf("failed to schedule minutely job: %w", err)
		}
		log.Infow("minutely_job_scheduled",
			"job_id", "minutely_weather_pipeline",
			"interval", minutelyInterval,
		)
	}

	s.checkInitialFetch(ctx)

	s.scheduler.StartAsync()
	log.Infow("scheduler_started", "jobs", len(s.scheduler.Jobs()))
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	logger.Get().Infow("scheduler_stopped")
}

// checkInitialFetch runs the hourly pipeline once when the store is empty.
func (s *Scheduler) checkInitialFetch(ctx context.Context) {
	log := logger.Get()

	_, _, ok, err := s.readings.DataAvailability(ctx, weather.GranularityHourly)
	if err != nil {
		// Not fatal for the scheduler; the next scheduled run will retry.
		log.Errorw("initial_data_check_failed", "error", err)
		return
	}
	if ok {
		log.Debugw("initial_data_present")
		return
	}

	log.Infow("no_data_found_running_initial_fetch")
	s.runJob(ctx, "initial_fetch", s.pipeline.RunHourly)
}

func (s *Scheduler) runJob(ctx context.Context, jobID string, run func(context.Context) weather.Result) {
	log := logger.Get()

	result := run(ctx)
	if result.Success() {
		log.Infow("job_completed",
			"job_id", jobID,
			"locations_processed", result.LocationsProcessed,
			"readings_inserted", result.ReadingsInserted,
			"duration", result.Duration,
		)
	} else {
		log.Errorw("job_failed",
			"job_id", jobID,
			"locations_failed", result.LocationsFailed,
			"errors", result.Errors,
		)
	}
}
