package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dukapos/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// JobScheduler runs the periodic jobs of one instance.
type JobScheduler struct {
	scheduler gocron.Scheduler
	alertJob  *jobs.InventoryAlertJob
	interval  time.Duration
	log       *zap.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

func NewJobScheduler(alertJob *jobs.InventoryAlertJob, interval time.Duration, log *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		alertJob:  alertJob,
		interval:  interval,
		log:       log,
		jobs:      make(map[string]gocron.Job),
	}
	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.log.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.log.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	// a slow run delays the next one instead of overlapping it
	alertsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(js.interval),
		gocron.NewTask(js.processInventoryAlerts, context.Background()),
		gocron.WithName("inventory-alerts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create inventory alerts job: %w", err)
	}
	js.jobs["inventory-alerts"] = alertsJob
	return nil
}

func (js *JobScheduler) processInventoryAlerts(ctx context.Context) error {
	started := time.Now()
	summary, err := js.alertJob.Run(ctx)
	if err != nil {
		return err
	}
	js.log.Debug("inventory alerts job finished",
		zap.Duration("took", time.Since(started)),
		zap.Int("organizations", summary.Organizations))
	return nil
}

// GetJobStatus returns the registered jobs and their next runs.
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	next := make(map[string]time.Time, len(js.jobs))
	for name, job := range js.jobs {
		names = append(names, name)
		if t, err := job.NextRun(); err == nil {
			next[name] = t
		}
	}
	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       names,
		"next_runs":  next,
	}
}
