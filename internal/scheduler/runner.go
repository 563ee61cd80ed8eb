package scheduler

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/metrics"
	"github.com/gmsas95/healthplan/internal/store"
	"go.uber.org/zap"
)

// RunnerConfig holds job runner configuration
type RunnerConfig struct {
	CheckInterval time.Duration // time between due-job checks
	MaxConcurrent int           // maximum concurrent job executions
	JobTimeout    time.Duration // per-job deadline
	BatchSize     int           // due jobs fetched per check
}

// Runner polls scheduled_jobs and executes due next-day generations
type Runner struct {
	config  RunnerConfig
	sched   *Scheduler
	store   *store.Store
	logger  *zap.Logger
	now     func() time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewRunner creates a new job runner
func NewRunner(config RunnerConfig, sched *Scheduler, st *store.Store, logger *zap.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 3
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 5 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}

	return &Runner{
		config: config,
		sched:  sched,
		store:  st,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetClock replaces the time source used to pick due jobs.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Start starts the runner loop
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return apperrors.ErrRunnerActive
	}

	r.running = true
	r.wg.Add(1)
	go r.run()

	r.logger.Info("Job runner started",
		zap.Duration("check_interval", r.config.CheckInterval),
		zap.Int("max_concurrent", r.config.MaxConcurrent),
	)
	return nil
}

// Stop stops the runner and waits for in-flight jobs
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	r.logger.Info("Job runner stopped")
}

// IsRunning returns whether the runner is active
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Runner) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	// Missed runs fire once here after a restart
	r.checkAndRunJobs()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkAndRunJobs()
		}
	}
}

// checkAndRunJobs executes every due job, at most MaxConcurrent at a time
func (r *Runner) checkAndRunJobs() {
	jobs, err := r.store.GetDueJobs(r.ctx, r.now(), r.config.BatchSize)
	if err != nil {
		r.logger.Error("Failed to get due jobs", zap.Error(err))
		return
	}

	if len(jobs) == 0 {
		return
	}

	r.logger.Info("Found scheduled jobs to run", zap.Int("count", len(jobs)))

	sem := make(chan struct{}, r.config.MaxConcurrent)
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}

		go func(j *store.ScheduledJob) {
			defer wg.Done()
			defer func() { <-sem }()

			r.executeJob(j)
		}(job)
	}

	wg.Wait()
}

// executeJob advances the job's next run from wall-clock now, saves it, and
// only then generates the user's next day. A job cancelled after it was
// fetched is left alone.
func (r *Runner) executeJob(job *store.ScheduledJob) {
	r.logger.Info("Executing scheduled job",
		zap.String("job_id", job.ID),
		zap.String("user_id", job.UserID),
		zap.String("kind", job.Kind),
	)

	now := r.now().UTC()
	nextRun, err := NextRun(job.CronExpression, job.Timezone, now)
	if err != nil {
		r.logger.Error("Failed to calculate next run, disabling job",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		if derr := r.store.DisableJob(r.ctx, job.ID, err.Error()); derr != nil {
			r.logger.Error("Failed to disable job", zap.String("job_id", job.ID), zap.Error(derr))
		}
		metrics.RecordJobRun(metrics.JobFailed)
		return
	}

	ok, err := r.store.MarkJobRun(r.ctx, job.ID, now, job.RunCount+1, nextRun)
	if err != nil {
		r.logger.Error("Failed to update job state",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		metrics.RecordJobRun(metrics.JobFailed)
		return
	}
	if !ok {
		r.logger.Info("Job cancelled before it ran",
			zap.String("job_id", job.ID),
			zap.String("user_id", job.UserID),
		)
		metrics.RecordJobRun(metrics.JobSkipped)
		return
	}
	job.LastRunAt = &now
	job.RunCount++
	job.NextRunAt = &nextRun

	ctx, cancel := context.WithTimeout(r.ctx, r.config.JobTimeout)
	defer cancel()

	var lastError string
	switch job.Kind {
	case store.JobNextDayGeneration:
		sched, err := r.sched.CheckAndGenerateNextDay(ctx, job.UserID)
		switch {
		case err != nil:
			lastError = err.Error()
			metrics.RecordJobRun(metrics.JobFailed)
			r.logger.Error("Job execution failed",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		case sched == nil:
			metrics.RecordJobRun(metrics.JobSkipped)
			r.logger.Info("Job skipped, nothing to generate",
				zap.String("job_id", job.ID),
				zap.String("user_id", job.UserID),
			)
		default:
			metrics.RecordJobRun(metrics.JobSucceeded)
			r.logger.Info("Job completed",
				zap.String("job_id", job.ID),
				zap.String("date", sched.Date),
				zap.String("difficulty", string(sched.Summary.Difficulty)),
			)
		}
	default:
		lastError = "unknown job kind " + job.Kind
		metrics.RecordJobRun(metrics.JobFailed)
		r.logger.Warn("Unknown job kind", zap.String("job_id", job.ID), zap.String("kind", job.Kind))
	}

	if err := r.store.RecordJobResult(r.ctx, job.ID, lastError); err != nil {
		r.logger.Error("Failed to record job result", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// ListJobs returns all scheduled jobs
func (r *Runner) ListJobs(ctx context.Context) ([]*store.ScheduledJob, error) {
	return r.store.ListJobs(ctx)
}
