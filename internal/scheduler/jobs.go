package scheduler

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// NextRun returns the first time after from that expr fires in zone tz,
// in UTC.
func NextRun(expr, tz string, from time.Time) (time.Time, error) {
	loc := time.Local
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, apperrors.WrapAs(apperrors.ErrInvalidCron, fmt.Errorf("timezone %q: %w", tz, err))
		}
		loc = l
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, apperrors.WrapAs(apperrors.ErrInvalidCron, err)
	}
	return sched.Next(from.In(loc)).UTC(), nil
}

// ScheduleAutomaticGeneration creates or re-enables the user's recurring
// next-day generation job.
func (s *Scheduler) ScheduleAutomaticGeneration(ctx context.Context, userID string) (*store.ScheduledJob, error) {
	opts := s.Options()
	next, err := NextRun(opts.Cron, opts.Timezone, time.Now())
	if err != nil {
		return nil, err
	}

	job := &store.ScheduledJob{
		UserID:         userID,
		Kind:           store.JobNextDayGeneration,
		CronExpression: opts.Cron,
		Timezone:       opts.Timezone,
		IsActive:       true,
		NextRunAt:      &next,
	}
	if err := s.store.UpsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to schedule generation: %w", err)
	}

	saved, err := s.store.GetJob(ctx, userID, store.JobNextDayGeneration)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Automatic generation scheduled",
		zap.String("user_id", userID),
		zap.String("cron", opts.Cron),
		zap.String("timezone", opts.Timezone),
		zap.Time("next_run", next),
	)
	return saved, nil
}

// CancelAutomaticGeneration disables the user's recurring job.
func (s *Scheduler) CancelAutomaticGeneration(ctx context.Context, userID string) error {
	found, err := s.store.DeactivateJob(ctx, userID, store.JobNextDayGeneration)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrJobNotFound
	}
	s.logger.Info("Automatic generation cancelled", zap.String("user_id", userID))
	return nil
}
