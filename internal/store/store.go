package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gmsas95/healthplan/internal/config"
	apperrors "github.com/gmsas95/healthplan/internal/errors"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store provides unified access to SQLite and BadgerDB
type Store struct {
	db     *gorm.DB
	badger *badger.DB
}

// New creates a new Store instance
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "healthplan.db")
	}

	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return NewWithDB(db, badgerDB)
}

// NewWithDB wraps already-open handles and migrates the schema.
func NewWithDB(db *gorm.DB, kv *badger.DB) (*Store, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db, badger: kv}, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&UserProfile{},
		&DailyScheduleRecord{},
		&ActivityCompletion{},
		&WeeklyPlanRecord{},
		&TwoDayHealthPlan{},
		&HealthMetric{},
		&HealthScore{},
		&ScheduledJob{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close closes all database connections
func (s *Store) Close() error {
	var errs []error
	if s.badger != nil {
		errs = append(errs, s.badger.Close())
	}
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

// Ping checks that SQLite answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func readErr(err error) error {
	return apperrors.WrapAs(apperrors.ErrStoreRead, err)
}

func writeErr(err error) error {
	return apperrors.WrapAs(apperrors.ErrStoreWrite, err)
}

// ==================== Profile Methods ====================

// GetUserProfile returns nil, nil when the user has no profile.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var p UserProfile
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &p, nil
}

// SaveUserProfile inserts or replaces a profile
func (s *Store) SaveUserProfile(ctx context.Context, p *UserProfile) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

// ==================== Daily Schedule Methods ====================

// GetDailySchedule returns nil, nil when no schedule exists for the date.
func (s *Store) GetDailySchedule(ctx context.Context, userID, date string) (*DailyScheduleRecord, error) {
	var rec DailyScheduleRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &rec, nil
}

// UpsertDailySchedule writes the schedule keyed by (user_id, date),
// replacing the schedule body and completion rate of an existing row.
func (s *Store) UpsertDailySchedule(ctx context.Context, rec *DailyScheduleRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"schedule", "completion_rate", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// ListDailySchedules returns schedules with from <= date <= to, oldest first.
func (s *Store) ListDailySchedules(ctx context.Context, userID, from, to string) ([]DailyScheduleRecord, error) {
	var recs []DailyScheduleRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&recs).Error
	if err != nil {
		return nil, readErr(err)
	}
	return recs, nil
}

// UpdateCompletionRate stores a recomputed rate on an existing schedule row.
// It reports whether a row was updated.
func (s *Store) UpdateCompletionRate(ctx context.Context, userID, date string, rate float64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&DailyScheduleRecord{}).
		Where("user_id = ? AND date = ?", userID, date).
		Updates(map[string]interface{}{"completion_rate": rate, "updated_at": time.Now()})
	if res.Error != nil {
		return false, writeErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AverageCompletionRate averages completion_rate over all of a user's days.
func (s *Store) AverageCompletionRate(ctx context.Context, userID string) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.WithContext(ctx).Model(&DailyScheduleRecord{}).
		Select("AVG(completion_rate)").
		Where("user_id = ?", userID).
		Scan(&avg).Error
	if err != nil {
		return 0, readErr(err)
	}
	return avg.Float64, nil
}

// ==================== Activity Completion Methods ====================

// UpsertActivityCompletion writes the completion keyed by
// (user_id, activity_id, date).
func (s *Store) UpsertActivityCompletion(ctx context.Context, c *ActivityCompletion) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "notes", "updated_at"}),
	}).Create(c).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// ListCompletions returns every completion row for a user on date.
func (s *Store) ListCompletions(ctx context.Context, userID, date string) ([]ActivityCompletion, error) {
	return s.ListCompletionsBetween(ctx, userID, date, date)
}

// ListCompletionsBetween returns completion rows with from <= date <= to.
func (s *Store) ListCompletionsBetween(ctx context.Context, userID, from, to string) ([]ActivityCompletion, error) {
	var rows []ActivityCompletion
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC, activity_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, readErr(err)
	}
	return rows, nil
}

// CountCompletions returns the total and completed activity rows for a user.
func (s *Store) CountCompletions(ctx context.Context, userID string) (total, completed int64, err error) {
	db := s.db.WithContext(ctx).Model(&ActivityCompletion{})
	if err = db.Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, 0, readErr(err)
	}
	err = s.db.WithContext(ctx).Model(&ActivityCompletion{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completed).Error
	if err != nil {
		return 0, 0, readErr(err)
	}
	return total, completed, nil
}

// ==================== Weekly Plan Methods ====================

// GetActiveWeeklyPlan returns nil, nil when the user has no active plan.
func (s *Store) GetActiveWeeklyPlan(ctx context.Context, userID string) (*WeeklyPlanRecord, error) {
	var rec WeeklyPlanRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &rec, nil
}

// GetWeeklyPlan returns nil, nil for an unknown id.
func (s *Store) GetWeeklyPlan(ctx context.Context, id string) (*WeeklyPlanRecord, error) {
	var rec WeeklyPlanRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &rec, nil
}

// ActivateWeeklyPlan deactivates the user's other plans and inserts rec as
// the single active one.
func (s *Store) ActivateWeeklyPlan(ctx context.Context, rec *WeeklyPlanRecord) error {
	rec.IsActive = true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&WeeklyPlanRecord{}).
			Where("user_id = ? AND is_active = ?", rec.UserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// SaveWeeklyPlan updates an existing plan row
func (s *Store) SaveWeeklyPlan(ctx context.Context, rec *WeeklyPlanRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

// CountWeeklyPlans returns all plans and the plans whose end date is before
// today.
func (s *Store) CountWeeklyPlans(ctx context.Context, userID, today string) (total, completed int64, err error) {
	if err = s.db.WithContext(ctx).Model(&WeeklyPlanRecord{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, 0, readErr(err)
	}
	if err = s.db.WithContext(ctx).Model(&WeeklyPlanRecord{}).
		Where("user_id = ? AND end_date < ?", userID, today).
		Count(&completed).Error; err != nil {
		return 0, 0, readErr(err)
	}
	return total, completed, nil
}

// ==================== Two-Day Plan Methods ====================

// ActivateTwoDayPlan deactivates the user's other two-day plans and inserts rec.
func (s *Store) ActivateTwoDayPlan(ctx context.Context, rec *TwoDayHealthPlan) error {
	rec.IsActive = true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&TwoDayHealthPlan{}).
			Where("user_id = ? AND is_active = ?", rec.UserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// GetActiveTwoDayPlan returns nil, nil when none is active.
func (s *Store) GetActiveTwoDayPlan(ctx context.Context, userID string) (*TwoDayHealthPlan, error) {
	var rec TwoDayHealthPlan
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &rec, nil
}

// SetTwoDayCompleted sets the completion flag of day 1 or 2 on a plan.
func (s *Store) SetTwoDayCompleted(ctx context.Context, id string, day int, completed bool) error {
	var column string
	switch day {
	case 1:
		column = "day1_completed"
	case 2:
		column = "day2_completed"
	default:
		return apperrors.New(apperrors.ErrBadRequest.Code, fmt.Sprintf("day must be 1 or 2, got %d", day))
	}
	err := s.db.WithContext(ctx).Model(&TwoDayHealthPlan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{column: completed, "updated_at": time.Now()}).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// ==================== Health Metric Methods ====================

var metricColumns = []string{
	"weight", "body_fat", "muscle_mass", "blood_pressure_systolic", "blood_pressure_diastolic",
	"heart_rate", "sleep_hours", "sleep_quality", "energy_level", "mood", "stress_level",
	"water_intake", "steps", "calories_burned", "notes", "updated_at",
}

// UpsertHealthMetric writes the day's metrics keyed by (user_id, date).
func (s *Store) UpsertHealthMetric(ctx context.Context, m *HealthMetric) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(metricColumns),
	}).Create(m).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// ListHealthMetrics returns metrics with from <= date <= to, oldest first.
// Empty bounds are open.
func (s *Store) ListHealthMetrics(ctx context.Context, userID, from, to string) ([]HealthMetric, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}

	var rows []HealthMetric
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, readErr(err)
	}
	return rows, nil
}

// ==================== Health Score Methods ====================

// GetHealthScore returns nil, nil when the user has no score yet.
func (s *Store) GetHealthScore(ctx context.Context, userID string) (*HealthScore, error) {
	var hs HealthScore
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&hs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &hs, nil
}

// SaveHealthScore inserts or replaces the user's score row
func (s *Store) SaveHealthScore(ctx context.Context, hs *HealthScore) error {
	if err := s.db.WithContext(ctx).Save(hs).Error; err != nil {
		return writeErr(err)
	}
	return nil
}

// ==================== Scheduled Job Methods ====================

// UpsertJob creates or replaces the job for (user_id, kind).
func (s *Store) UpsertJob(ctx context.Context, job *ScheduledJob) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cron_expression", "timezone", "is_active", "next_run_at", "last_error", "updated_at",
		}),
	}).Create(job).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// GetJob returns nil, nil when the user has no job of that kind.
func (s *Store) GetJob(ctx context.Context, userID, kind string) (*ScheduledJob, error) {
	var job ScheduledJob
	err := s.db.WithContext(ctx).Where("user_id = ? AND kind = ?", userID, kind).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return &job, nil
}

// GetDueJobs returns active jobs whose next run is at or before now.
// Run times are stored in UTC so they compare as text in SQLite.
func (s *Store) GetDueJobs(ctx context.Context, now time.Time, limit int) ([]*ScheduledJob, error) {
	now = now.UTC()
	var jobs []*ScheduledJob
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Order("next_run_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, readErr(err)
	}
	return jobs, nil
}

// MarkJobRun records a run and the next run time on an active job. It
// reports false when the job was deactivated after it was read.
func (s *Store) MarkJobRun(ctx context.Context, id string, ranAt time.Time, runCount int, nextRun time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&ScheduledJob{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"last_run_at": ranAt.UTC(),
			"run_count":   runCount,
			"next_run_at": nextRun.UTC(),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return false, writeErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DisableJob turns a job off and stores why.
func (s *Store) DisableJob(ctx context.Context, id, reason string) error {
	err := s.db.WithContext(ctx).Model(&ScheduledJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":   false,
			"next_run_at": nil,
			"last_error":  reason,
			"updated_at":  time.Now(),
		}).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// RecordJobResult stores the outcome of a job run without touching its
// schedule fields.
func (s *Store) RecordJobResult(ctx context.Context, id, lastError string) error {
	err := s.db.WithContext(ctx).Model(&ScheduledJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_error": lastError, "updated_at": time.Now()}).Error
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// DeactivateJob disables the user's job of kind. It reports whether one existed.
func (s *Store) DeactivateJob(ctx context.Context, userID, kind string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&ScheduledJob{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Updates(map[string]interface{}{"is_active": false, "next_run_at": nil, "updated_at": time.Now()})
	if res.Error != nil {
		return false, writeErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListJobs returns all scheduled jobs
func (s *Store) ListJobs(ctx context.Context) ([]*ScheduledJob, error) {
	var jobs []*ScheduledJob
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, readErr(err)
	}
	return jobs, nil
}
