package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/playforge/playforge/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsSweep removes expired session rows.
	TaskSessionsSweep = "sessions:sweep"
	// TaskRatingsIntegrity verifies the rating table invariants.
	TaskRatingsIntegrity = "ratings:integrity"
)

// NewSessionsSweepTask constructs the periodic sweep task.
func NewSessionsSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsSweep, nil)
}

// NewRatingsIntegrityTask constructs the periodic integrity check task.
func NewRatingsIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskRatingsIntegrity, nil)
}

// SessionsSweeper deletes session rows whose expiry has passed. Redis
// entries expire on their own; the postgres audit rows need the sweep.
type SessionsSweeper struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSessionsSweeper constructs a SessionsSweeper.
func NewSessionsSweeper(pool *pgxpool.Pool, logger *slog.Logger) *SessionsSweeper {
	return &SessionsSweeper{pool: pool, logger: logger, metrics: jobmetrics.NewMetrics(nil)}
}

// Handle processes TaskSessionsSweep tasks.
func (s *SessionsSweeper) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := s.metrics.Track(TaskSessionsSweep)
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return tracker.End(err)
	}
	if s.logger != nil {
		s.logger.Info("sessions sweep", slog.Int64("removed", tag.RowsAffected()))
	}
	return tracker.End(nil)
}

// RatingsIntegrityChecker reports rating rows that violate the score
// range or the one-rating-per-user rule. Violations indicate a write
// path that bypassed the service layer; the job surfaces them, it does
// not repair them.
type RatingsIntegrityChecker struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewRatingsIntegrityChecker constructs a RatingsIntegrityChecker.
func NewRatingsIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger) *RatingsIntegrityChecker {
	return &RatingsIntegrityChecker{pool: pool, logger: logger, metrics: jobmetrics.NewMetrics(nil)}
}

// Handle processes TaskRatingsIntegrity tasks.
func (c *RatingsIntegrityChecker) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := c.metrics.Track(TaskRatingsIntegrity)
	var outOfRange, duplicates int64
	row := c.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE score < 1 OR score > 5`)
	if err := row.Scan(&outOfRange); err != nil {
		return tracker.End(err)
	}
	row = c.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT user_id, tutorial_id FROM ratings
			GROUP BY user_id, tutorial_id HAVING COUNT(*) > 1
		) d`)
	if err := row.Scan(&duplicates); err != nil {
		return tracker.End(err)
	}
	c.metrics.AddViolations("rating_out_of_range", outOfRange)
	c.metrics.AddViolations("rating_duplicate_pair", duplicates)
	if c.logger != nil {
		if outOfRange > 0 || duplicates > 0 {
			c.logger.Error("ratings integrity violations",
				slog.Int64("out_of_range", outOfRange),
				slog.Int64("duplicate_pairs", duplicates))
		} else {
			c.logger.Info("ratings integrity ok")
		}
	}
	return tracker.End(nil)
}
