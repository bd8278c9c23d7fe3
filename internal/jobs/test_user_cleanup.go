// File: internal/jobs/test_user_cleanup.go
package jobs

import (
	"context"
	"time"

	"prompthub_backend/internal/config"
	"prompthub_backend/internal/user"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const cleanupRunTimeout = 5 * time.Minute

// TestUserCleanupJob removes users created from unsigned test deliveries once
// they are older than the retention period. Their prompts go with them.
type TestUserCleanupJob struct {
	users         user.Repository
	schedule      string
	retention     time.Duration
	logger        *zap.Logger
	cronScheduler *cron.Cron
	now           func() time.Time
}

// NewTestUserCleanupJob creates the job. Nothing is scheduled until SetupAndStart.
func NewTestUserCleanupJob(users user.Repository, cfg *config.Config, logger *zap.Logger) *TestUserCleanupJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)),
	)

	return &TestUserCleanupJob{
		users:         users,
		schedule:      cfg.TestUserCleanupSchedule,
		retention:     cfg.TestUserRetention,
		logger:        logger.Named("TestUserCleanupJob"),
		cronScheduler: scheduler,
		now:           time.Now,
	}
}

// SetupAndStart schedules and starts the cron job. The job is opt-in: an empty
// schedule leaves it disabled.
func (j *TestUserCleanupJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Info("Test user cleanup disabled (TEST_USER_CLEANUP_SCHEDULE not set).")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule test user cleanup job", zap.String("schedule", j.schedule), zap.Error(err))
		return err
	}

	j.logger.Info("Test user cleanup job scheduled",
		zap.String("schedule", j.schedule), zap.Int("jobID", int(jobID)), zap.Duration("retention", j.retention))
	j.cronScheduler.Start()
	return nil
}

func (j *TestUserCleanupJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupRunTimeout)
	defer cancel()

	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("Test user cleanup run failed", zap.Error(err))
	}
}

// RunOnce deletes synthetic users older than the retention period and returns
// how many were removed.
func (j *TestUserCleanupJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	j.logger.Info("Starting test user cleanup run", zap.Time("cutoff", cutoff))

	deleted, err := j.users.DeleteStaleSynthetic(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	j.logger.Info("Test user cleanup run completed", zap.Int64("users_deleted", deleted))
	return deleted, nil
}

// Stop gracefully stops the cron scheduler.
func (j *TestUserCleanupJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping test user cleanup scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Test user cleanup scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Test user cleanup scheduler stop timed out.")
	}
}
