package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job enforces the location retention policy: coordinates that have
// not been refreshed within the retention window are deleted outright.
// Stale coordinates would both mislead distance scoring and keep
// location data around longer than the user expects.
type Job struct {
	locations staleLocationCleaner
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type staleLocationCleaner interface {
	DeleteLocationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func New(locations staleLocationCleaner, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		locations: locations,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.locations == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	rows, err := j.locations.DeleteLocationsOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup stale locations: %w", err)
	}
	if rows > 0 {
		j.logger.Info("cleanup stale locations completed", zap.Int64("deleted", rows))
	}

	return nil
}
