package cleanup

import (
	"context"
	"testing"
	"time"
)

func TestRunDeletesLocationsOlderThanRetention(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

	cleaner := &fakeLocationCleaner{
		rows: []locationRow{
			{UserID: 1, UpdatedAt: now.Add(-31 * 24 * time.Hour)},
			{UserID: 2, UpdatedAt: now.Add(-29 * 24 * time.Hour)},
		},
	}

	job := New(cleaner, 30*24*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(cleaner.rows) != 1 {
		t.Fatalf("expected one location row to survive, got %d", len(cleaner.rows))
	}
	if cleaner.rows[0].UserID != 2 {
		t.Fatalf("expected fresh location to remain, got user %d", cleaner.rows[0].UserID)
	}
}

func TestRunWithoutCleanerIsNoop(t *testing.T) {
	job := New(nil, time.Hour, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}
}

type locationRow struct {
	UserID    int64
	UpdatedAt time.Time
}

type fakeLocationCleaner struct {
	rows []locationRow
}

func (f *fakeLocationCleaner) DeleteLocationsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	kept := f.rows[:0]
	var deleted int64
	for _, row := range f.rows {
		if row.UpdatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}
