package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"archscout/app/database"
)

// PurgeTask sweeps seen records older than the retention window across
// all sources.
type PurgeTask struct {
	Task
	repo          database.SeenRepository
	retentionDays int
}

var _ TaskInterface = (*PurgeTask)(nil)

func NewPurgeTask(repo database.SeenRepository, retentionDays int) *PurgeTask {
	return &PurgeTask{
		Task:          NewTask(TaskTypePurge, ""),
		repo:          repo,
		retentionDays: retentionDays,
	}
}

func (t *PurgeTask) Execute(_ context.Context) error {
	if t.retentionDays <= 0 {
		slog.Debug("Retention disabled, skipping purge")
		return nil
	}

	removed, err := t.repo.PurgeOlderThan("", t.retentionDays)
	if err != nil {
		return fmt.Errorf("failed to purge old records: %w", err)
	}

	slog.Info("Retention sweep completed", "removed", removed,
		"retention_days", t.retentionDays, "duration", t.GetDuration().String())

	return nil
}
