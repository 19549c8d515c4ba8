package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"archscout/app/adapters"
	"archscout/app/discovery"
	"archscout/app/sources"
)

// ProcessSourceTask runs the discovery pipeline for one source. A new
// adapter is built per run so a config edit between runs takes effect
// without restarts.
type ProcessSourceTask struct {
	Task
	cfg          *sources.Config
	registry     *adapters.Registry
	deps         adapters.Deps
	orchestrator *discovery.Orchestrator
	summaries    *discovery.SummaryStore
}

var _ TaskInterface = (*ProcessSourceTask)(nil)

func NewProcessSourceTask(sourceName string, cfg *sources.Config, registry *adapters.Registry,
	deps adapters.Deps, orchestrator *discovery.Orchestrator, summaries *discovery.SummaryStore) *ProcessSourceTask {
	return &ProcessSourceTask{
		Task:         NewTask(TaskTypeProcessSource, sourceName),
		cfg:          cfg,
		registry:     registry,
		deps:         deps,
		orchestrator: orchestrator,
		summaries:    summaries,
	}
}

func (t *ProcessSourceTask) Execute(ctx context.Context) error {
	adapter, err := t.registry.Build(t.cfg, t.deps)
	if err != nil {
		return fmt.Errorf("failed to build adapter for %s: %w", t.SourceName, err)
	}
	defer adapter.Close()

	summary := t.orchestrator.RunSource(ctx, t.cfg, adapter)
	if t.summaries != nil {
		t.summaries.Record(summary)
	}

	if summary.State == discovery.RunError {
		return fmt.Errorf("source run failed for %s: %s", t.SourceName, summary.Fatal)
	}

	slog.Debug("ProcessSourceTask completed", "source", t.SourceName,
		"run_id", summary.RunID, "delivered", summary.Delivered,
		"duration", t.GetDuration().String())

	return nil
}
