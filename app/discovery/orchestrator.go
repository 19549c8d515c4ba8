package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"archscout/app/adapters"
	"archscout/app/database"
	"archscout/app/dates"
	"archscout/app/delivery"
	"archscout/app/navigator"
	"archscout/app/sources"
)

// Options tunes orchestration across all sources. MetadataOnly skips
// detail-page enrichment so a run touches only listing pages.
type Options struct {
	RunTimeout   time.Duration
	MetadataOnly bool
}

type Orchestrator struct {
	repo       database.SeenRepository
	fetcher    navigator.Fetcher
	enricher   *adapters.Enricher
	deliverer  delivery.Deliverer
	normalizer *dates.Normalizer
	opts       Options
}

func NewOrchestrator(repo database.SeenRepository, fetcher navigator.Fetcher,
	enricher *adapters.Enricher, deliverer delivery.Deliverer,
	normalizer *dates.Normalizer, opts Options) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		fetcher:    fetcher,
		enricher:   enricher,
		deliverer:  deliverer,
		normalizer: normalizer,
		opts:       opts,
	}
}

// RunSource executes the pipeline for one source and always returns a
// summary, partial counts included. Identifiers are persisted before
// delivery is attempted, so a crash between the two repeats nothing.
func (o *Orchestrator) RunSource(ctx context.Context, cfg *sources.Config, adapter adapters.SiteAdapter) *RunSummary {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		SourceID:  cfg.Name,
		State:     RunDone,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		summary.FinishedAt = time.Now().UTC()
		slog.Info("Source run finished", "source", summary.SourceID, "run_id", summary.RunID,
			"state", summary.State, "found", summary.Found, "new", summary.New,
			"skipped_old", summary.SkippedOld, "skipped_err", summary.SkippedErr,
			"delivered", summary.Delivered)
	}()

	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	caps := adapter.Capabilities()

	candidates, err := adapter.FetchCandidates(ctx, o.fetcher)
	if err != nil {
		return o.fail(summary, err)
	}
	summary.Found = len(candidates)

	newCandidates := candidates
	if !caps.SelfDeduping {
		newCandidates, err = o.dropSeen(cfg.Name, candidates)
		if err != nil {
			return o.fail(summary, err)
		}
	}
	summary.New = len(newCandidates)

	if limit := cfg.Settings.MaxNewPerRun; limit > 0 && len(newCandidates) > limit {
		slog.Info("Capping new candidates", "source", cfg.Name,
			"new", len(newCandidates), "limit", limit)
		newCandidates = newCandidates[:limit]
	}

	processed := make([]*adapters.Candidate, 0, len(newCandidates))
	fresh := make([]*adapters.Candidate, 0, len(newCandidates))
	var timedOut bool

	for _, candidate := range newCandidates {
		if ctx.Err() != nil {
			timedOut = true
			break
		}

		if o.shouldEnrich(candidate) {
			if err := o.enricher.Enrich(ctx, o.fetcher, candidate, cfg); err != nil {
				// Undated candidates stay in the pipeline; nil dates
				// count as fresh by rule.
				summary.SkippedErr++
				slog.Warn("Detail enrichment failed", "source", cfg.Name,
					"url", candidate.URL, "error", err)
			}
		}

		processed = append(processed, candidate)
		if o.normalizer.IsFresh(candidate.PublishedAt, cfg.Settings.MaxAgeDays) {
			fresh = append(fresh, candidate)
		} else {
			summary.SkippedOld++
		}
	}

	// Persist everything that made it through candidate construction,
	// the stale ones included, so they are never reconsidered.
	if !caps.SelfDeduping && len(processed) > 0 {
		urls := make([]string, len(processed))
		for i, candidate := range processed {
			urls[i] = candidate.URL
		}
		if _, err := o.repo.MarkSeen(cfg.Name, urls, database.KindURL); err != nil {
			return o.fail(summary, err)
		}
	}

	if len(fresh) > 0 && o.deliverer != nil {
		if err := o.deliver(ctx, cfg.Name, fresh); err != nil {
			return o.fail(summary, err)
		}
		summary.Delivered = len(fresh)
	}

	if timedOut {
		return o.fail(summary, ctx.Err())
	}
	return summary
}

func (o *Orchestrator) dropSeen(sourceID string, candidates []*adapters.Candidate) ([]*adapters.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	urls := make([]string, len(candidates))
	for i, candidate := range candidates {
		urls[i] = candidate.URL
	}

	newURLs, err := o.repo.FilterNew(sourceID, urls)
	if err != nil {
		return nil, err
	}

	isNew := make(map[string]bool, len(newURLs))
	for _, u := range newURLs {
		isNew[u] = true
	}

	kept := make([]*adapters.Candidate, 0, len(newURLs))
	for _, candidate := range candidates {
		if isNew[candidate.URL] {
			kept = append(kept, candidate)
		}
	}
	return kept, nil
}

func (o *Orchestrator) shouldEnrich(candidate *adapters.Candidate) bool {
	if o.opts.MetadataOnly || o.enricher == nil {
		return false
	}
	return candidate.PublishedAt == nil || candidate.Hero == nil || candidate.Excerpt == ""
}

// deliver runs on a detached context so a run that timed out during
// detail fetches still hands over what it persisted.
func (o *Orchestrator) deliver(ctx context.Context, sourceID string, fresh []*adapters.Candidate) error {
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return o.deliverer.Deliver(deliverCtx, delivery.NewBatch(sourceID, fresh))
}

func (o *Orchestrator) fail(summary *RunSummary, err error) *RunSummary {
	summary.State = RunError
	if err != nil {
		summary.Fatal = err.Error()
	}
	slog.Error("Source run failed", "source", summary.SourceID, "run_id", summary.RunID, "error", err)
	return summary
}
