// Package discovery runs the per-source pipeline: fetch the listing,
// extract candidates, drop the already-seen, enrich the survivors,
// filter by freshness, persist and deliver.
package discovery

import "time"

type RunState string

const (
	RunDone  RunState = "done"
	RunError RunState = "error"
)

// RunSummary is the machine-readable outcome of one source run.
type RunSummary struct {
	RunID    string   `json:"run_id"`
	SourceID string   `json:"source_id"`
	State    RunState `json:"state"`

	// Found counts candidates extracted from the listing, New the subset
	// never seen before. SkippedOld were new but stale, SkippedErr hit
	// enrichment errors (they are still delivered, without metadata).
	Found      int `json:"found"`
	New        int `json:"new"`
	SkippedOld int `json:"skipped_old"`
	SkippedErr int `json:"skipped_err"`
	Delivered  int `json:"delivered"`

	Fatal      string    `json:"fatal,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
