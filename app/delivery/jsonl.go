package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileDeliverer appends batches to one JSON Lines file per source. A
// line per batch keeps the file greppable and safe to tail.
type FileDeliverer struct {
	dir string
}

var _ Deliverer = (*FileDeliverer)(nil)

func NewFileDeliverer(dir string) (*FileDeliverer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create delivery directory: %w", err)
	}
	return &FileDeliverer{dir: dir}, nil
}

func (d *FileDeliverer) Deliver(_ context.Context, batch *Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch %s: %w", batch.ID, err)
	}

	path := filepath.Join(d.dir, batch.SourceID+".jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open delivery file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write batch %s: %w", batch.ID, err)
	}

	slog.Debug("Batch delivered to file", "batch_id", batch.ID,
		"source", batch.SourceID, "candidates", len(batch.Candidates), "path", path)

	return nil
}
