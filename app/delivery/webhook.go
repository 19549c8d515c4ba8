package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookDeliverer POSTs each batch as JSON to a configured endpoint.
type WebhookDeliverer struct {
	url        string
	httpClient *http.Client
}

var _ Deliverer = (*WebhookDeliverer)(nil)

func NewWebhookDeliverer(url string) *WebhookDeliverer {
	return &WebhookDeliverer{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, batch *Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch %s: %w", batch.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Batch-Id", batch.ID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed for batch %s: %w", batch.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d for batch %s", resp.StatusCode, batch.ID)
	}

	slog.Debug("Batch delivered to webhook", "batch_id", batch.ID,
		"source", batch.SourceID, "candidates", len(batch.Candidates))

	return nil
}
