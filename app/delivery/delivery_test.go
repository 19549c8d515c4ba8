package delivery

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"archscout/app/adapters"
)

func testBatch(t *testing.T) *Batch {
	t.Helper()
	candidate, err := adapters.NewCandidate("landezine", "Riverside Park", "https://landezine.com/2026/riverside-park/")
	if err != nil {
		t.Fatalf("NewCandidate failed: %v", err)
	}
	return NewBatch("landezine", []*adapters.Candidate{candidate})
}

func TestFileDelivererAppendsBatches(t *testing.T) {
	dir := t.TempDir()
	deliverer, err := NewFileDeliverer(dir)
	if err != nil {
		t.Fatalf("NewFileDeliverer failed: %v", err)
	}

	first := testBatch(t)
	second := testBatch(t)
	if err := deliverer.Deliver(context.Background(), first); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if err := deliverer.Deliver(context.Background(), second); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, "landezine.jsonl"))
	if err != nil {
		t.Fatalf("delivery file missing: %v", err)
	}
	defer file.Close()

	var lines []Batch
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var batch Batch
		if err := json.Unmarshal(scanner.Bytes(), &batch); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, batch)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 batch lines, got %d", len(lines))
	}
	if lines[0].ID == lines[1].ID {
		t.Error("batch ids must be unique")
	}
	if len(lines[0].Candidates) != 1 || lines[0].Candidates[0].URL != "https://landezine.com/2026/riverside-park/" {
		t.Errorf("candidate not round-tripped: %+v", lines[0].Candidates)
	}
}

func TestWebhookDelivererPostsBatch(t *testing.T) {
	var gotContentType, gotBatchID string
	var gotBody Batch

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBatchID = r.Header.Get("X-Batch-Id")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	deliverer := NewWebhookDeliverer(server.URL)
	batch := testBatch(t)

	if err := deliverer.Deliver(context.Background(), batch); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBatchID != batch.ID {
		t.Errorf("X-Batch-Id = %q, expected %q", gotBatchID, batch.ID)
	}
	if gotBody.SourceID != "landezine" {
		t.Errorf("posted source id = %q", gotBody.SourceID)
	}
}

func TestWebhookDelivererRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	deliverer := NewWebhookDeliverer(server.URL)
	if err := deliverer.Deliver(context.Background(), testBatch(t)); err == nil {
		t.Error("expected error for non-2xx webhook response")
	}
}

func TestMultiStopsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	fileDeliverer, err := NewFileDeliverer(dir)
	if err != nil {
		t.Fatalf("NewFileDeliverer failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	multi := Multi{fileDeliverer, NewWebhookDeliverer(server.URL)}
	if err := multi.Deliver(context.Background(), testBatch(t)); err == nil {
		t.Error("expected Multi to surface the webhook failure")
	}

	// The file delivery before the failure still happened.
	if _, err := os.Stat(filepath.Join(dir, "landezine.jsonl")); err != nil {
		t.Errorf("file delivery should precede the failure: %v", err)
	}
}
