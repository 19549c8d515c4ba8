package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientExtractHeadlines(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4e, 0x47}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req struct {
			Image        string `json:"image"`
			MaxHeadlines int    `json:"max_headlines"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			t.Fatalf("image is not base64: %v", err)
		}
		if string(decoded) != string(image) {
			t.Error("image bytes did not round-trip")
		}
		if req.MaxHeadlines != 3 {
			t.Errorf("max_headlines = %d, expected 3", req.MaxHeadlines)
		}

		json.NewEncoder(w).Encode(map[string][]string{
			"headlines": {"  First headline  ", "", "Second headline", "Third", "Fourth beyond the cap"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	headlines, err := client.ExtractHeadlines(context.Background(), image, 3)
	if err != nil {
		t.Fatalf("ExtractHeadlines failed: %v", err)
	}

	want := []string{"First headline", "Second headline", "Third"}
	if len(headlines) != len(want) {
		t.Fatalf("got %d headlines, expected %d: %v", len(headlines), len(want), headlines)
	}
	for i := range want {
		if headlines[i] != want[i] {
			t.Errorf("headline %d = %q, expected %q", i, headlines[i], want[i])
		}
	}
}

func TestClientRejectsEmptyImage(t *testing.T) {
	client := NewClient("http://localhost:1", "")
	if _, err := client.ExtractHeadlines(context.Background(), nil, 5); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestClientRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.ExtractHeadlines(context.Background(), []byte{1}, 5); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestNopReturnsNothing(t *testing.T) {
	headlines, err := Nop{}.ExtractHeadlines(context.Background(), []byte{1}, 5)
	if err != nil {
		t.Fatalf("Nop failed: %v", err)
	}
	if len(headlines) != 0 {
		t.Errorf("Nop returned %v", headlines)
	}
}
