package navigator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestNavigator(recorded *[]time.Duration) *Navigator {
	return New(http.DefaultClient, nil, DefaultProfile("test-agent"), Config{
		BackoffBase:       1 * time.Second,
		BackoffCap:        30 * time.Second,
		SoftBlockCooldown: 10 * time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			*recorded = append(*recorded, d)
			return nil
		},
	})
}

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("<html><body>listing</body></html>"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	nav := newTestNavigator(&sleeps)

	result, err := nav.Fetch(context.Background(), server.URL, Options{MaxRetries: 3})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.StatusCode != 200 {
		t.Errorf("status = %d, expected 200", result.StatusCode)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
	if len(sleeps) != 0 {
		t.Errorf("expected no sleeps on first-attempt success, got %v", sleeps)
	}
}

func TestFetchRetriesExactlyMaxRetriesTimes(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	var sleeps []time.Duration
	nav := newTestNavigator(&sleeps)

	_, err := nav.Fetch(context.Background(), server.URL, Options{MaxRetries: 3})
	if err == nil {
		t.Fatal("expected error from permanently blocked URL")
	}

	// maxRetries=3 means exactly 4 attempts total.
	if got := atomic.LoadInt32(&requests); got != 4 {
		t.Errorf("expected 4 attempts, got %d", got)
	}

	var navErr *NavigationError
	if !errors.As(err, &navErr) {
		t.Fatalf("expected *NavigationError, got %T", err)
	}
	if navErr.Kind != FailureSoftBlock {
		t.Errorf("kind = %q, expected %q", navErr.Kind, FailureSoftBlock)
	}
	if navErr.LastStatus != http.StatusForbidden {
		t.Errorf("last status = %d, expected 403", navErr.LastStatus)
	}
	if !errors.Is(err, ErrNavigationFailed) {
		t.Error("error should match ErrNavigationFailed")
	}
}

func TestFetchBackoffGrowsAndAddsSoftBlockCooldown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var sleeps []time.Duration
	nav := newTestNavigator(&sleeps)

	nav.Fetch(context.Background(), server.URL, Options{MaxRetries: 3})

	// Backoff 1s, 2s, 4s plus a 10s cool-down after each soft block.
	want := []time.Duration{11 * time.Second, 12 * time.Second, 14 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), sleeps)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("sleep %d = %v, expected %v", i, sleeps[i], want[i])
		}
	}
}

func TestFetchRecoversFromTransientServerError(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	nav := newTestNavigator(&sleeps)

	result, err := nav.Fetch(context.Background(), server.URL, Options{MaxRetries: 3})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.StatusCode != 200 {
		t.Errorf("status = %d, expected 200", result.StatusCode)
	}

	// A transport failure gets plain backoff, no cool-down.
	if len(sleeps) != 1 || sleeps[0] != 1*time.Second {
		t.Errorf("expected single 1s backoff, got %v", sleeps)
	}
}

func TestFetchDetectsChallengePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><title>Just a moment...</title><body>Checking your browser</body></html>"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	nav := newTestNavigator(&sleeps)

	_, err := nav.Fetch(context.Background(), server.URL, Options{MaxRetries: 1})
	if err == nil {
		t.Fatal("expected challenge page to be treated as a soft block")
	}

	var navErr *NavigationError
	if !errors.As(err, &navErr) {
		t.Fatalf("expected *NavigationError, got %T", err)
	}
	if navErr.Kind != FailureSoftBlock {
		t.Errorf("kind = %q, expected %q", navErr.Kind, FailureSoftBlock)
	}
}

func TestFetchSendsCamouflageHeaders(t *testing.T) {
	var gotUserAgent, gotAcceptLanguage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAcceptLanguage = r.Header.Get("Accept-Language")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	nav := newTestNavigator(&sleeps)

	if _, err := nav.Fetch(context.Background(), server.URL, Options{}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotUserAgent != "test-agent" {
		t.Errorf("User-Agent = %q, expected %q", gotUserAgent, "test-agent")
	}
	if gotAcceptLanguage == "" {
		t.Error("Accept-Language header missing")
	}
}

func TestClassifyOffHostRedirect(t *testing.T) {
	cases := []struct {
		requested string
		final     string
		want      outcome
	}{
		{"https://example.com/news", "https://example.com/news/page/2", outcomeSuccess},
		{"https://example.com/news", "https://www.example.com/news", outcomeSuccess},
		{"https://example.com/news", "https://blocked.cdn-gate.io/challenge", outcomeSoftBlock},
	}

	for _, tc := range cases {
		got := classify(tc.requested, &Result{
			HTML:       "<html><body>content</body></html>",
			FinalURL:   tc.final,
			StatusCode: 200,
		})
		if got != tc.want {
			t.Errorf("classify(%q -> %q) = %v, expected %v", tc.requested, tc.final, got, tc.want)
		}
	}
}

func TestSleepCtxHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepCtx(ctx, time.Minute); err == nil {
		t.Error("expected error when sleeping on a cancelled context")
	}
}
