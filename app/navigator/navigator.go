package navigator

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ Fetcher = (*Navigator)(nil)

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeSoftBlock
	outcomeTransport
)

// Config parameterizes the single retry/backoff policy all fetches go
// through. Sleep is injectable so tests run without real delays.
type Config struct {
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	SoftBlockCooldown time.Duration
	Sleep             func(ctx context.Context, d time.Duration) error
}

// Navigator fetches URLs with camouflage, classifies soft-block
// responses and retries transient failures with exponential backoff.
type Navigator struct {
	httpClient *http.Client
	renderer   Renderer // nil when rendering is disabled
	profile    Profile
	cfg        Config
}

func New(httpClient *http.Client, renderer Renderer, profile Profile, cfg Config) *Navigator {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 2 * time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	return &Navigator{
		httpClient: httpClient,
		renderer:   renderer,
		profile:    profile,
		cfg:        cfg,
	}
}

// Fetch navigates to the URL and returns the rendered (or plain) HTML.
// Soft blocks get an extra fixed cool-down before the backoff because
// challenge pages usually need dwell time; every render uses a fresh
// browsing context so a blocked session never taints the retry.
func (n *Navigator) Fetch(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	profile := n.profile
	if opts.Profile != nil {
		profile = *opts.Profile
	}

	attempts := opts.MaxRetries + 1
	lastStatus := 0
	lastKind := FailureTransport
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := n.backoffDelay(attempt)
			if lastKind == FailureSoftBlock {
				delay += n.cfg.SoftBlockCooldown
			}
			if err := n.cfg.Sleep(ctx, delay); err != nil {
				return nil, &NavigationError{URL: rawURL, LastStatus: lastStatus, Kind: lastKind, Err: err}
			}
		}

		result, err := n.attempt(ctx, rawURL, opts, profile)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &NavigationError{URL: rawURL, LastStatus: lastStatus, Kind: FailureTransport, Err: ctx.Err()}
			}
			lastKind = FailureTransport
			lastErr = err
			slog.Debug("Navigation attempt failed", "url", rawURL, "attempt", attempt+1, "error", err)
			continue
		}

		switch classify(rawURL, result) {
		case outcomeSuccess:
			return result, nil
		case outcomeSoftBlock:
			lastKind = FailureSoftBlock
			lastStatus = result.StatusCode
			lastErr = nil
			slog.Warn("Soft block detected", "url", rawURL, "attempt", attempt+1,
				"status", result.StatusCode, "final_url", result.FinalURL)
		default:
			lastKind = FailureTransport
			lastStatus = result.StatusCode
			lastErr = nil
		}
	}

	return nil, &NavigationError{URL: rawURL, LastStatus: lastStatus, Kind: lastKind, Err: lastErr}
}

func (n *Navigator) attempt(ctx context.Context, rawURL string, opts Options, profile Profile) (*Result, error) {
	if opts.NeedsRendering && n.renderer != nil {
		return n.renderer.Render(ctx, rawURL, profile, opts.CaptureScreenshot)
	}
	return n.plainFetch(ctx, rawURL, profile)
}

func (n *Navigator) backoffDelay(attempt int) time.Duration {
	delay := n.cfg.BackoffBase * time.Duration(1<<uint(attempt-1))
	if delay > n.cfg.BackoffCap {
		delay = n.cfg.BackoffCap
	}
	return delay
}

// classify decides whether the landed response is usable, an anti-bot
// challenge, or a retryable server failure.
func classify(requestedURL string, result *Result) outcome {
	switch {
	case result.StatusCode == http.StatusForbidden,
		result.StatusCode == http.StatusTooManyRequests:
		return outcomeSoftBlock
	case result.StatusCode >= 500:
		return outcomeTransport
	case result.StatusCode >= 400:
		return outcomeSoftBlock
	}

	if redirectedOffHost(requestedURL, result.FinalURL) {
		return outcomeSoftBlock
	}
	if hasChallengeMarkers(result.HTML) {
		return outcomeSoftBlock
	}
	return outcomeSuccess
}

func redirectedOffHost(requestedURL, finalURL string) bool {
	if finalURL == "" {
		return false
	}
	requested, err := url.Parse(requestedURL)
	if err != nil {
		return false
	}
	final, err := url.Parse(finalURL)
	if err != nil {
		return false
	}
	return normalizeHost(requested.Host) != normalizeHost(final.Host)
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

var challengeMarkers = []string{
	"just a moment",
	"verify you are human",
	"cf-chl",
	"__cf_chl",
	"g-recaptcha",
	"hcaptcha",
	"attention required",
	"access denied",
}

func hasChallengeMarkers(html string) bool {
	if html == "" {
		return false
	}
	// Challenge pages are short; only scan the head of large documents.
	if len(html) > 16384 {
		html = html[:16384]
	}
	lowered := strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// jitterBetween draws an inter-action delay from the profile's bounds.
func jitterBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	// Never sleep past the caller's remaining budget.
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return context.DeadlineExceeded
		}
		if d > remaining {
			d = remaining
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
