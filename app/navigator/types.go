package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNavigationFailed is the sentinel wrapped by every *NavigationError,
// for callers that only care whether the fetch ultimately failed.
var ErrNavigationFailed = errors.New("navigation failed")

// FailureKind distinguishes anti-bot blocking from genuine outage so
// operators can tell the two apart in run reports.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureSoftBlock FailureKind = "soft_block"
)

// NavigationError reports an exhausted fetch: the URL, the last observed
// HTTP status (0 when the transport never produced one) and the failure
// kind of the final attempt.
type NavigationError struct {
	URL        string
	LastStatus int
	Kind       FailureKind
	Err        error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigation failed for %s (%s, last status %d): %v", e.URL, e.Kind, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("navigation failed for %s (%s, last status %d)", e.URL, e.Kind, e.LastStatus)
}

func (e *NavigationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNavigationFailed
}

func (e *NavigationError) Is(target error) bool {
	return target == ErrNavigationFailed
}

// Profile is a camouflage profile: the request characteristics
// configured to resemble ordinary browser traffic.
type Profile struct {
	UserAgent      string
	AcceptLanguage string
	Headers        map[string]string
	ViewportWidth  int
	ViewportHeight int
	// Inter-action delay is drawn uniformly from [DelayMin, DelayMax]
	// to avoid a uniform timing signature.
	DelayMin time.Duration
	DelayMax time.Duration
	// SimulateScroll varies the behavioral fingerprint before capture.
	// It never affects returned data; correctness must not depend on it.
	SimulateScroll bool
}

// DefaultProfile returns a believable desktop browser profile.
func DefaultProfile(userAgent string) Profile {
	return Profile{
		UserAgent:      userAgent,
		AcceptLanguage: "en-US,en;q=0.9",
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Upgrade-Insecure-Requests": "1",
		},
		ViewportWidth:  1440,
		ViewportHeight: 900,
		DelayMin:       400 * time.Millisecond,
		DelayMax:       1800 * time.Millisecond,
		SimulateScroll: true,
	}
}

type Options struct {
	NeedsRendering    bool
	CaptureScreenshot bool
	MaxRetries        int
	Profile           *Profile // nil uses the navigator default
}

type Result struct {
	HTML       string
	Screenshot []byte
	FinalURL   string
	StatusCode int
}

// Fetcher is the seam adapters depend on, so tests can substitute a
// canned page for the real navigation stack.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) (*Result, error)
}
