// Package adapters turns source listing pages into discovery
// candidates. Each adapter implements one extraction strategy and is
// bound to a single source configuration.
package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"archscout/app/navigator"
	"archscout/app/sources"
)

// HeroImage is a representative image for a candidate. Source records
// where it came from ("og" for Open Graph metadata, "content" for the
// first article body image, "feed" for feed enclosures).
type HeroImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Source string `json:"source"`
}

// Candidate is a discovered article. Title and URL are always present;
// everything else is best effort.
type Candidate struct {
	SourceID    string     `json:"source_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Hero        *HeroImage `json:"hero,omitempty"`
}

// NewCandidate validates the two mandatory fields so a malformed
// candidate can never enter the pipeline.
func NewCandidate(sourceID, title, rawURL string) (*Candidate, error) {
	title = collapseWhitespace(title)
	rawURL = strings.TrimSpace(rawURL)

	if sourceID == "" {
		return nil, fmt.Errorf("candidate has no source id")
	}
	if title == "" {
		return nil, fmt.Errorf("candidate has no title")
	}
	if rawURL == "" {
		return nil, fmt.Errorf("candidate has no URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("candidate URL %q is not absolute", rawURL)
	}

	return &Candidate{SourceID: sourceID, Title: title, URL: rawURL}, nil
}

// Capabilities describes what a bound adapter needs from the
// surrounding machinery.
type Capabilities struct {
	Strategy       sources.Strategy
	NeedsRendering bool
	// SelfDeduping adapters consult and update the seen store
	// themselves; their candidates arrive already deduplicated and
	// recorded.
	SelfDeduping bool
}

// SiteAdapter discovers candidates for one configured source. The
// fetcher is passed per call so runs share a single navigation stack.
type SiteAdapter interface {
	Capabilities() Capabilities
	FetchCandidates(ctx context.Context, fetcher navigator.Fetcher) ([]*Candidate, error)
	Close() error
}

// resolveURL turns a possibly relative href into an absolute URL.
func resolveURL(baseURL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("failed to parse href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL %q: %w", baseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
