package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"archscout/app/dates"
	"archscout/app/navigator"
	"archscout/app/sources"
)

// ListingAdapter parses a listing page with structural selectors. It
// backs both the pattern strategy (rendered fetch) and the plain
// strategy (direct fetch); the two differ only in how the page is
// obtained, which NeedsRendering already encodes.
type ListingAdapter struct {
	cfg        *sources.Config
	normalizer *dates.Normalizer
	urlPattern *regexp.Regexp // nil accepts every anchor
}

var _ SiteAdapter = (*ListingAdapter)(nil)

func NewListingAdapter(cfg *sources.Config, deps Deps) (SiteAdapter, error) {
	var pattern *regexp.Regexp
	if cfg.Extraction.URLPattern != "" {
		var err error
		pattern, err = regexp.Compile(cfg.Extraction.URLPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url_pattern for source %s: %w", cfg.Name, err)
		}
	}

	return &ListingAdapter{
		cfg:        cfg,
		normalizer: deps.Normalizer,
		urlPattern: pattern,
	}, nil
}

func (a *ListingAdapter) Capabilities() Capabilities {
	return Capabilities{
		Strategy:       a.cfg.Source.Strategy,
		NeedsRendering: a.cfg.NeedsRendering(),
	}
}

func (a *ListingAdapter) FetchCandidates(ctx context.Context, fetcher navigator.Fetcher) ([]*Candidate, error) {
	result, err := fetcher.Fetch(ctx, a.cfg.Source.ListingURL, navigator.Options{
		NeedsRendering: a.cfg.NeedsRendering(),
		MaxRetries:     a.cfg.Settings.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing for %s: %w", a.cfg.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing for %s: %w", a.cfg.Name, err)
	}

	containers := doc.Find(a.cfg.Extraction.ContainerSelector)
	if containers.Length() == 0 && a.cfg.Extraction.FallbackSelector != "" {
		containers = doc.Find(a.cfg.Extraction.FallbackSelector)
		if containers.Length() > 0 {
			slog.Debug("Listing selector fell back", "source", a.cfg.Name,
				"selector", a.cfg.Extraction.FallbackSelector)
		}
	}

	candidates := make([]*Candidate, 0, containers.Length())
	seenURLs := make(map[string]bool)

	containers.Each(func(_ int, container *goquery.Selection) {
		candidate, err := a.extractCandidate(container)
		if err != nil {
			// One malformed listing entry never sinks the page.
			slog.Debug("Skipping listing entry", "source", a.cfg.Name, "error", err)
			return
		}
		if seenURLs[candidate.URL] {
			return
		}
		seenURLs[candidate.URL] = true
		candidates = append(candidates, candidate)
	})

	// A selector matching nothing is an empty result, not an error:
	// quiet days look exactly like this.
	return candidates, nil
}

func (a *ListingAdapter) extractCandidate(container *goquery.Selection) (*Candidate, error) {
	href, anchor, err := a.findArticleLink(container)
	if err != nil {
		return nil, err
	}

	absolute, err := resolveURL(a.cfg.Source.BaseURL, href)
	if err != nil {
		return nil, err
	}

	title := a.extractTitle(container, anchor)
	candidate, err := NewCandidate(a.cfg.Name, title, absolute)
	if err != nil {
		return nil, err
	}

	if a.normalizer != nil {
		candidate.PublishedAt = a.normalizer.Parse(container.Text())
	}

	return candidate, nil
}

// findArticleLink picks the first anchor in the container whose href
// matches the configured URL pattern. The container itself may be the
// anchor.
func (a *ListingAdapter) findArticleLink(container *goquery.Selection) (string, *goquery.Selection, error) {
	if href, ok := container.Attr("href"); ok && a.matchesPattern(href) {
		return href, container, nil
	}

	var (
		found  string
		anchor *goquery.Selection
	)
	container.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !a.matchesPattern(href) {
			return true
		}
		found = href
		anchor = sel
		return false
	})

	if found == "" {
		return "", nil, fmt.Errorf("no matching article link in container")
	}
	return found, anchor, nil
}

func (a *ListingAdapter) matchesPattern(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return false
	}
	if a.urlPattern == nil {
		return true
	}
	return a.urlPattern.MatchString(href)
}

func (a *ListingAdapter) extractTitle(container, anchor *goquery.Selection) string {
	if a.cfg.Extraction.TitleSelector != "" {
		if title := collapseWhitespace(container.Find(a.cfg.Extraction.TitleSelector).First().Text()); title != "" {
			return title
		}
	}
	if anchor != nil {
		if title, ok := anchor.Attr("title"); ok && collapseWhitespace(title) != "" {
			return collapseWhitespace(title)
		}
		if title := collapseWhitespace(anchor.Text()); title != "" {
			return title
		}
	}
	return collapseWhitespace(container.Text())
}

func (a *ListingAdapter) Close() error {
	return nil
}
