package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"archscout/app/dates"
	"archscout/app/navigator"
	"archscout/app/sources"
)

// FeedAdapter reads an RSS/Atom feed. Feeds are fetched plain; no site
// serves a challenge page on its own feed endpoint.
type FeedAdapter struct {
	cfg        *sources.Config
	parser     *gofeed.Parser
	normalizer *dates.Normalizer
}

var _ SiteAdapter = (*FeedAdapter)(nil)

func NewFeedAdapter(cfg *sources.Config, deps Deps) (SiteAdapter, error) {
	return &FeedAdapter{
		cfg:        cfg,
		parser:     gofeed.NewParser(),
		normalizer: deps.Normalizer,
	}, nil
}

func (a *FeedAdapter) Capabilities() Capabilities {
	return Capabilities{
		Strategy:       sources.StrategyFeed,
		NeedsRendering: false,
	}
}

func (a *FeedAdapter) FetchCandidates(ctx context.Context, fetcher navigator.Fetcher) ([]*Candidate, error) {
	result, err := fetcher.Fetch(ctx, a.cfg.Source.FeedURL, navigator.Options{
		NeedsRendering: false,
		MaxRetries:     a.cfg.Settings.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for %s: %w", a.cfg.Name, err)
	}

	feed, err := a.parser.ParseString(result.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed for %s: %w", a.cfg.Name, err)
	}

	candidates := make([]*Candidate, 0, len(feed.Items))
	seenURLs := make(map[string]bool)

	for _, item := range feed.Items {
		candidate, err := a.itemCandidate(item)
		if err != nil {
			slog.Debug("Skipping feed item", "source", a.cfg.Name, "error", err)
			continue
		}
		if seenURLs[candidate.URL] {
			continue
		}
		seenURLs[candidate.URL] = true
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func (a *FeedAdapter) itemCandidate(item *gofeed.Item) (*Candidate, error) {
	link, err := resolveURL(a.cfg.Source.BaseURL, item.Link)
	if err != nil {
		return nil, err
	}

	candidate, err := NewCandidate(a.cfg.Name, item.Title, link)
	if err != nil {
		return nil, err
	}

	switch {
	case item.PublishedParsed != nil:
		published := item.PublishedParsed.UTC()
		candidate.PublishedAt = &published
	case item.Published != "" && a.normalizer != nil:
		candidate.PublishedAt = a.normalizer.Parse(item.Published)
	}

	candidate.Excerpt = collapseWhitespace(item.Description)

	if item.Image != nil && item.Image.URL != "" {
		candidate.Hero = &HeroImage{URL: item.Image.URL, Source: "feed"}
	} else {
		for _, enclosure := range item.Enclosures {
			if enclosure.URL != "" {
				candidate.Hero = &HeroImage{URL: enclosure.URL, Source: "feed"}
				break
			}
		}
	}

	return candidate, nil
}

func (a *FeedAdapter) Close() error {
	return nil
}
