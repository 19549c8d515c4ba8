package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"archscout/app/database"
	"archscout/app/navigator"
	"archscout/app/sources"
	"archscout/app/vision"
)

// VisionAdapter handles sources whose listing markup is too hostile for
// selectors. It screenshots the rendered page, asks the extraction
// service for visible headlines, drops the ones already known (fuzzy,
// since extracted text never matches byte for byte), then resolves the
// remaining headlines back to URLs through the live DOM.
type VisionAdapter struct {
	cfg       *sources.Config
	repo      database.SeenRepository
	extractor vision.HeadlineExtractor
}

var _ SiteAdapter = (*VisionAdapter)(nil)

func NewVisionAdapter(cfg *sources.Config, deps Deps) (SiteAdapter, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("vision adapter for %s requires a seen repository", cfg.Name)
	}
	extractor := deps.Extractor
	if extractor == nil {
		extractor = vision.Nop{}
	}
	return &VisionAdapter{cfg: cfg, repo: deps.Repo, extractor: extractor}, nil
}

func (a *VisionAdapter) Capabilities() Capabilities {
	return Capabilities{
		Strategy:       sources.StrategyVision,
		NeedsRendering: true,
		SelfDeduping:   true,
	}
}

func (a *VisionAdapter) FetchCandidates(ctx context.Context, fetcher navigator.Fetcher) ([]*Candidate, error) {
	result, err := fetcher.Fetch(ctx, a.cfg.Source.ListingURL, navigator.Options{
		NeedsRendering:    true,
		CaptureScreenshot: true,
		MaxRetries:        a.cfg.Settings.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing for %s: %w", a.cfg.Name, err)
	}

	headlines, err := a.extractor.ExtractHeadlines(ctx, result.Screenshot, a.cfg.Vision.MaxHeadlines)
	if err != nil {
		// Extraction failure means no matches this run, never a crash.
		slog.Warn("Headline extraction failed", "source", a.cfg.Name, "error", err)
		return nil, nil
	}
	if len(headlines) == 0 {
		return nil, nil
	}

	newHeadlines, err := a.repo.FindNewFuzzy(a.cfg.Name, headlines)
	if err != nil {
		return nil, fmt.Errorf("failed to dedup headlines for %s: %w", a.cfg.Name, err)
	}
	if len(newHeadlines) == 0 {
		return nil, nil
	}

	// Record the headlines immediately so the next run skips them even
	// if URL resolution fails below.
	if _, err := a.repo.MarkSeen(a.cfg.Name, newHeadlines, database.KindHeadline); err != nil {
		return nil, fmt.Errorf("failed to record headlines for %s: %w", a.cfg.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing for %s: %w", a.cfg.Name, err)
	}

	candidates := make([]*Candidate, 0, len(newHeadlines))
	for _, headline := range newHeadlines {
		href, ok := a.locateHeadline(doc, headline)
		if !ok {
			slog.Debug("Headline not located in DOM", "source", a.cfg.Name, "headline", headline)
			continue
		}

		absolute, err := resolveURL(a.cfg.Source.BaseURL, href)
		if err != nil {
			slog.Debug("Skipping unresolvable headline link", "source", a.cfg.Name,
				"headline", headline, "error", err)
			continue
		}

		candidate, err := NewCandidate(a.cfg.Name, headline, absolute)
		if err != nil {
			slog.Debug("Skipping invalid headline candidate", "source", a.cfg.Name, "error", err)
			continue
		}

		// Upgrade the headline record to the resolved URL so future
		// runs dedup on the stronger identifier.
		if err := a.repo.RebindIdentifier(a.cfg.Name, headline, absolute); err != nil {
			return candidates, fmt.Errorf("failed to rebind headline for %s: %w", a.cfg.Name, err)
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// locateHeadline finds the anchor whose text matches the extracted
// headline. Containment either way tolerates both extraction noise and
// anchors that carry extra text; short fragments are rejected to keep
// accidental matches out.
func (a *VisionAdapter) locateHeadline(doc *goquery.Document, headline string) (string, bool) {
	needle := strings.ToLower(collapseWhitespace(headline))
	minLength := a.cfg.Vision.MinMatchLength

	var (
		href  string
		found bool
	)
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(collapseWhitespace(sel.Text()))
		if len(text) < minLength || len(needle) < minLength {
			return true
		}
		if !strings.Contains(text, needle) && !strings.Contains(needle, text) {
			return true
		}
		if value, ok := sel.Attr("href"); ok {
			href = value
			found = true
			return false
		}
		return true
	})

	return href, found
}

func (a *VisionAdapter) Close() error {
	return nil
}
