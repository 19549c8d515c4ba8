package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"

	"archscout/app/dates"
	"archscout/app/navigator"
	"archscout/app/sources"
)

const maxExcerptLength = 300

// Enricher visits a candidate's detail page to fill in what the listing
// could not provide: the publication date, a hero image and an excerpt.
// Enrichment is best effort; a candidate without a date is still a
// candidate.
type Enricher struct {
	normalizer *dates.Normalizer
}

func NewEnricher(normalizer *dates.Normalizer) *Enricher {
	return &Enricher{normalizer: normalizer}
}

// Enrich fetches the detail page and fills the candidate's optional
// fields in place. Fields already populated from the listing are kept.
func (e *Enricher) Enrich(ctx context.Context, fetcher navigator.Fetcher, candidate *Candidate, cfg *sources.Config) error {
	result, err := fetcher.Fetch(ctx, candidate.URL, navigator.Options{
		NeedsRendering: cfg.NeedsRendering(),
		MaxRetries:     cfg.Settings.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch detail page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return fmt.Errorf("failed to parse detail page: %w", err)
	}

	if candidate.PublishedAt == nil {
		candidate.PublishedAt = e.extractPublishedAt(doc)
	}
	if candidate.Hero == nil {
		candidate.Hero = e.extractHero(doc, candidate.URL)
	}
	if candidate.Excerpt == "" {
		candidate.Excerpt = e.extractExcerpt(doc, result.HTML, candidate.URL)
	}

	return nil
}

// extractPublishedAt tries the structured signals first and falls back
// to scanning visible text for a date.
func (e *Enricher) extractPublishedAt(doc *goquery.Document) *time.Time {
	if content, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		if parsed := e.normalizer.Parse(content); parsed != nil {
			return parsed
		}
	}

	var fromTimeTag *time.Time
	doc.Find("time[datetime]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		datetime, _ := sel.Attr("datetime")
		if parsed := e.normalizer.Parse(datetime); parsed != nil {
			fromTimeTag = parsed
			return false
		}
		return true
	})
	if fromTimeTag != nil {
		return fromTimeTag
	}

	// Last resort: a date printed somewhere near the top of the body.
	body := collapseWhitespace(doc.Find("article").First().Text())
	if body == "" {
		body = collapseWhitespace(doc.Find("main").First().Text())
	}
	if body == "" {
		body = collapseWhitespace(doc.Find("body").Text())
	}
	if len(body) > 2000 {
		body = body[:2000]
	}
	return e.normalizer.Parse(body)
}

func (e *Enricher) extractHero(doc *goquery.Document, pageURL string) *HeroImage {
	if src, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		if absolute, err := resolveURL(pageURL, src); err == nil {
			hero := &HeroImage{URL: absolute, Source: "og"}
			if width, ok := doc.Find(`meta[property="og:image:width"]`).Attr("content"); ok {
				hero.Width, _ = strconv.Atoi(width)
			}
			if height, ok := doc.Find(`meta[property="og:image:height"]`).Attr("content"); ok {
				hero.Height, _ = strconv.Atoi(height)
			}
			return hero
		}
	}

	var hero *HeroImage
	doc.Find("article img[src], main img[src], body img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		absolute, err := resolveURL(pageURL, src)
		if err != nil {
			return true
		}
		hero = &HeroImage{URL: absolute, Source: "content"}
		if width, ok := sel.Attr("width"); ok {
			hero.Width, _ = strconv.Atoi(width)
		}
		if height, ok := sel.Attr("height"); ok {
			hero.Height, _ = strconv.Atoi(height)
		}
		return false
	})
	return hero
}

func (e *Enricher) extractExcerpt(doc *goquery.Document, html, pageURL string) string {
	if content, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if excerpt := collapseWhitespace(content); excerpt != "" {
			return truncateExcerpt(excerpt)
		}
	}
	if content, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if excerpt := collapseWhitespace(content); excerpt != "" {
			return truncateExcerpt(excerpt)
		}
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return ""
	}
	if article.Excerpt != "" {
		return truncateExcerpt(collapseWhitespace(article.Excerpt))
	}
	return truncateExcerpt(collapseWhitespace(article.TextContent))
}

func truncateExcerpt(s string) string {
	if len(s) <= maxExcerptLength {
		return s
	}
	truncated := s[:maxExcerptLength]
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "…"
}
