// Package dates turns the date text scraped from listing and article
// pages into canonical UTC timestamps and answers freshness queries.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	// 28.12.2025, day first, always. dateparse would read this as
	// US month-first, so it is handled before the fallback parser.
	reDotted = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)

	// 2025-12-28 with optional time/offset suffix.
	reISO = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[T ][0-9:.]+(?:Z|[+-]\d{2}:?\d{2})?)?`)

	// "28 December 2025", case-insensitive month names.
	reMonthName = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock injects the clock. Intended for tests.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Parse extracts a timestamp from free text. It returns nil, not an
// error, when nothing parseable is found: the orchestrator treats an
// unknown date as fresh rather than dropping the item.
func (n *Normalizer) Parse(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if m := reISO.FindString(text); m != "" {
		if t, err := parseISO(m); err == nil {
			return &t
		}
	}

	if m := reDotted.FindStringSubmatch(text); m != nil {
		if t, err := buildDate(m[3], m[2], m[1]); err == nil {
			return &t
		}
	}

	if m := reMonthName.FindStringSubmatch(text); m != nil {
		month := monthsByName[strings.ToLower(m[2])]
		if t, err := buildDate(m[3], strconv.Itoa(int(month)), m[1]); err == nil {
			return &t
		}
	}

	// Anything else (RFC1123, "Jan 2, 2006", unix-ish strings) goes to
	// the generic parser.
	if t, err := dateparse.ParseAny(text); err == nil {
		t = t.UTC()
		return &t
	}

	return nil
}

// IsFresh reports whether ts falls inside the maxAgeDays window ending
// now. A nil timestamp is always fresh.
func (n *Normalizer) IsFresh(ts *time.Time, maxAgeDays int) bool {
	if ts == nil {
		return true
	}
	age := n.now().UTC().Sub(ts.UTC())
	return age <= time.Duration(maxAgeDays)*24*time.Hour
}

// AgeDays returns the candidate age in whole days, or -1 for unknown.
func (n *Normalizer) AgeDays(ts *time.Time) int {
	if ts == nil {
		return -1
	}
	return int(n.now().UTC().Sub(ts.UTC()).Hours() / 24)
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO date: %q", s)
}

func buildDate(year, month, day string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, err
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %d.%d.%d", d, m, y)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like 31.02.2025.
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, fmt.Errorf("invalid date %d.%d.%d", d, m, y)
	}
	return t, nil
}
