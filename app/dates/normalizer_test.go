package dates

import (
	"testing"
	"time"
)

func TestParseISOFormats(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		input string
		want  time.Time
	}{
		{"2025-12-28", time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)},
		{"2025-12-28T10:30:00Z", time.Date(2025, 12, 28, 10, 30, 0, 0, time.UTC)},
		{"2025-12-28T10:30:00+02:00", time.Date(2025, 12, 28, 8, 30, 0, 0, time.UTC)},
		{"2025-12-28 10:30:00", time.Date(2025, 12, 28, 10, 30, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got := n.Parse(tc.input)
		if got == nil {
			t.Errorf("Parse(%q) returned nil", tc.input)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("Parse(%q) = %v, expected %v", tc.input, got, tc.want)
		}
	}
}

func TestParseDottedDatesAreDayFirst(t *testing.T) {
	n := NewNormalizer()

	got := n.Parse("28.12.2025")
	if got == nil {
		t.Fatal("Parse returned nil for dotted date")
	}
	want := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Parse(28.12.2025) = %v, expected %v", got, want)
	}

	// Ambiguous day/month must still read day-first.
	got = n.Parse("05.03.2026")
	if got == nil {
		t.Fatal("Parse returned nil for ambiguous dotted date")
	}
	if got.Month() != time.March || got.Day() != 5 {
		t.Errorf("Parse(05.03.2026) = %v, expected March 5", got)
	}
}

func TestParseMonthNames(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		input string
		want  time.Time
	}{
		{"28 December 2025", time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)},
		{"3rd March 2026", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
		{"1st january 2026", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got := n.Parse(tc.input)
		if got == nil {
			t.Errorf("Parse(%q) returned nil", tc.input)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("Parse(%q) = %v, expected %v", tc.input, got, tc.want)
		}
	}
}

func TestParseFindsDateInsideText(t *testing.T) {
	n := NewNormalizer()

	got := n.Parse("New Landscape Park in Rotterdam 28.12.2025 read more")
	if got == nil {
		t.Fatal("Parse returned nil for embedded date")
	}
	want := time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Parse = %v, expected %v", got, want)
	}
}

func TestParseRejectsInvalidCalendarDates(t *testing.T) {
	n := NewNormalizer()

	if got := n.Parse("31.02.2025"); got != nil {
		t.Errorf("expected nil for 31.02.2025, got %v", got)
	}
}

func TestParseUnparseableReturnsNil(t *testing.T) {
	n := NewNormalizer()

	for _, input := range []string{"", "   ", "no date here at all"} {
		if got := n.Parse(input); got != nil {
			t.Errorf("Parse(%q) = %v, expected nil", input, got)
		}
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	n := NewNormalizerWithClock(func() time.Time { return now })

	recent := now.AddDate(0, 0, -5)
	if !n.IsFresh(&recent, 30) {
		t.Error("5 day old timestamp should be fresh within 30 days")
	}

	boundary := now.Add(-30 * 24 * time.Hour)
	if !n.IsFresh(&boundary, 30) {
		t.Error("timestamp exactly at the window boundary should be fresh")
	}

	old := now.AddDate(0, 0, -40)
	if n.IsFresh(&old, 30) {
		t.Error("40 day old timestamp should not be fresh within 30 days")
	}

	if !n.IsFresh(nil, 30) {
		t.Error("nil timestamp should always be fresh")
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	n := NewNormalizerWithClock(func() time.Time { return now })

	ts := now.AddDate(0, 0, -7)
	if got := n.AgeDays(&ts); got != 7 {
		t.Errorf("AgeDays = %d, expected 7", got)
	}

	if got := n.AgeDays(nil); got != -1 {
		t.Errorf("AgeDays(nil) = %d, expected -1", got)
	}
}
