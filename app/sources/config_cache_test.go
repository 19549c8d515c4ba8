package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSourceFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}
}

const patternSourceYML = `
source:
  title: "Landezine"
  base_url: "https://landezine.com"
  listing_url: "https://landezine.com/news"
  strategy: "pattern"
settings:
  enabled: true
extraction:
  container_selector: "article.post"
  title_selector: "h2"
  url_pattern: "/20\\d{2}/"
`

func TestRunLoadsConfigurations(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "landezine", patternSourceYML)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if cache.GetConfigCount() != 1 {
		t.Fatalf("expected 1 configuration, got %d", cache.GetConfigCount())
	}

	config, err := cache.GetConfig("landezine")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if config.Name != "landezine" {
		t.Errorf("name = %q, expected filename stem", config.Name)
	}
	if config.Source.Strategy != StrategyPattern {
		t.Errorf("strategy = %q, expected pattern", config.Source.Strategy)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "landezine", patternSourceYML)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	config, err := cache.GetConfig("landezine")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if config.Settings.MaxNewPerRun != 10 {
		t.Errorf("MaxNewPerRun = %d, expected default 10", config.Settings.MaxNewPerRun)
	}
	if config.Settings.MaxAgeDays != 30 {
		t.Errorf("MaxAgeDays = %d, expected default 30", config.Settings.MaxAgeDays)
	}
	if config.Settings.Timeout != 45 {
		t.Errorf("Timeout = %d, expected default 45", config.Settings.Timeout)
	}
	if config.Vision.MinMatchLength != 10 {
		t.Errorf("MinMatchLength = %d, expected default 10", config.Vision.MinMatchLength)
	}
}

func TestSetDefaultsOverridesFallbacks(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "landezine", patternSourceYML)

	cache := NewConfigCache(dir)
	cache.SetDefaults(Defaults{
		MaxNewPerRun:   3,
		MaxAgeDays:     7,
		MaxRetries:     1,
		MinMatchLength: 20,
	})
	if err := cache.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	config, err := cache.GetConfig("landezine")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}

	if config.Settings.MaxNewPerRun != 3 {
		t.Errorf("MaxNewPerRun = %d, expected override 3", config.Settings.MaxNewPerRun)
	}
	if config.Settings.MaxAgeDays != 7 {
		t.Errorf("MaxAgeDays = %d, expected override 7", config.Settings.MaxAgeDays)
	}
	if config.Vision.MinMatchLength != 20 {
		t.Errorf("MinMatchLength = %d, expected override 20", config.Vision.MinMatchLength)
	}
}

func TestValidateRejectsMissingSelector(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "broken", `
source:
  title: "Broken"
  base_url: "https://example.com"
  listing_url: "https://example.com/news"
  strategy: "pattern"
settings:
  enabled: true
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err == nil {
		t.Error("expected error for pattern source without container_selector")
	}
}

func TestValidateRejectsBadURLPattern(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "broken", `
source:
  title: "Broken"
  base_url: "https://example.com"
  listing_url: "https://example.com/news"
  strategy: "pattern"
extraction:
  container_selector: "article"
  url_pattern: "([unclosed"
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err == nil {
		t.Error("expected error for invalid url_pattern regexp")
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "broken", `
source:
  title: "Broken"
  base_url: "https://example.com"
  listing_url: "https://example.com/news"
  strategy: "telepathy"
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestFeedStrategyRequiresFeedURL(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "broken", `
source:
  title: "Broken"
  base_url: "https://example.com"
  strategy: "feed"
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err == nil {
		t.Error("expected error for feed source without feed_url")
	}
}

func TestGetEnabledConfigs(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "on", patternSourceYML)
	writeSourceFile(t, dir, "off", `
source:
  title: "Disabled"
  base_url: "https://example.com"
  listing_url: "https://example.com/news"
  strategy: "pattern"
settings:
  enabled: false
extraction:
  container_selector: "article"
`)

	cache := NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	enabled := cache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("enabled source missing from GetEnabledConfigs")
	}
}

func TestNeedsRendering(t *testing.T) {
	renderOff := false

	cases := []struct {
		strategy Strategy
		render   *bool
		want     bool
	}{
		{StrategyPattern, nil, true},
		{StrategyVision, nil, true},
		{StrategyPlain, nil, false},
		{StrategyFeed, nil, false},
		{StrategyPattern, &renderOff, false},
	}

	for _, tc := range cases {
		config := &Config{}
		config.Source.Strategy = tc.strategy
		config.Settings.Render = tc.render
		if got := config.NeedsRendering(); got != tc.want {
			t.Errorf("NeedsRendering(%s, override=%v) = %v, expected %v", tc.strategy, tc.render, got, tc.want)
		}
	}
}
