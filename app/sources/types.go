package sources

// Strategy selects how a source's listing page is turned into candidates.
// An adapter is bound to exactly one strategy at registration time.
type Strategy string

const (
	// StrategyPattern parses rendered HTML with structural selectors.
	StrategyPattern Strategy = "pattern"
	// StrategyPlain is the same parsing over a non-rendered fetch, for
	// sites that block rendering-engine fingerprints but allow plain
	// requests.
	StrategyPlain Strategy = "plain"
	// StrategyVision extracts headlines from a screenshot and resolves
	// them back to URLs via the live DOM.
	StrategyVision Strategy = "vision"
	// StrategyFeed reads an RSS/Atom feed.
	StrategyFeed Strategy = "feed"
)

type Config struct {
	// Name is the source identifier, derived from the config filename.
	// It is the partition key for seen records.
	Name string `yaml:"-"`

	Source     ConfigSource     `yaml:"source"`
	Settings   ConfigSettings   `yaml:"settings"`
	Extraction ConfigExtraction `yaml:"extraction"`
	Vision     ConfigVision     `yaml:"vision"`
}

type ConfigSource struct {
	Title      string   `yaml:"title"`
	BaseURL    string   `yaml:"base_url"`
	ListingURL string   `yaml:"listing_url"`
	FeedURL    string   `yaml:"feed_url"`
	Strategy   Strategy `yaml:"strategy"`
}

type ConfigSettings struct {
	Enabled      bool  `yaml:"enabled"`
	MaxNewPerRun int   `yaml:"max_new_per_run"`
	MaxAgeDays   int   `yaml:"max_age_days"`
	Timeout      int   `yaml:"timeout"` // seconds, per navigation
	MaxRetries   int   `yaml:"max_retries"`
	Render       *bool `yaml:"render"` // overrides the strategy default
}

type ConfigExtraction struct {
	ContainerSelector string `yaml:"container_selector"`
	FallbackSelector  string `yaml:"fallback_selector"`
	TitleSelector     string `yaml:"title_selector"`
	URLPattern        string `yaml:"url_pattern"`
}

type ConfigVision struct {
	MaxHeadlines   int `yaml:"max_headlines"`
	MinMatchLength int `yaml:"min_match_length"`
}

// NeedsRendering reports whether this source requires a browser context.
// Pattern and vision sources render by default; plain and feed sources
// never do unless explicitly overridden.
func (c *Config) NeedsRendering() bool {
	if c.Settings.Render != nil {
		return *c.Settings.Render
	}
	switch c.Source.Strategy {
	case StrategyPattern, StrategyVision:
		return true
	default:
		return false
	}
}
