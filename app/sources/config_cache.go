package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigCache loads and holds per-source configurations. Sources are
// defined as one YAML file per source in the sources directory; the
// filename (without extension) becomes the source identifier.
type ConfigCache struct {
	sourcesDir string
	defaults   Defaults
	cache      map[string]*Config
	mu         sync.RWMutex
}

// Defaults supplies fallback settings for values a source file leaves
// unset. Flag and environment configuration can override them globally.
type Defaults struct {
	MaxNewPerRun   int
	MaxAgeDays     int
	MaxRetries     int
	MinMatchLength int
}

func StandardDefaults() Defaults {
	return Defaults{
		MaxNewPerRun:   10,
		MaxAgeDays:     30,
		MaxRetries:     3,
		MinMatchLength: 10,
	}
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		defaults:   StandardDefaults(),
		cache:      make(map[string]*Config),
	}
}

// SetDefaults replaces the fallback settings. Call before Run.
func (cc *ConfigCache) SetDefaults(defaults Defaults) {
	cc.defaults = defaults
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		sourceName := strings.TrimSuffix(fileName, ".yml")

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "source", sourceName,
			"strategy", config.Source.Strategy, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceName)
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = sourceName

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.MaxNewPerRun == 0 {
		config.Settings.MaxNewPerRun = cc.defaults.MaxNewPerRun
	}
	if config.Settings.MaxAgeDays == 0 {
		config.Settings.MaxAgeDays = cc.defaults.MaxAgeDays
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 45
	}
	if config.Settings.MaxRetries == 0 {
		config.Settings.MaxRetries = cc.defaults.MaxRetries
	}
	if config.Vision.MaxHeadlines == 0 {
		config.Vision.MaxHeadlines = 12
	}
	if config.Vision.MinMatchLength == 0 {
		config.Vision.MinMatchLength = cc.defaults.MinMatchLength
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	requiredFields := map[string]string{
		"source name":     config.Name,
		"source title":    config.Source.Title,
		"source base URL": config.Source.BaseURL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	switch config.Source.Strategy {
	case StrategyPattern, StrategyPlain:
		if config.Extraction.ContainerSelector == "" {
			return fmt.Errorf("container_selector is required for %s strategy", config.Source.Strategy)
		}
		if config.Extraction.URLPattern != "" {
			if _, err := regexp.Compile(config.Extraction.URLPattern); err != nil {
				return fmt.Errorf("invalid url_pattern: %w", err)
			}
		}
	case StrategyVision:
		// Vision sources need no selectors; headlines come from the screenshot.
	case StrategyFeed:
		if config.Source.FeedURL == "" {
			return fmt.Errorf("feed_url is required for feed strategy")
		}
	default:
		return fmt.Errorf("unknown strategy: %q", config.Source.Strategy)
	}

	if config.Source.ListingURL == "" && config.Source.Strategy != StrategyFeed {
		return fmt.Errorf("listing_url is required for %s strategy", config.Source.Strategy)
	}

	nonNegativeFields := map[string]int{
		"max_new_per_run": config.Settings.MaxNewPerRun,
		"max_age_days":    config.Settings.MaxAgeDays,
		"timeout":         config.Settings.Timeout,
		"max_retries":     config.Settings.MaxRetries,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}
