package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath        string `long:"db-path" env:"DB_PATH" default:"./archscout.db" description:"Path to the SQLite novelty database"`
	RetentionDays int    `long:"retention-days" env:"RETENTION_DAYS" default:"90" description:"Purge seen records older than this many days"`

	// Discovery configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	MaxNewPerRun      int    `long:"max-new-per-run" env:"MAX_NEW_PER_RUN" default:"10" description:"Default cap on detail fetches per source per run"`
	MaxAgeDays        int    `long:"max-age-days" env:"MAX_AGE_DAYS" default:"30" description:"Default freshness window in days"`
	FuzzyMinLength    int    `long:"fuzzy-min-length" env:"FUZZY_MIN_LENGTH" default:"10" description:"Minimum headline length for fuzzy DOM matching"`
	RunTimeout        int    `long:"run-timeout" env:"RUN_TIMEOUT" default:"300" description:"Overall per-source run timeout in seconds"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for source processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"1800" description:"Scheduler interval in seconds (serve mode)"`

	// Navigation configuration
	UserAgent         string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36" description:"User agent string for HTTP requests"`
	MaxRetries        int    `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Navigation retries after the initial attempt"`
	BackoffBase       int    `long:"backoff-base" env:"BACKOFF_BASE" default:"2" description:"Base backoff delay in seconds"`
	SoftBlockCooldown int    `long:"softblock-cooldown" env:"SOFTBLOCK_COOLDOWN" default:"15" description:"Extra cool-down in seconds before retrying a soft-blocked URL"`
	DisableRendering  bool   `long:"disable-rendering" env:"DISABLE_RENDERING" description:"Force plain HTTP fetches even for rendering sources"`
	ChromeEndpoint    string `long:"chrome-endpoint" env:"CHROME_ENDPOINT" description:"Remote Chrome DevTools websocket URL (empty runs a local headless browser)"`

	// Vision collaborator
	VisionEndpoint string `long:"vision-endpoint" env:"VISION_ENDPOINT" description:"Headline extraction service URL (vision strategy)"`
	VisionAPIKey   string `long:"vision-api-key" env:"VISION_API_KEY" description:"API key for the headline extraction service"`

	// Delivery
	DeliveryDir string `long:"delivery-dir" env:"DELIVERY_DIR" default:"./delivered" description:"Directory for delivered candidate batches"`
	WebhookURL  string `long:"webhook-url" env:"WEBHOOK_URL" description:"Optional webhook to POST delivered batches to"`

	// HTTP API (serve mode)
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (serve mode)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Run modes
	Serve        bool   `long:"serve" description:"Run the long-lived scheduler with the HTTP API"`
	Test         bool   `long:"test" description:"Check connectivity of all components and exit"`
	MetadataOnly bool   `long:"metadata-only" description:"Skip detail-page fetches during discovery"`
	Purge        bool   `long:"purge" description:"Run the retention sweep and exit"`
	Source       string `long:"source" description:"Process only the named source"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses command-line flags and environment variables. A nil Cfg
// with a nil error means help was requested.
func Load(args []string) (*Cfg, []string, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	rest, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil, nil
			}
		}
		return nil, nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		RetentionDays:     raw.RetentionDays,
		SourcesDir:        raw.SourcesDir,
		MaxNewPerRun:      raw.MaxNewPerRun,
		MaxAgeDays:        raw.MaxAgeDays,
		FuzzyMinLength:    raw.FuzzyMinLength,
		RunTimeout:        raw.RunTimeout,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		UserAgent:         raw.UserAgent,
		MaxRetries:        raw.MaxRetries,
		BackoffBase:       raw.BackoffBase,
		SoftBlockCooldown: raw.SoftBlockCooldown,
		DisableRendering:  raw.DisableRendering,
		ChromeEndpoint:    raw.ChromeEndpoint,
		VisionEndpoint:    raw.VisionEndpoint,
		VisionAPIKey:      raw.VisionAPIKey,
		DeliveryDir:       raw.DeliveryDir,
		WebhookURL:        raw.WebhookURL,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		Serve:             raw.Serve,
		Test:              raw.Test,
		MetadataOnly:      raw.MetadataOnly,
		Purge:             raw.Purge,
		Source:            raw.Source,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, rest, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
