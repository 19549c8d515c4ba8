package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"archscout/app/adapters"
	"archscout/app/api"
	"archscout/app/cfg"
	"archscout/app/database"
	"archscout/app/dates"
	"archscout/app/delivery"
	"archscout/app/discovery"
	"archscout/app/navigator"
	"archscout/app/sources"
	"archscout/app/tasks"
	"archscout/app/vision"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, _, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if appCfg == nil {
		// Help was shown
		return 0
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting archscout", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		return 1
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return 1
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	repo := database.NewSeenRepo(db)

	if appCfg.Purge {
		return runPurge(repo, appCfg)
	}

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	configCache.SetDefaults(sources.Defaults{
		MaxNewPerRun:   appCfg.MaxNewPerRun,
		MaxAgeDays:     appCfg.MaxAgeDays,
		MaxRetries:     appCfg.MaxRetries,
		MinMatchLength: appCfg.FuzzyMinLength,
	})
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		return 1
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	var renderer navigator.Renderer
	if !appCfg.DisableRendering {
		chromeRenderer := navigator.NewChromeRenderer(navigator.ChromeOptions{
			RemoteURL: appCfg.ChromeEndpoint,
		})
		defer chromeRenderer.Close()
		renderer = chromeRenderer
	}

	nav := navigator.New(
		&http.Client{Timeout: 60 * time.Second},
		renderer,
		navigator.DefaultProfile(appCfg.UserAgent),
		navigator.Config{
			BackoffBase:       time.Duration(appCfg.BackoffBase) * time.Second,
			SoftBlockCooldown: time.Duration(appCfg.SoftBlockCooldown) * time.Second,
		},
	)

	var extractor vision.HeadlineExtractor = vision.Nop{}
	if appCfg.VisionEndpoint != "" {
		extractor = vision.NewClient(appCfg.VisionEndpoint, appCfg.VisionAPIKey)
	}

	normalizer := dates.NewNormalizer()
	enricher := adapters.NewEnricher(normalizer)

	fileDeliverer, err := delivery.NewFileDeliverer(appCfg.DeliveryDir)
	if err != nil {
		slog.Error("Failed to set up delivery directory", "dir", appCfg.DeliveryDir, "error", err)
		return 1
	}
	deliverer := delivery.Multi{fileDeliverer}
	if appCfg.WebhookURL != "" {
		deliverer = append(deliverer, delivery.NewWebhookDeliverer(appCfg.WebhookURL))
	}

	deps := adapters.Deps{
		Repo:       repo,
		Extractor:  extractor,
		Normalizer: normalizer,
	}
	registry := adapters.DefaultRegistry()

	orchestrator := discovery.NewOrchestrator(repo, nav, enricher, deliverer, normalizer,
		discovery.Options{
			RunTimeout:   time.Duration(appCfg.RunTimeout) * time.Second,
			MetadataOnly: appCfg.MetadataOnly,
		})
	summaries := discovery.NewSummaryStore()

	if appCfg.Test {
		return runConnectivityTest(repo, configCache, nav, extractor, appCfg)
	}

	if appCfg.Serve {
		return runServe(repo, configCache, registry, deps, orchestrator, summaries, appCfg)
	}

	return runOnce(configCache, registry, deps, orchestrator, summaries, appCfg)
}

// runOnce processes the selected sources sequentially and exits. Any
// source ending in error makes the exit code nonzero; the other sources
// still run to completion.
func runOnce(configCache *sources.ConfigCache, registry *adapters.Registry,
	deps adapters.Deps, orchestrator *discovery.Orchestrator,
	summaries *discovery.SummaryStore, appCfg *cfg.Cfg) int {
	configs := selectConfigs(configCache, appCfg.Source)
	if len(configs) == 0 {
		slog.Error("No matching enabled sources", "source", appCfg.Source)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, sourceConfig := range configs {
		adapter, err := registry.Build(sourceConfig, deps)
		if err != nil {
			slog.Error("Failed to build adapter", "source", sourceConfig.Name, "error", err)
			failed++
			continue
		}

		summary := orchestrator.RunSource(ctx, sourceConfig, adapter)
		summaries.Record(summary)
		adapter.Close()

		if summary.State == discovery.RunError {
			failed++
		}
		if ctx.Err() != nil {
			slog.Warn("Run interrupted")
			break
		}
	}

	slog.Info("Run complete", "sources", len(configs), "failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// runServe starts the background scheduler and the HTTP API, then waits
// for a shutdown signal.
func runServe(repo database.SeenRepository, configCache *sources.ConfigCache,
	registry *adapters.Registry, deps adapters.Deps,
	orchestrator *discovery.Orchestrator, summaries *discovery.SummaryStore,
	appCfg *cfg.Cfg) int {
	scheduler := tasks.NewScheduler(configCache, registry, deps, orchestrator, summaries, repo)
	scheduler.Start()
	defer scheduler.Stop()

	newRunTask := func(sourceConfig *sources.Config) tasks.TaskInterface {
		return tasks.NewProcessSourceTask(sourceConfig.Name, sourceConfig, registry, deps, orchestrator, summaries)
	}

	handler := api.NewHandler(repo, configCache, summaries, scheduler, newRunTask)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return exitCode
}

func runPurge(repo database.SeenRepository, appCfg *cfg.Cfg) int {
	removed, err := repo.PurgeOlderThan("", appCfg.RetentionDays)
	if err != nil {
		slog.Error("Retention sweep failed", "error", err)
		return 1
	}
	slog.Info("Retention sweep completed", "removed", removed, "retention_days", appCfg.RetentionDays)
	return 0
}

// runConnectivityTest exercises each collaborator once so a broken
// deployment fails loudly before the first scheduled run.
func runConnectivityTest(repo database.SeenRepository, configCache *sources.ConfigCache,
	nav navigator.Fetcher, extractor vision.HeadlineExtractor, appCfg *cfg.Cfg) int {
	ok := true

	if stats, err := repo.GetStats(""); err != nil {
		slog.Error("Store check failed", "error", err)
		ok = false
	} else {
		slog.Info("Store check passed", "records", stats.TotalRecords, "sources", len(stats.Sources))
	}

	configs := selectConfigs(configCache, appCfg.Source)
	if len(configs) == 0 {
		slog.Error("No enabled sources to test")
		ok = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, sourceConfig := range configs {
		url := sourceConfig.Source.ListingURL
		if sourceConfig.Source.Strategy == sources.StrategyFeed {
			url = sourceConfig.Source.FeedURL
		}
		result, err := nav.Fetch(ctx, url, navigator.Options{
			NeedsRendering: sourceConfig.NeedsRendering() && !appCfg.DisableRendering,
			MaxRetries:     0,
		})
		if err != nil {
			slog.Error("Source check failed", "source", sourceConfig.Name, "url", url, "error", err)
			ok = false
			continue
		}
		slog.Info("Source check passed", "source", sourceConfig.Name,
			"status", result.StatusCode, "bytes", len(result.HTML))
	}

	if appCfg.VisionEndpoint != "" {
		if _, err := extractor.ExtractHeadlines(ctx, []byte{0}, 1); err != nil {
			slog.Warn("Vision endpoint check failed", "endpoint", appCfg.VisionEndpoint, "error", err)
		} else {
			slog.Info("Vision endpoint check passed")
		}
	}

	if !ok {
		return 1
	}
	slog.Info("All connectivity checks passed")
	return 0
}

// selectConfigs returns the enabled sources sorted by name, narrowed to
// one source when a filter is given. A filtered source is returned even
// if disabled; asking for it by name overrides the switch.
func selectConfigs(configCache *sources.ConfigCache, filter string) []*sources.Config {
	if filter != "" {
		sourceConfig, err := configCache.GetConfig(filter)
		if err != nil {
			return nil
		}
		return []*sources.Config{sourceConfig}
	}

	byName := configCache.GetEnabledConfigs()
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]*sources.Config, 0, len(names))
	for _, name := range names {
		configs = append(configs, byName[name])
	}
	return configs
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}
