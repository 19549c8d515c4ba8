package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"archscout/app/database"
	"archscout/app/discovery"
	"archscout/app/sources"
	"archscout/app/tasks"
)

func NewHandler(repo database.SeenRepository, configCache *sources.ConfigCache,
	summaries *discovery.SummaryStore, scheduler tasks.TaskSchedulerInterface,
	newRunTask RunTaskFactory) *Handler {
	return &Handler{
		repo:        repo,
		configCache: configCache,
		summaries:   summaries,
		scheduler:   scheduler,
		newRunTask:  newRunTask,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if stats, err := h.repo.GetStats(""); err == nil {
		health["seen_records"] = stats.TotalRecords
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats(c.Query("source"))
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"store":     stats,
		"last_runs": h.summaries.All(),
	})
}

func (h *Handler) GetSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	list := make([]map[string]interface{}, 0, len(configs))
	for _, sourceConfig := range configs {
		info := map[string]interface{}{
			"name":            sourceConfig.Name,
			"title":           sourceConfig.Source.Title,
			"strategy":        sourceConfig.Source.Strategy,
			"enabled":         sourceConfig.Settings.Enabled,
			"max_new_per_run": sourceConfig.Settings.MaxNewPerRun,
			"max_age_days":    sourceConfig.Settings.MaxAgeDays,
		}
		if summary, ok := h.summaries.Get(sourceConfig.Name); ok {
			info["last_run"] = summary
		}
		list = append(list, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": list,
		"total":   len(list),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	details := map[string]interface{}{
		"name":        name,
		"title":       sourceConfig.Source.Title,
		"strategy":    sourceConfig.Source.Strategy,
		"listing_url": sourceConfig.Source.ListingURL,
		"enabled":     sourceConfig.Settings.Enabled,
		"timeout":     (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
	}

	if stats, err := h.repo.GetStats(name); err == nil {
		details["store"] = stats
	}
	if records, err := h.repo.RecentRecords(name, 20); err == nil {
		details["recent"] = records
	}
	if summary, ok := h.summaries.Get(name); ok {
		details["last_run"] = summary
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIRunSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	task := h.newRunTask(sourceConfig)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing source run", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue source run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"source":  name,
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}
