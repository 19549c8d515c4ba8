package api

import (
	"archscout/app/database"
	"archscout/app/discovery"
	"archscout/app/sources"
	"archscout/app/tasks"
)

// RunTaskFactory builds a discovery task for one source. Injected so
// the API package stays ignorant of adapter wiring.
type RunTaskFactory func(cfg *sources.Config) tasks.TaskInterface

type Handler struct {
	repo        database.SeenRepository
	configCache *sources.ConfigCache
	summaries   *discovery.SummaryStore
	scheduler   tasks.TaskSchedulerInterface
	newRunTask  RunTaskFactory
}
