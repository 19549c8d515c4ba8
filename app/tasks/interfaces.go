package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application uses it to run the discovery loop
// and the retention sweep without owning the worker pool.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
