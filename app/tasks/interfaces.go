package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/engine"
)

// TaskSchedulerInterface defines the interface for background generation.
// The scheduler owns the cron entries that enqueue rebuild ticks and
// incremental passes, and the worker that runs them one at a time.
// Example usage:
//
//	scheduler, err := NewScheduler(eng, "@every 1m", "@every 10m")
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIncrementalPassTask(eng))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Reschedule(spec string) error
	NextRun() *time.Time
}

// Engine is the part of the generation engine the tasks drive.
type Engine interface {
	CheckCronEnabled(ctx context.Context) error
	Tick(ctx context.Context) (*engine.TickResult, error)
	RunIncrementalPass(ctx context.Context) (*engine.PassResult, error)
}
