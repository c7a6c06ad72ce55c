package tasks

import (
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// NewLoggingWrapper logs the start and end of every cron run under its own
// execution id.
func NewLoggingWrapper(logger *slog.Logger, name string) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			jobLogger := logger.With(
				slog.String("job_name", name),
				slog.String("execution_id", uuid.New().String()),
			)

			start := time.Now()
			jobLogger.Debug("Job execution started")

			j.Run()

			jobLogger.Debug("Job execution finished", slog.Duration("duration", time.Since(start)))
		})
	}
}

// NewPanicRecoveryWrapper keeps a panicking job from taking the process down.
func NewPanicRecoveryWrapper(logger *slog.Logger, name string) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Job panicked",
						slog.String("job_name", name),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()

			j.Run()
		})
	}
}
