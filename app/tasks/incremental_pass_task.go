package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/sitemap-comb/app/engine"
)

type IncrementalPassTask struct {
	Task
	engine Engine
}

func NewIncrementalPassTask(e Engine) *IncrementalPassTask {
	return &IncrementalPassTask{
		Task:   NewTask(TaskTypeIncrementalPass, DefaultMaxRetries),
		engine: e,
	}
}

func (t *IncrementalPassTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.engine.CheckCronEnabled(ctx); err != nil {
		if errors.Is(err, engine.ErrCronDisabled) {
			slog.Debug("Sitemap cron disabled, skipping incremental pass", "id", t.ID)
			return nil
		}
		return fmt.Errorf("failed to check cron state: %w", err)
	}

	result, err := t.engine.RunIncrementalPass(ctx)
	if err != nil {
		return fmt.Errorf("failed to run incremental pass: %w", err)
	}

	if result.Skipped {
		return nil
	}

	slog.Info("Incremental pass task completed",
		"id", t.ID,
		"generated", len(result.Generated),
		"deleted", len(result.Deleted),
		"failed", len(result.Failed),
		"duration", t.GetDuration())

	return nil
}
