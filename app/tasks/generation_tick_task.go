package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/sitemap-comb/app/engine"
)

// GenerationTickTask advances the full rebuild by one step. It is never
// retried: the next scheduled tick picks up from the persisted state.
type GenerationTickTask struct {
	Task
	engine Engine
}

func NewGenerationTickTask(e Engine) *GenerationTickTask {
	return &GenerationTickTask{
		Task:   NewTask(TaskTypeGenerationTick, 0),
		engine: e,
	}
}

func (t *GenerationTickTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.engine.CheckCronEnabled(ctx); err != nil {
		if errors.Is(err, engine.ErrCronDisabled) {
			slog.Debug("Sitemap cron disabled, skipping tick", "id", t.ID)
			return nil
		}
		return fmt.Errorf("failed to check cron state: %w", err)
	}

	result, err := t.engine.Tick(ctx)
	if err != nil {
		return fmt.Errorf("failed to tick generation: %w", err)
	}

	if result.Action == engine.ActionIdle {
		return nil
	}

	slog.Info("Generation tick completed",
		"id", t.ID,
		"action", string(result.Action),
		"key", result.Key,
		"outcome", string(result.Outcome),
		"enqueued", result.Enqueued,
		"completed", result.Completed,
		"duration", t.GetDuration())

	return nil
}
