package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Status struct {
	Enabled         bool       `json:"enabled"`
	Frequency       string     `json:"frequency"`
	InProgress      bool       `json:"in_progress"`
	Halted          bool       `json:"halted"`
	StopRequested   bool       `json:"stop_requested"`
	NextScheduled   *time.Time `json:"next_scheduled"`
	LastRun         *time.Time `json:"last_run"`
	LastCheck       *time.Time `json:"last_check"`
	LastUpdate      *time.Time `json:"last_update"`
	CurrentYear     int        `json:"current_year,omitempty"`
	CurrentMonth    int        `json:"current_month,omitempty"`
	PendingYears    []int      `json:"pending_years"`
	PendingMonths   int        `json:"pending_months"`
	PendingDays     int        `json:"pending_days"`
	PendingEntities int        `json:"pending_entities"`
}

func (e *Engine) GetStatus(ctx context.Context) (*Status, error) {
	st, err := e.state.Load(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Enabled:         st.CronEnabled,
		Frequency:       st.CronFrequency,
		InProgress:      st.InProgress,
		Halted:          st.Halted(),
		StopRequested:   st.StopRequested,
		LastRun:         st.LastRun,
		LastCheck:       st.LastCheck,
		LastUpdate:      st.LastUpdate,
		CurrentYear:     st.CurrentYear,
		CurrentMonth:    st.CurrentMonth,
		PendingYears:    st.PendingYears,
		PendingMonths:   len(st.PendingMonths),
		PendingDays:     len(st.PendingDays),
		PendingEntities: len(st.PendingEntities),
	}

	if status.PendingYears == nil {
		status.PendingYears = []int{}
	}

	if s := e.attachedScheduler(); s != nil && st.CronEnabled {
		status.NextScheduled = s.NextRun()
	}

	return status, nil
}

// SetCronEnabled toggles scheduled ticks. Disabling also discards any
// rebuild state.
func (e *Engine) SetCronEnabled(ctx context.Context, enabled bool) error {
	if !enabled {
		e.work.Lock()
		defer e.work.Unlock()

		if err := e.state.ClearRebuild(ctx); err != nil {
			return err
		}
	}

	if err := e.state.SetCronEnabled(ctx, enabled); err != nil {
		return err
	}

	slog.Info("Sitemap cron updated", "enabled", enabled)
	return nil
}

// SetCronFrequency validates spec, reschedules the attached tick source and
// persists the new setting.
func (e *Engine) SetCronFrequency(ctx context.Context, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron frequency %q: %w", spec, err)
	}

	if s := e.attachedScheduler(); s != nil {
		if err := s.Reschedule(spec); err != nil {
			return fmt.Errorf("failed to reschedule generation: %w", err)
		}
	}

	if err := e.state.SetCronFrequency(ctx, spec); err != nil {
		return err
	}

	slog.Info("Sitemap cron frequency updated", "frequency", spec)
	return nil
}

// CronFrequency returns the persisted generation schedule, or the default.
func (e *Engine) CronFrequency(ctx context.Context) (string, error) {
	st, err := e.state.Load(ctx)
	if err != nil {
		return "", err
	}
	return st.CronFrequency, nil
}
