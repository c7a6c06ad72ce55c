package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// Action names the single transition a tick performed.
type Action string

const (
	ActionIdle      Action = "idle"
	ActionHalted    Action = "halted"
	ActionYear      Action = "year"
	ActionMonth     Action = "month"
	ActionDay       Action = "day"
	ActionEntity    Action = "entity"
	ActionCompleted Action = "completed"
)

type TickResult struct {
	Action    Action  `json:"action"`
	Key       string  `json:"key,omitempty"`
	Outcome   Outcome `json:"outcome,omitempty"`
	Error     string  `json:"error,omitempty"`
	Enqueued  int     `json:"enqueued,omitempty"`
	Completed bool    `json:"completed"`
}

// StartFullGeneration queues every year from the current one back to the
// earliest content or document year, plus all entity documents. A halted
// rebuild is resumed from its persisted queues instead.
func (e *Engine) StartFullGeneration(ctx context.Context) (*GenerationState, error) {
	e.work.Lock()
	defer e.work.Unlock()

	st, err := e.state.Load(ctx)
	if err != nil {
		return nil, err
	}

	if st.InProgress {
		return nil, ErrGenerationInProgress
	}

	if err := e.state.SetStopRequested(ctx, false); err != nil {
		return nil, err
	}
	st.InProgress = true
	st.StopRequested = false

	if st.HasPending() {
		if err := e.state.SaveRebuild(ctx, st); err != nil {
			return nil, err
		}
		slog.Info("Full generation resumed",
			"pending_years", st.PendingYears,
			"current_year", st.CurrentYear,
			"pending_months", len(st.PendingMonths),
			"pending_days", len(st.PendingDays),
			"pending_entities", len(st.PendingEntities))
		return st, nil
	}

	st.clearQueues()

	years, err := e.yearRange(ctx)
	if err != nil {
		return nil, err
	}
	st.PendingYears = years

	entities, err := e.entityKeys(ctx)
	if err != nil {
		return nil, err
	}
	st.PendingEntities = entities

	if err := e.state.SaveRebuild(ctx, st); err != nil {
		return nil, err
	}

	slog.Info("Full generation started", "years", years, "entities", len(entities))
	return st, nil
}

// yearRange returns current year down to the oldest year holding content
// or a document.
func (e *Engine) yearRange(ctx context.Context) ([]int, error) {
	current := sitemap.DateKey(e.now()).Year
	oldest := current

	earliest, err := e.detector.EarliestContentDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get earliest content date: %w", err)
	}
	if earliest != nil && earliest.Year() < oldest {
		oldest = earliest.Year()
	}

	docs, err := e.documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if doc.IsDate() && doc.Year > 0 && doc.Year < oldest {
			oldest = doc.Year
		}
	}

	years := make([]int, 0, current-oldest+1)
	for y := current; y >= oldest; y-- {
		years = append(years, y)
	}
	return years, nil
}

// entityKeys lists served entity keys followed by stored entity documents
// no provider serves any more, so that the rebuild removes them.
func (e *Engine) entityKeys(ctx context.Context) ([]string, error) {
	keys, err := e.registry.EntityKeys(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		seen[key.String()] = true
		out = append(out, key.String())
	}

	docs, err := e.documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if !doc.IsDate() && !seen[doc.Key] {
			seen[doc.Key] = true
			out = append(out, doc.Key)
		}
	}

	return out, nil
}

// HaltGeneration asks the running rebuild to stop at the next tick.
func (e *Engine) HaltGeneration(ctx context.Context) error {
	st, err := e.state.Load(ctx)
	if err != nil {
		return err
	}
	if !st.InProgress {
		return ErrNotInProgress
	}

	if err := e.state.SetStopRequested(ctx, true); err != nil {
		return err
	}

	slog.Info("Full generation halt requested")
	return nil
}

// ResetAllState discards any rebuild, halted or running, and the memoized
// earliest content date. Cron settings and pass timestamps are kept.
func (e *Engine) ResetAllState(ctx context.Context) error {
	e.work.Lock()
	defer e.work.Unlock()

	if err := e.state.ClearRebuild(ctx); err != nil {
		return err
	}
	if err := e.detector.ResetEarliest(ctx); err != nil {
		return err
	}

	slog.Info("Sitemap generation state reset")
	return nil
}

// Tick performs exactly one transition of the full rebuild and persists the
// result. A cancelled ctx or a persisted stop request prevents any new unit
// of work from starting. A failed day is logged and dropped; a failure to
// persist state is returned and the next tick starts over from whatever
// was last saved.
func (e *Engine) Tick(ctx context.Context) (*TickResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.work.Lock()
	defer e.work.Unlock()

	st, err := e.state.Load(ctx)
	if err != nil {
		return nil, err
	}

	if !st.InProgress {
		return &TickResult{Action: ActionIdle}, nil
	}

	if st.StopRequested {
		st.InProgress = false
		st.StopRequested = false
		if err := e.state.SaveRebuild(ctx, st); err != nil {
			return nil, err
		}
		if err := e.state.SetStopRequested(ctx, false); err != nil {
			return nil, err
		}
		slog.Info("Full generation halted",
			"pending_years", st.PendingYears,
			"current_year", st.CurrentYear,
			"pending_months", len(st.PendingMonths),
			"pending_days", len(st.PendingDays))
		return &TickResult{Action: ActionHalted}, nil
	}

	var result *TickResult

	switch {
	case len(st.PendingDays) > 0:
		result = e.processNextDay(ctx, st)
	case len(st.PendingMonths) > 0:
		result = e.processNextMonth(st)
	case len(st.PendingYears) > 0:
		result, err = e.processNextYear(ctx, st)
		if err != nil {
			return nil, err
		}
	case len(st.PendingEntities) > 0:
		result = e.processNextEntity(ctx, st)
	default:
		result = &TickResult{Action: ActionCompleted}
	}

	// Work interrupted by cancellation stays queued for the next tick.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !st.HasPending() {
		now := e.now()
		st.InProgress = false
		st.CurrentYear = 0
		st.CurrentMonth = 0
		st.LastRun = &now
		result.Completed = true
	}

	if err := e.state.SaveRebuild(ctx, st); err != nil {
		return nil, err
	}

	if result.Completed {
		// A halt that raced the last unit has nothing left to stop.
		if err := e.state.SetStopRequested(ctx, false); err != nil {
			return nil, err
		}
		slog.Info("Full generation completed")
	}

	return result, nil
}

func (e *Engine) processNextYear(ctx context.Context, st *GenerationState) (*TickResult, error) {
	year := st.PendingYears[0]
	today := sitemap.DateKey(e.now())

	months, err := e.content.FindContentMonths(ctx, e.query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to find content months for %d: %w", year, err)
	}

	documented, err := e.documents.FindDocumentMonths(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to find document months for %d: %w", year, err)
	}

	var queue []int
	for _, m := range append(months, documented...) {
		if year == today.Year && m > today.Month {
			continue
		}
		if m < 1 || m > 12 || slices.Contains(queue, m) {
			continue
		}
		queue = append(queue, m)
	}
	slices.SortFunc(queue, func(a, b int) int { return b - a })

	st.PendingYears = st.PendingYears[1:]
	st.CurrentYear = year
	st.PendingMonths = queue
	st.CurrentMonth = 0
	st.PendingDays = nil

	slog.Debug("Year processed", "year", year, "months", queue)

	return &TickResult{Action: ActionYear, Key: fmt.Sprintf("%04d", year), Enqueued: len(queue)}, nil
}

// processNextMonth queues every day of the month, newest first, never past today.
func (e *Engine) processNextMonth(st *GenerationState) *TickResult {
	month := st.PendingMonths[0]
	year := st.CurrentYear
	today := sitemap.DateKey(e.now())

	last := daysIn(year, month)
	if year == today.Year && month == today.Month {
		last = today.Day
	}
	if year > today.Year || (year == today.Year && month > today.Month) {
		last = 0
	}

	days := make([]int, 0, last)
	for d := last; d >= 1; d-- {
		days = append(days, d)
	}

	st.PendingMonths = st.PendingMonths[1:]
	st.CurrentMonth = month
	st.PendingDays = days

	slog.Debug("Month processed", "year", year, "month", month, "days", len(days))

	return &TickResult{Action: ActionMonth, Key: fmt.Sprintf("%04d-%02d", year, month), Enqueued: len(days)}
}

func (e *Engine) processNextDay(ctx context.Context, st *GenerationState) *TickResult {
	day := st.PendingDays[0]
	st.PendingDays = st.PendingDays[1:]

	key, err := sitemap.NewDateKey(st.CurrentYear, st.CurrentMonth, day)
	if err != nil {
		slog.Error("Dropping invalid day from queue", "year", st.CurrentYear, "month", st.CurrentMonth, "day", day, "error", err)
		return &TickResult{Action: ActionDay, Error: err.Error()}
	}

	return e.regenerateQueued(ctx, ActionDay, key)
}

func (e *Engine) processNextEntity(ctx context.Context, st *GenerationState) *TickResult {
	raw := st.PendingEntities[0]
	st.PendingEntities = st.PendingEntities[1:]

	key, err := sitemap.ParseKey(raw)
	if err != nil || key.IsDate() {
		slog.Error("Dropping invalid entity key from queue", "key", raw, "error", err)
		return &TickResult{Action: ActionEntity, Key: raw, Error: fmt.Sprintf("invalid entity key %q", raw)}
	}

	return e.regenerateQueued(ctx, ActionEntity, key)
}

func (e *Engine) regenerateQueued(ctx context.Context, action Action, key sitemap.Key) *TickResult {
	result := &TickResult{Action: action, Key: key.String()}

	outcome, err := e.Regenerate(ctx, key)
	if err != nil {
		slog.Error("Sitemap generation failed, dropping from queue", "key", key.String(), "error", err)
		result.Error = err.Error()
		return result
	}

	result.Outcome = outcome
	return result
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
