package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/database"
)

const (
	OptionInProgress      = "sitemap_generation_in_progress"
	OptionStopRequested   = "sitemap_generation_stop_requested"
	OptionPendingYears    = "sitemap_pending_years"
	OptionCurrentYear     = "sitemap_current_year"
	OptionPendingMonths   = "sitemap_pending_months"
	OptionCurrentMonth    = "sitemap_current_month"
	OptionPendingDays     = "sitemap_pending_days"
	OptionPendingEntities = "sitemap_pending_entities"
	OptionLastRun         = "sitemap_last_run"
	OptionLastCheck       = "sitemap_last_check"
	OptionLastUpdate      = "sitemap_last_update"
	OptionCronEnabled     = "sitemap_cron_enabled"
	OptionCronFrequency   = "sitemap_cron_frequency"
)

// rebuildOptions are the options describing a full rebuild in flight.
var rebuildOptions = []string{
	OptionInProgress,
	OptionStopRequested,
	OptionPendingYears,
	OptionCurrentYear,
	OptionPendingMonths,
	OptionCurrentMonth,
	OptionPendingDays,
	OptionPendingEntities,
}

// GenerationState is the persisted progress of a full rebuild plus the
// scheduler settings. PendingMonths belong to CurrentYear and PendingDays
// to CurrentYear/CurrentMonth.
type GenerationState struct {
	InProgress      bool
	StopRequested   bool
	PendingYears    []int
	CurrentYear     int
	PendingMonths   []int
	CurrentMonth    int
	PendingDays     []int
	PendingEntities []string

	LastRun    *time.Time
	LastCheck  *time.Time
	LastUpdate *time.Time

	CronEnabled   bool
	CronFrequency string
}

// HasPending reports whether any queue still holds work.
func (s *GenerationState) HasPending() bool {
	return len(s.PendingYears) > 0 || len(s.PendingMonths) > 0 ||
		len(s.PendingDays) > 0 || len(s.PendingEntities) > 0
}

// Halted reports a rebuild that was stopped with work left in its queues.
func (s *GenerationState) Halted() bool {
	return !s.InProgress && s.HasPending()
}

func (s *GenerationState) clearQueues() {
	s.PendingYears = nil
	s.CurrentYear = 0
	s.PendingMonths = nil
	s.CurrentMonth = 0
	s.PendingDays = nil
	s.PendingEntities = nil
}

// StateStore maps GenerationState onto individual options.
type StateStore struct {
	options          database.OptionStore
	defaultFrequency string
}

func NewStateStore(options database.OptionStore, defaultFrequency string) *StateStore {
	return &StateStore{options: options, defaultFrequency: defaultFrequency}
}

func (s *StateStore) Load(ctx context.Context) (*GenerationState, error) {
	st := &GenerationState{CronEnabled: true, CronFrequency: s.defaultFrequency}

	var err error
	if st.InProgress, err = s.getBool(ctx, OptionInProgress, false); err != nil {
		return nil, err
	}
	if st.StopRequested, err = s.getBool(ctx, OptionStopRequested, false); err != nil {
		return nil, err
	}
	if st.CronEnabled, err = s.getBool(ctx, OptionCronEnabled, true); err != nil {
		return nil, err
	}
	if st.PendingYears, err = s.getInts(ctx, OptionPendingYears); err != nil {
		return nil, err
	}
	if st.PendingMonths, err = s.getInts(ctx, OptionPendingMonths); err != nil {
		return nil, err
	}
	if st.PendingDays, err = s.getInts(ctx, OptionPendingDays); err != nil {
		return nil, err
	}
	if st.CurrentYear, err = s.getInt(ctx, OptionCurrentYear); err != nil {
		return nil, err
	}
	if st.CurrentMonth, err = s.getInt(ctx, OptionCurrentMonth); err != nil {
		return nil, err
	}
	if st.LastRun, err = s.getTime(ctx, OptionLastRun); err != nil {
		return nil, err
	}
	if st.LastCheck, err = s.getTime(ctx, OptionLastCheck); err != nil {
		return nil, err
	}
	if st.LastUpdate, err = s.getTime(ctx, OptionLastUpdate); err != nil {
		return nil, err
	}

	raw, ok, err := s.options.Get(ctx, OptionPendingEntities)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending entities: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &st.PendingEntities); err != nil {
			return nil, fmt.Errorf("failed to decode pending entities: %w", err)
		}
	}

	raw, ok, err = s.options.Get(ctx, OptionCronFrequency)
	if err != nil {
		return nil, fmt.Errorf("failed to load cron frequency: %w", err)
	}
	if ok && raw != "" {
		st.CronFrequency = raw
	}

	return st, nil
}

// SaveRebuild persists the queues and the in-progress flag, queues first.
// The stop flag is left alone: HaltGeneration writes it without holding
// the engine lock, so only SetStopRequested may change it.
func (s *StateStore) SaveRebuild(ctx context.Context, st *GenerationState) error {
	entities, err := json.Marshal(st.PendingEntities)
	if err != nil {
		return fmt.Errorf("failed to encode pending entities: %w", err)
	}

	values := []struct {
		name  string
		value string
	}{
		{OptionPendingYears, encodeInts(st.PendingYears)},
		{OptionCurrentYear, strconv.Itoa(st.CurrentYear)},
		{OptionPendingMonths, encodeInts(st.PendingMonths)},
		{OptionCurrentMonth, strconv.Itoa(st.CurrentMonth)},
		{OptionPendingDays, encodeInts(st.PendingDays)},
		{OptionPendingEntities, string(entities)},
		{OptionInProgress, encodeBool(st.InProgress)},
	}

	for _, v := range values {
		if err := s.options.Set(ctx, v.name, v.value); err != nil {
			return fmt.Errorf("failed to save generation state: %w", err)
		}
	}

	if st.LastRun != nil {
		if err := s.SetTime(ctx, OptionLastRun, *st.LastRun); err != nil {
			return err
		}
	}

	return nil
}

// ClearRebuild drops every trace of a rebuild, including halted queues.
func (s *StateStore) ClearRebuild(ctx context.Context) error {
	if err := s.options.Delete(ctx, rebuildOptions...); err != nil {
		return fmt.Errorf("failed to clear generation state: %w", err)
	}
	return nil
}

func (s *StateStore) SetStopRequested(ctx context.Context, stop bool) error {
	if err := s.options.Set(ctx, OptionStopRequested, encodeBool(stop)); err != nil {
		return fmt.Errorf("failed to save stop flag: %w", err)
	}
	return nil
}

func (s *StateStore) SetCronEnabled(ctx context.Context, enabled bool) error {
	if err := s.options.Set(ctx, OptionCronEnabled, encodeBool(enabled)); err != nil {
		return fmt.Errorf("failed to save cron enabled flag: %w", err)
	}
	return nil
}

func (s *StateStore) SetCronFrequency(ctx context.Context, spec string) error {
	if err := s.options.Set(ctx, OptionCronFrequency, spec); err != nil {
		return fmt.Errorf("failed to save cron frequency: %w", err)
	}
	return nil
}

func (s *StateStore) SetTime(ctx context.Context, name string, t time.Time) error {
	if err := s.options.Set(ctx, name, t.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func (s *StateStore) getBool(ctx context.Context, name string, def bool) (bool, error) {
	raw, ok, err := s.options.Get(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if !ok || raw == "" {
		return def, nil
	}
	return raw == "1", nil
}

func (s *StateStore) getInt(ctx context.Context, name string) (int, error) {
	raw, ok, err := s.options.Get(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return n, nil
}

func (s *StateStore) getInts(ctx context.Context, name string) ([]int, error) {
	raw, ok, err := s.options.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var values []int
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return values, nil
}

func (s *StateStore) getTime(ctx context.Context, name string) (*time.Time, error) {
	raw, ok, err := s.options.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return &t, nil
}

func encodeInts(values []int) string {
	if len(values) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
