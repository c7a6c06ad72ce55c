package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/content"
	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/detector"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

var (
	ErrGenerationInProgress = errors.New("sitemap generation already in progress")
	ErrNotInProgress        = errors.New("no sitemap generation in progress")
	ErrCronDisabled         = errors.New("sitemap cron is disabled")
)

type Aggregator interface {
	Aggregate(ctx context.Context, key sitemap.Key) (*sitemap.CappedSet[sitemap.URLEntry], error)
}

// Scheduler is the tick source driving the engine, when one is attached.
type Scheduler interface {
	NextRun() *time.Time
	Reschedule(spec string) error
}

// Outcome is what regenerating one key did to the document store.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeUnchanged Outcome = "unchanged"
)

type Config struct {
	Aggregator       Aggregator
	Content          database.ContentStore
	Documents        database.DocumentStore
	Options          database.OptionStore
	Detector         *detector.Detector
	Registry         *content.Registry
	Query            database.ContentQuery
	DefaultFrequency string
	Now              func() time.Time
}

// Engine drives sitemap documents towards the content store, either through
// a resumable full rebuild advanced one step per Tick or through
// incremental passes.
type Engine struct {
	aggregator Aggregator
	renderer   *sitemap.Renderer
	content    database.ContentStore
	documents  database.DocumentStore
	detector   *detector.Detector
	registry   *content.Registry
	state      *StateStore
	query      database.ContentQuery
	now        func() time.Time

	// work serialises ticks and passes within this process.
	work sync.Mutex

	mu        sync.RWMutex
	scheduler Scheduler
}

func New(c Config) *Engine {
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Engine{
		aggregator: c.Aggregator,
		renderer:   sitemap.NewRenderer(),
		content:    c.Content,
		documents:  c.Documents,
		detector:   c.Detector,
		registry:   c.Registry,
		state:      NewStateStore(c.Options, c.DefaultFrequency),
		query:      c.Query,
		now:        c.Now,
	}
}

func (e *Engine) AttachScheduler(s Scheduler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduler = s
}

func (e *Engine) attachedScheduler() Scheduler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scheduler
}

func (e *Engine) State(ctx context.Context) (*GenerationState, error) {
	return e.state.Load(ctx)
}

// Regenerate rebuilds the document for key from current content. An empty
// aggregation deletes the document. Running it twice on unchanged content
// stores the same bytes.
func (e *Engine) Regenerate(ctx context.Context, key sitemap.Key) (Outcome, error) {
	start := time.Now()

	set, err := e.aggregator.Aggregate(ctx, key)
	if err != nil {
		return OutcomeUnchanged, fmt.Errorf("failed to aggregate %s: %w", key, err)
	}

	if set.IsEmpty() {
		deleted, err := e.documents.Delete(ctx, key.String())
		if err != nil {
			return OutcomeUnchanged, fmt.Errorf("failed to delete document %s: %w", key, err)
		}
		if !deleted {
			return OutcomeUnchanged, nil
		}
		slog.Info("Sitemap document deleted", "key", key.String(), "duration", time.Since(start))
		return OutcomeDeleted, nil
	}

	xml, err := e.renderer.Run(set.Entries())
	if err != nil {
		return OutcomeUnchanged, fmt.Errorf("failed to render %s: %w", key, err)
	}

	doc := database.Document{
		Key:        key.String(),
		Year:       key.Year,
		Month:      key.Month,
		Day:        key.Day,
		EntityType: key.EntityType,
		EntityKey:  key.EntityKey,
		XML:        xml,
		EntryCount: set.Len(),
		BuiltAt:    e.now(),
	}
	if err := e.documents.Upsert(ctx, doc); err != nil {
		return OutcomeUnchanged, fmt.Errorf("failed to store document %s: %w", key, err)
	}

	slog.Info("Sitemap document generated", "key", key.String(), "entries", set.Len(), "duration", time.Since(start))
	return OutcomeWritten, nil
}

// CheckCronEnabled returns ErrCronDisabled when scheduled ticks must not run.
func (e *Engine) CheckCronEnabled(ctx context.Context) error {
	st, err := e.state.Load(ctx)
	if err != nil {
		return err
	}
	if !st.CronEnabled {
		return ErrCronDisabled
	}
	return nil
}
