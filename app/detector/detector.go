package detector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/sitemap-comb/app/content"
	"github.com/lysyi3m/sitemap-comb/app/database"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// OptionEarliestContentDate persists the memoized earliest content date.
const OptionEarliestContentDate = "earliest_content_date"

const dateLayout = "2006-01-02"

// Detector compares the content store with the document store.
type Detector struct {
	content   database.ContentStore
	documents database.DocumentStore
	options   database.OptionStore
	registry  *content.Registry
	query     database.ContentQuery
	lookback  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	earliest *time.Time
}

type Config struct {
	Content   database.ContentStore
	Documents database.DocumentStore
	Options   database.OptionStore
	Registry  *content.Registry
	Query     database.ContentQuery
	Lookback  time.Duration
	Now       func() time.Time
}

func New(c Config) *Detector {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Lookback <= 0 {
		c.Lookback = 48 * time.Hour
	}
	return &Detector{
		content:   c.Content,
		documents: c.Documents,
		options:   c.Options,
		registry:  c.Registry,
		query:     c.Query,
		lookback:  c.Lookback,
		now:       c.Now,
	}
}

// Today returns the current calendar day as a date key.
func (d *Detector) Today() sitemap.Key {
	return sitemap.DateKey(d.now())
}

// EarliestContentDate returns the memoized earliest qualifying content day,
// or nil when there is no content. The store is queried only when neither
// memory nor the option store holds a value.
func (d *Detector) EarliestContentDate(ctx context.Context) (*time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.earliest != nil {
		t := *d.earliest
		return &t, nil
	}

	raw, ok, err := d.options.Get(ctx, OptionEarliestContentDate)
	if err != nil {
		return nil, fmt.Errorf("failed to read earliest content date: %w", err)
	}
	if ok {
		if t, err := time.Parse(dateLayout, raw); err == nil {
			d.earliest = &t
			return &t, nil
		}
		slog.Warn("Ignoring malformed earliest content date", "value", raw)
	}

	earliest, err := d.content.GetEarliestContentDate(ctx, d.query)
	if err != nil {
		return nil, err
	}
	if earliest == nil {
		return nil, nil
	}

	if err := d.options.Set(ctx, OptionEarliestContentDate, earliest.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("failed to persist earliest content date: %w", err)
	}
	d.earliest = earliest

	t := *earliest
	return &t, nil
}

// lowerEarliest moves the memo back when content older than it shows up.
func (d *Detector) lowerEarliest(ctx context.Context, date time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.earliest != nil && !date.Before(*d.earliest) {
		return nil
	}

	if err := d.options.Set(ctx, OptionEarliestContentDate, date.Format(dateLayout)); err != nil {
		return fmt.Errorf("failed to persist earliest content date: %w", err)
	}
	d.earliest = &date

	slog.Info("Earliest content date moved back", "date", date.Format(dateLayout))
	return nil
}

// ResetEarliest forgets the memo so the next read recomputes it.
func (d *Detector) ResetEarliest(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.earliest = nil
	if err := d.options.Delete(ctx, OptionEarliestContentDate); err != nil {
		return fmt.Errorf("failed to clear earliest content date: %w", err)
	}
	return nil
}

// Detect returns nil and an error if any query fails; callers must not act
// on a partial result.
func (d *Detector) Detect(ctx context.Context) (*Report, error) {
	today := d.Today().Date()

	docs, err := d.documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	existing := make(map[sitemap.Key]database.Document)
	for _, doc := range docs {
		key, err := sitemap.ParseKey(doc.Key)
		if err != nil {
			slog.Warn("Ignoring document with unparseable key", "key", doc.Key, "error", err)
			continue
		}
		existing[key] = doc
	}

	earliest, err := d.EarliestContentDate(ctx)
	if err != nil {
		return nil, err
	}

	modified, err := d.content.FindRecentlyModified(ctx, d.now().Add(-d.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to find recently modified content: %w", err)
	}

	for _, m := range modified {
		if !d.qualifies(m) || (earliest != nil && !m.PublishedDate.Before(*earliest)) {
			continue
		}
		if err := d.lowerEarliest(ctx, m.PublishedDate); err != nil {
			return nil, err
		}
		date := m.PublishedDate
		earliest = &date
	}

	contentDates := make(map[sitemap.Key]bool)
	if earliest != nil {
		dates, err := d.content.FindContentDates(ctx, d.query, *earliest, today)
		if err != nil {
			return nil, fmt.Errorf("failed to find content dates: %w", err)
		}
		for _, date := range dates {
			contentDates[sitemap.DateKey(date)] = true
		}
	}

	report := &Report{}

	for key := range contentDates {
		if _, ok := existing[key]; !ok {
			report.MissingDates = append(report.MissingDates, key)
		}
	}

	orphaned := make(map[sitemap.Key]bool)
	for key := range existing {
		if !key.IsDate() || contentDates[key] {
			continue
		}
		count, err := d.content.CountContentForDate(ctx, d.query, key.Date())
		if err != nil {
			return nil, fmt.Errorf("failed to count content for %s: %w", key, err)
		}
		if count == 0 {
			orphaned[key] = true
			report.OrphanedDates = append(report.OrphanedDates, key)
		}
	}

	stale := make(map[sitemap.Key]bool)
	for _, m := range modified {
		if !d.typeMatches(m.Type) {
			continue
		}
		key := sitemap.DateKey(m.PublishedDate)
		doc, ok := existing[key]
		if !ok || orphaned[key] || stale[key] {
			continue
		}
		if !m.ModifiedAt.Before(doc.BuiltAt) {
			stale[key] = true
			report.StaleDates = append(report.StaleDates, key)
		}
	}

	if err := d.detectEntities(ctx, existing, report); err != nil {
		return nil, err
	}

	sortKeys(report.MissingDates)
	sortKeys(report.StaleDates)
	sortKeys(report.OrphanedDates)

	slog.Debug("Detection completed",
		"missing", len(report.MissingDates),
		"stale", len(report.StaleDates),
		"orphaned", len(report.OrphanedDates),
		"entities", len(report.EntityKeys),
		"orphaned_entities", len(report.OrphanedEntities))

	return report, nil
}

func (d *Detector) detectEntities(ctx context.Context, existing map[sitemap.Key]database.Document, report *Report) error {
	keys, err := d.registry.EntityKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entity keys: %w", err)
	}

	served := make(map[sitemap.Key]bool, len(keys))
	for _, key := range keys {
		served[key] = true

		doc, ok := existing[key]
		if !ok {
			report.EntityKeys = append(report.EntityKeys, key)
			continue
		}

		lastModified, err := d.registry.LastModified(ctx, key)
		if err != nil {
			return err
		}
		if lastModified != nil && !lastModified.Before(doc.BuiltAt) {
			report.EntityKeys = append(report.EntityKeys, key)
		}
	}

	for key := range existing {
		if !key.IsDate() && !served[key] {
			report.OrphanedEntities = append(report.OrphanedEntities, key)
		}
	}
	slices.SortFunc(report.OrphanedEntities, func(a, b sitemap.Key) int {
		return strings.Compare(a.String(), b.String())
	})

	return nil
}

func (d *Detector) qualifies(m database.ModifiedContent) bool {
	return d.typeMatches(m.Type) && (d.query.Status == "" || m.Status == d.query.Status)
}

func (d *Detector) typeMatches(t string) bool {
	return len(d.query.Types) == 0 || slices.Contains(d.query.Types, t)
}

func sortKeys(keys []sitemap.Key) {
	slices.SortFunc(keys, func(a, b sitemap.Key) int {
		return a.Date().Compare(b.Date())
	})
}
