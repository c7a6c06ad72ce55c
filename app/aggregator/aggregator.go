package aggregator

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/sitemap-comb/app/content"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// Aggregator assembles the capped, validated entry set of one sitemap
// document from every provider covering its key.
type Aggregator struct {
	registry   *content.Registry
	skip       SkipFunc
	frequency  FrequencyFunc
	defaults   Frequency
	maxEntries int
	sanitizer  *bluemonday.Policy
}

type Option func(*Aggregator)

func WithSkip(skip SkipFunc) Option {
	return func(a *Aggregator) {
		a.skip = skip
	}
}

func WithFrequency(frequency FrequencyFunc, defaults Frequency) Option {
	return func(a *Aggregator) {
		a.frequency = frequency
		a.defaults = defaults
	}
}

// WithMaxEntries sets the per-document ceiling; 0 means sitemap.MaxEntries.
func WithMaxEntries(n int) Option {
	return func(a *Aggregator) {
		a.maxEntries = n
	}
}

func New(registry *content.Registry, opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		registry:  registry,
		sanitizer: bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if _, err := sitemap.NewCappedSet[sitemap.URLEntry](a.maxEntries); err != nil {
		return nil, fmt.Errorf("failed to configure aggregator: %w", err)
	}

	return a, nil
}

// Aggregate never writes. A provider error fails the whole call; an item
// that does not convert to a valid entry is logged and skipped. An empty
// set means the document for key should not exist.
func (a *Aggregator) Aggregate(ctx context.Context, key sitemap.Key) (*sitemap.CappedSet[sitemap.URLEntry], error) {
	set, err := sitemap.NewCappedSet[sitemap.URLEntry](a.maxEntries)
	if err != nil {
		return nil, err
	}

	skip := a.skip
	frequency := a.frequency

	seen := make(map[string]bool)
	var skipped, invalid, dropped int

	for _, provider := range a.registry.For(key) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := provider.Candidates(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get candidates from %s for %s: %w", provider.Name(), key, err)
		}

		for _, item := range items {
			if skip != nil && skip(item) {
				skipped++
				continue
			}

			entry, err := a.toEntry(item, frequency)
			if err != nil {
				invalid++
				slog.Warn("Skipping invalid content item", "key", key.String(), "provider", provider.Name(), "item", item.ID, "error", err)
				continue
			}

			if seen[entry.Loc()] {
				continue
			}

			if !set.Add(entry) {
				dropped++
				continue
			}
			seen[entry.Loc()] = true
		}
	}

	if dropped > 0 {
		slog.Warn("Sitemap entry ceiling reached", "key", key.String(), "max", set.Max(), "dropped", dropped)
	}

	slog.Debug("Aggregated sitemap entries", "key", key.String(), "entries", set.Len(), "skipped", skipped, "invalid", invalid)

	return set, nil
}

func (a *Aggregator) toEntry(item content.Item, frequency FrequencyFunc) (sitemap.URLEntry, error) {
	freq := a.defaults
	if frequency != nil {
		freq = frequency(item, a.defaults)
	}

	var opts []sitemap.EntryOption

	switch {
	case !item.ModifiedAt.IsZero():
		opts = append(opts, sitemap.WithLastModTime(item.ModifiedAt))
	case !item.PublishedAt.IsZero():
		opts = append(opts, sitemap.WithLastModTime(item.PublishedAt))
	}

	if freq.ChangeFreq != "" {
		opts = append(opts, sitemap.WithChangeFreq(freq.ChangeFreq))
	}
	if freq.Priority != nil {
		opts = append(opts, sitemap.WithPriority(*freq.Priority))
	}

	if len(item.Images) > 0 {
		images := make([]sitemap.ImageEntry, 0, len(item.Images))
		for _, img := range item.Images {
			image, err := sitemap.NewImageEntry(img.URL,
				sitemap.WithCaption(a.sanitize(img.Caption)),
				sitemap.WithTitle(a.sanitize(img.Title)),
			)
			if err != nil {
				return sitemap.URLEntry{}, err
			}
			images = append(images, image)
		}
		opts = append(opts, sitemap.WithImages(images...))
	}

	return sitemap.NewURLEntry(item.Loc, opts...)
}

// sanitize strips markup and returns the text trimmed in NFC. The renderer
// escapes the plain text again.
func (a *Aggregator) sanitize(s string) string {
	if s == "" {
		return s
	}
	return norm.NFC.String(strings.TrimSpace(html.UnescapeString(a.sanitizer.Sanitize(s))))
}
