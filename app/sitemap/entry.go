package sitemap

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidEntry = errors.New("invalid url entry")
	ErrInvalidImage = errors.New("invalid image entry")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ChangeFreq string

const (
	ChangeFreqAlways  ChangeFreq = "always"
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
	ChangeFreqYearly  ChangeFreq = "yearly"
	ChangeFreqNever   ChangeFreq = "never"
)

func (c ChangeFreq) Valid() bool {
	switch c {
	case ChangeFreqAlways, ChangeFreqHourly, ChangeFreqDaily, ChangeFreqWeekly,
		ChangeFreqMonthly, ChangeFreqYearly, ChangeFreqNever:
		return true
	}
	return false
}

var lastModLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	dateLayout,
}

type urlFields struct {
	Loc        string   `validate:"required,http_url,max=2048"`
	LastMod    string   `validate:"omitempty,max=64"`
	ChangeFreq string   `validate:"omitempty,oneof=always hourly daily weekly monthly yearly never"`
	Priority   *float64 `validate:"omitnil,gte=0,lte=1"`
	Images     []ImageEntry
}

type EntryOption func(*urlFields)

func WithLastMod(lastmod string) EntryOption {
	return func(f *urlFields) {
		f.LastMod = strings.TrimSpace(lastmod)
	}
}

func WithLastModTime(t time.Time) EntryOption {
	return func(f *urlFields) {
		f.LastMod = t.UTC().Format(time.RFC3339)
	}
}

func WithChangeFreq(freq ChangeFreq) EntryOption {
	return func(f *urlFields) {
		f.ChangeFreq = string(freq)
	}
}

func WithPriority(priority float64) EntryOption {
	return func(f *urlFields) {
		f.Priority = &priority
	}
}

func WithImages(images ...ImageEntry) EntryOption {
	return func(f *urlFields) {
		f.Images = append(f.Images, images...)
	}
}

// URLEntry is one <url> element. It can only be built through NewURLEntry,
// so every value in circulation has passed validation.
type URLEntry struct {
	loc        string
	lastmod    string
	changefreq ChangeFreq
	priority   float64
	hasPrio    bool
	images     []ImageEntry
}

// NewURLEntry fails on any malformed or out-of-range field; nothing is coerced.
func NewURLEntry(loc string, opts ...EntryOption) (URLEntry, error) {
	fields := urlFields{Loc: strings.TrimSpace(loc)}
	for _, opt := range opts {
		opt(&fields)
	}

	if err := validate.Struct(fields); err != nil {
		return URLEntry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if fields.LastMod != "" {
		if err := validateLastMod(fields.LastMod); err != nil {
			return URLEntry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
	}

	entry := URLEntry{
		loc:        fields.Loc,
		lastmod:    fields.LastMod,
		changefreq: ChangeFreq(fields.ChangeFreq),
		images:     slices.Clone(fields.Images),
	}
	if fields.Priority != nil {
		entry.priority = *fields.Priority
		entry.hasPrio = true
	}

	return entry, nil
}

func validateLastMod(value string) error {
	for _, layout := range lastModLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Year() < 1 {
			return fmt.Errorf("lastmod %q is before year 1", value)
		}
		return nil
	}
	return fmt.Errorf("lastmod %q is not a valid W3C datetime", value)
}

func (e URLEntry) Loc() string {
	return e.loc
}

func (e URLEntry) LastMod() string {
	return e.lastmod
}

func (e URLEntry) ChangeFreq() ChangeFreq {
	return e.changefreq
}

func (e URLEntry) Priority() (float64, bool) {
	return e.priority, e.hasPrio
}

func (e URLEntry) Images() []ImageEntry {
	return slices.Clone(e.images)
}

func (e URLEntry) Equal(other URLEntry) bool {
	return e.loc == other.loc &&
		e.lastmod == other.lastmod &&
		e.changefreq == other.changefreq &&
		e.hasPrio == other.hasPrio &&
		e.priority == other.priority &&
		slices.Equal(e.images, other.images)
}
