package aggregator

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/sitemap-comb/app/config"
	"github.com/lysyi3m/sitemap-comb/app/content"
)

// SkipFunc reports whether an item must be left out of its document.
type SkipFunc func(item content.Item) bool

// Filterer excludes content flagged noindex, listed by id, or matching a
// configured exclusion filter.
type Filterer struct {
	filters    []config.Filter
	excludeIDs map[string]bool
}

func NewFilterer(filters []config.Filter, excludeIDs []string) *Filterer {
	ids := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		ids[id] = true
	}
	return &Filterer{filters: filters, excludeIDs: ids}
}

func (f *Filterer) Skip(item content.Item) bool {
	skip, _ := f.Reason(item)
	return skip
}

// Reason reports whether item is excluded and by which rule.
func (f *Filterer) Reason(item content.Item) (bool, string) {
	if item.NoIndex {
		return true, "Excluded: noindex"
	}

	if f.excludeIDs[item.ID] {
		return true, fmt.Sprintf("Excluded by id: %s", item.ID)
	}

	for _, filter := range f.filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item content.Item, field string) string {
	switch field {
	case "path":
		return item.Loc
	case "title":
		return item.Title
	case "type":
		return item.Type
	case "author":
		return item.AuthorID
	default:
		return ""
	}
}
