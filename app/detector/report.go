package detector

import (
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// Report is the outcome of one detection pass. Date lists are oldest first.
type Report struct {
	MissingDates  []sitemap.Key
	StaleDates    []sitemap.Key
	OrphanedDates []sitemap.Key

	// EntityKeys are entity documents that are missing or older than their content.
	EntityKeys []sitemap.Key
	// OrphanedEntities are stored entity documents no provider serves any more.
	OrphanedEntities []sitemap.Key
}

// AllDatesToGenerate lists stale dates ahead of missing ones.
func (r *Report) AllDatesToGenerate() []sitemap.Key {
	seen := make(map[sitemap.Key]bool, len(r.StaleDates)+len(r.MissingDates))
	dates := make([]sitemap.Key, 0, len(r.StaleDates)+len(r.MissingDates))

	for _, list := range [][]sitemap.Key{r.StaleDates, r.MissingDates} {
		for _, key := range list {
			if !seen[key] {
				seen[key] = true
				dates = append(dates, key)
			}
		}
	}

	return dates
}

func (r *Report) IsEmpty() bool {
	return len(r.MissingDates) == 0 && len(r.StaleDates) == 0 && len(r.OrphanedDates) == 0 &&
		len(r.EntityKeys) == 0 && len(r.OrphanedEntities) == 0
}

func keyStrings(keys []sitemap.Key) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = key.String()
	}
	return out
}

// Summary is the JSON form of a report.
type Summary struct {
	MissingDates     []string `json:"missing_dates"`
	StaleDates       []string `json:"stale_dates"`
	OrphanedDates    []string `json:"orphaned_dates"`
	EntityKeys       []string `json:"entity_keys"`
	OrphanedEntities []string `json:"orphaned_entities"`
	DatesToGenerate  []string `json:"dates_to_generate"`
}

func (r *Report) Summary() Summary {
	return Summary{
		MissingDates:     keyStrings(r.MissingDates),
		StaleDates:       keyStrings(r.StaleDates),
		OrphanedDates:    keyStrings(r.OrphanedDates),
		EntityKeys:       keyStrings(r.EntityKeys),
		OrphanedEntities: keyStrings(r.OrphanedEntities),
		DatesToGenerate:  keyStrings(r.AllDatesToGenerate()),
	}
}
