package aggregator

import (
	"time"

	"github.com/lysyi3m/sitemap-comb/app/config"
	"github.com/lysyi3m/sitemap-comb/app/content"
	"github.com/lysyi3m/sitemap-comb/app/sitemap"
)

// Frequency is the changefreq/priority pair attached to one entry. A nil
// Priority omits the element.
type Frequency struct {
	ChangeFreq sitemap.ChangeFreq
	Priority   *float64
}

// FrequencyFunc picks the frequency of item given the site default. The
// result is not checked here; invalid values fail entry construction.
type FrequencyFunc func(item content.Item, def Frequency) Frequency

func FrequencyFromConfig(f config.Frequency) Frequency {
	return Frequency{ChangeFreq: sitemap.ChangeFreq(f.ChangeFreq), Priority: f.Priority}
}

// AgeBasedFrequency returns today for content published on the current
// calendar day and the default for anything older.
func AgeBasedFrequency(today Frequency, now func() time.Time) FrequencyFunc {
	return func(item content.Item, def Frequency) Frequency {
		if item.PublishedAt.IsZero() {
			return def
		}

		current := now()
		y1, m1, d1 := item.PublishedAt.In(current.Location()).Date()
		y2, m2, d2 := current.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			return today
		}
		return def
	}
}
