package sitemap

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Key identifies one sitemap document: either a calendar day or an
// (entity type, entity key) pair such as ("taxonomy", "category").
type Key struct {
	Year       int
	Month      int
	Day        int
	EntityType string
	EntityKey  string
}

func DateKey(t time.Time) Key {
	y, m, d := t.Date()
	return Key{Year: y, Month: int(m), Day: d}
}

// NewDateKey rejects dates that do not exist on the calendar (2023-02-29).
func NewDateKey(year, month, day int) (Key, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Key{}, fmt.Errorf("invalid calendar date %04d-%02d-%02d", year, month, day)
	}
	return Key{Year: year, Month: month, Day: day}, nil
}

func EntityDocKey(entityType, entityKey string) Key {
	return Key{EntityType: entityType, EntityKey: entityKey}
}

func (k Key) IsDate() bool {
	return k.EntityType == ""
}

// Date returns midnight UTC of a date key.
func (k Key) Date() time.Time {
	return time.Date(k.Year, time.Month(k.Month), k.Day, 0, 0, 0, 0, time.UTC)
}

func (k Key) String() string {
	if k.IsDate() {
		return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
	}
	return k.EntityType + "-" + k.EntityKey
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("empty sitemap key")
	}

	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateKey(t), nil
	}

	entityType, entityKey, ok := strings.Cut(s, "-")
	if !ok || entityType == "" || entityKey == "" {
		return Key{}, fmt.Errorf("invalid sitemap key %q", s)
	}
	return EntityDocKey(entityType, entityKey), nil
}
