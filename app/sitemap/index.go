package sitemap

import (
	"fmt"
	"strings"
	"time"
)

type indexFields struct {
	Loc string `validate:"required,http_url,max=2048"`
}

// IndexEntry is one <sitemap> element of the sitemap index.
type IndexEntry struct {
	loc     string
	lastmod time.Time
}

func NewIndexEntry(loc string, lastmod time.Time) (IndexEntry, error) {
	fields := indexFields{Loc: strings.TrimSpace(loc)}
	if err := validate.Struct(fields); err != nil {
		return IndexEntry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return IndexEntry{loc: fields.Loc, lastmod: lastmod}, nil
}

func (e IndexEntry) Loc() string {
	return e.loc
}

func (e IndexEntry) LastMod() time.Time {
	return e.lastmod
}

// DocumentLoc is the public URL of the document served for key.
func DocumentLoc(baseURL string, key Key) string {
	return strings.TrimRight(baseURL, "/") + "/sitemaps/" + key.String() + ".xml"
}
