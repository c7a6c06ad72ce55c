package sitemap

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"time"
)

const (
	urlsetNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	imageNamespace  = "http://www.google.com/schemas/sitemap-image/1.1"
)

// Renderer writes sitemap protocol XML. Output depends only on its input,
// so rendering the same entries twice yields identical bytes.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Run(entries []URLEntry) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<urlset xmlns="` + urlsetNamespace + `" xmlns:image="` + imageNamespace + `">`)
	buf.WriteString("\n")

	for _, entry := range entries {
		r.writeURL(&buf, entry)
	}

	buf.WriteString("</urlset>\n")

	return buf.String(), nil
}

func (r *Renderer) RunIndex(entries []IndexEntry) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<sitemapindex xmlns="` + urlsetNamespace + `">`)
	buf.WriteString("\n")

	for _, entry := range entries {
		buf.WriteString("  <sitemap>\n")
		r.writeElement(&buf, "loc", entry.Loc(), 4)
		if !entry.LastMod().IsZero() {
			r.writeElement(&buf, "lastmod", entry.LastMod().UTC().Format(time.RFC3339), 4)
		}
		buf.WriteString("  </sitemap>\n")
	}

	buf.WriteString("</sitemapindex>\n")

	return buf.String(), nil
}

func (r *Renderer) writeURL(buf *bytes.Buffer, entry URLEntry) {
	buf.WriteString("  <url>\n")

	r.writeElement(buf, "loc", entry.Loc(), 4)
	r.writeElement(buf, "lastmod", entry.LastMod(), 4)
	r.writeElement(buf, "changefreq", string(entry.ChangeFreq()), 4)
	if priority, ok := entry.Priority(); ok {
		r.writeElement(buf, "priority", formatPriority(priority), 4)
	}

	for _, image := range entry.Images() {
		buf.WriteString("    <image:image>\n")
		r.writeElement(buf, "image:loc", image.Loc(), 6)
		r.writeElement(buf, "image:caption", image.Caption(), 6)
		r.writeElement(buf, "image:geo_location", image.GeoLocation(), 6)
		r.writeElement(buf, "image:title", image.Title(), 6)
		r.writeElement(buf, "image:license", image.License(), 6)
		buf.WriteString("    </image:image>\n")
	}

	buf.WriteString("  </url>\n")
}

func (r *Renderer) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func formatPriority(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
