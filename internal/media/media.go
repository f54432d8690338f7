// Package media recovers canonical image URLs from mirror-rewritten markup.
package media

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

// DefaultMarker prefixes image ids that a mirror leaves in plain form.
const DefaultMarker = "media"

// Resolver maps image references in an item description to media URLs.
type Resolver struct {
	host   *url.URL
	marker string
}

// New creates a Resolver joining decoded paths onto host.
func New(host string) (*Resolver, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse media host: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("media host %q is not absolute", host)
	}
	return &Resolver{host: u, marker: DefaultMarker}, nil
}

// Resolve returns the media URLs of every image in the HTML fragment, in
// document order. References that cannot be decoded are skipped.
func (r *Resolver) Resolve(fragment string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	srcs := doc.Find("img[src]").Map(func(_ int, s *goquery.Selection) string {
		return s.AttrOr("src", "")
	})

	return lo.FilterMap(srcs, func(src string, _ int) (string, bool) {
		p, ok := r.ImagePath(src)
		if !ok {
			return "", false
		}
		ref, err := url.Parse(p)
		if err != nil {
			return "", false
		}
		return r.host.ResolveReference(ref).String(), true
	})
}

// ImagePath classifies the final path segment of src. A segment starting
// with the marker is percent-decoded for slashes only; anything else is
// treated as standard base64 of the path and must decode to UTF-8.
func (r *Resolver) ImagePath(src string) (string, bool) {
	i := strings.LastIndex(src, "/")
	if i < 0 || i == len(src)-1 {
		return "", false
	}
	id := src[i+1:]

	if strings.HasPrefix(id, r.marker) {
		return strings.ReplaceAll(id, "%2F", "/"), true
	}

	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil || len(raw) == 0 || !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}
