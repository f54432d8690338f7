// Package extract turns raw feed items into posts ready for dispatch.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"nitter_relay/internal/media"
	"nitter_relay/internal/model"
)

// ErrMalformedItem is returned for an item whose link cannot be used.
var ErrMalformedItem = errors.New("malformed item")

// MediaResolver finds media URLs in an item description.
type MediaResolver interface {
	Resolve(fragment string) []string
}

var _ MediaResolver = (*media.Resolver)(nil)

// Extractor rewrites mirror links onto the upstream site.
type Extractor struct {
	upstream *url.URL
	media    MediaResolver
	log      *slog.Logger
}

// New creates an Extractor that rewrites post links onto upstream.
func New(upstream string, resolver MediaResolver, log *slog.Logger) (*Extractor, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q is not absolute", upstream)
	}
	return &Extractor{upstream: u, media: resolver, log: log}, nil
}

// Extract builds the post for one item of the feed belonging to account.
func (e *Extractor) Extract(item *gofeed.Item, account string) (model.Post, error) {
	if item == nil || item.Link == "" {
		return model.Post{}, fmt.Errorf("%w: missing link", ErrMalformedItem)
	}
	link, err := url.Parse(item.Link)
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: parse link: %v", ErrMalformedItem, err)
	}
	author := firstSegment(link.Path)
	if author == "" {
		return model.Post{}, fmt.Errorf("%w: link %q has no account", ErrMalformedItem, item.Link)
	}

	canonical := e.upstream.ResolveReference(&url.URL{Path: link.Path})

	return model.Post{
		URL:       canonical.String(),
		IsRetweet: IsRetweet(author, account),
		Media:     e.media.Resolve(item.Description),
	}, nil
}

// ExtractAll extracts every item, dropping the ones that are malformed.
func (e *Extractor) ExtractAll(items []*gofeed.Item, account string) []model.Post {
	posts := make([]model.Post, 0, len(items))
	for _, item := range items {
		post, err := e.Extract(item, account)
		if err != nil {
			e.log.Warn("skip item", "account", account, "error", err)
			continue
		}
		posts = append(posts, post)
	}
	return posts
}

// IsRetweet reports whether a post written by author reached the feed of
// account by being retweeted.
func IsRetweet(author, account string) bool {
	return !strings.EqualFold(author, account)
}

// AccountFromURL returns the account handle embedded in a feed or post URL.
func AccountFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	account := firstSegment(u.Path)
	if account == "" {
		return "", fmt.Errorf("url %q has no account", raw)
	}
	return account, nil
}

// MirrorFromURL returns the host a feed URL is served from.
func MirrorFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return strings.ToLower(u.Host), nil
}

// Identity builds the sender identity of a fetched feed. Mirror titles have
// the form "Display Name / @account"; the handle suffix is dropped.
func Identity(feed *gofeed.Feed, account string) model.Identity {
	id := model.Identity{Account: account}
	if feed == nil {
		return id
	}
	id.DisplayName = DisplayName(feed.Title, account)
	if feed.Image != nil {
		id.IconURL = feed.Image.URL
	}
	if id.DisplayName == "" {
		id.DisplayName = account
	}
	return id
}

// DisplayName strips the " / @account" suffix from a feed title.
func DisplayName(title, account string) string {
	return strings.TrimSpace(strings.TrimSuffix(title, " / @"+account))
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.Index(p, "/"); i >= 0 {
		p = p[:i]
	}
	return p
}
