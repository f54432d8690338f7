// Package detector decides which items of a fetched feed are new.
package detector

import (
	"errors"
	"slices"

	"github.com/mmcdole/gofeed"
)

// Detection outcomes that end a cycle without dispatching anything.
var (
	ErrNoItem             = errors.New("feed has no items")
	ErrMissingPublishDate = errors.New("newest item has no publish date")
	// ErrNoUpdate means the newest item was already seen. It is expected
	// control flow, not a failure.
	ErrNoUpdate = errors.New("no update")
)

// Result is the outcome of a successful detection.
type Result struct {
	// Items are the new items, oldest first.
	Items []*gofeed.Item
	// Watermark is the token to commit for the feed.
	Watermark string
}

// Token returns the ordering token of an item: its raw publish date.
func Token(item *gofeed.Item) string {
	if item == nil {
		return ""
	}
	return item.Published
}

// Detect compares a newest-first snapshot against the watermark of the last
// dispatched item.
//
// A feed that was never dispatched (empty watermark) yields no items, only a
// watermark, so a fresh subscription does not replay the whole backlog.
func Detect(items []*gofeed.Item, watermark string) (Result, error) {
	if len(items) == 0 {
		return Result{}, ErrNoItem
	}

	newest := Token(items[0])
	if newest == "" {
		return Result{}, ErrMissingPublishDate
	}
	if newest == watermark {
		return Result{}, ErrNoUpdate
	}
	if watermark == "" {
		return Result{Watermark: newest}, nil
	}

	var fresh []*gofeed.Item
	for _, item := range items {
		if Token(item) == watermark {
			break
		}
		fresh = append(fresh, item)
	}
	slices.Reverse(fresh)

	return Result{Items: fresh, Watermark: newest}, nil
}
