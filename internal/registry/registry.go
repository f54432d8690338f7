// Package registry answers which mirrors and feeds are currently schedulable.
package registry

import (
	"context"
	"fmt"
)

// Source is the subset of the subscription store the registry reads.
type Source interface {
	ListMirrors(ctx context.Context) ([]string, error)
	ListFeedsForMirror(ctx context.Context, mirror string) ([]string, error)
}

// Registry is a read-only view over the subscription store. It keeps no
// state of its own, so every call reflects the latest subscriptions.
type Registry struct {
	src Source
}

// New creates a Registry backed by src.
func New(src Source) *Registry {
	return &Registry{src: src}
}

// Mirrors returns the hosts that have at least one feed bound to a channel.
func (r *Registry) Mirrors(ctx context.Context) ([]string, error) {
	mirrors, err := r.src.ListMirrors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mirrors: %w", err)
	}
	return mirrors, nil
}

// Feeds returns the feed URLs on mirror that have at least one channel.
func (r *Registry) Feeds(ctx context.Context, mirror string) ([]string, error) {
	feeds, err := r.src.ListFeedsForMirror(ctx, mirror)
	if err != nil {
		return nil, fmt.Errorf("list feeds for %s: %w", mirror, err)
	}
	return feeds, nil
}
