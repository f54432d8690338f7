// Package storage defines the subscription store and its implementations.
package storage

import (
	"context"
	"errors"

	"nitter_relay/internal/model"
)

// ErrNotFound is returned when a subscription does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetWatermark(ctx context.Context, feedURL string) (string, error)
	CommitWatermark(ctx context.Context, feedURL, token string) error
	ListSubscriptions(ctx context.Context, channelID int64) ([]model.Subscription, error)

	BindChannel(ctx context.Context, feedURL string, channelID int64) error
	UnbindChannelsForAccount(ctx context.Context, channelID int64, account string) (int64, error)
	ListChannels(ctx context.Context, feedURL string) ([]int64, error)

	ListMirrors(ctx context.Context) ([]string, error)
	ListFeedsForMirror(ctx context.Context, mirror string) ([]string, error)

	Close() error
}
