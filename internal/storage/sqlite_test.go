package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"nitter_relay/internal/model"
)

var ignoreTimestamps = cmpopts.IgnoreFields(model.Subscription{}, "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *SQLite, feedURL, account, mirror string, channels ...int64) {
	t.Helper()
	ctx := context.Background()
	sub := &model.Subscription{FeedURL: feedURL, Account: account, Mirror: mirror}
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	for _, ch := range channels {
		if err := s.BindChannel(ctx, feedURL, ch); err != nil {
			t.Fatalf("bind channel %d: %v", ch, err)
		}
	}
}

func TestWatermark(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, "https://nitter.net/alice/rss/", "alice", "nitter.net", 1)

	got, err := s.GetWatermark(ctx, "https://nitter.net/alice/rss/")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if diff := cmp.Diff("", got); diff != "" {
		t.Errorf("initial watermark mismatch (-want +got):\n%s", diff)
	}

	token := "Sat, 01 Jun 2024 10:00:00 GMT"
	if err := s.CommitWatermark(ctx, "https://nitter.net/alice/rss/", token); err != nil {
		t.Fatalf("commit watermark: %v", err)
	}
	got, err = s.GetWatermark(ctx, "https://nitter.net/alice/rss/")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if diff := cmp.Diff(token, got); diff != "" {
		t.Errorf("committed watermark mismatch (-want +got):\n%s", diff)
	}

	if err := s.CommitWatermark(ctx, "https://nitter.net/alice/rss/", ""); err == nil {
		t.Error("expected error committing empty watermark")
	}
	got, _ = s.GetWatermark(ctx, "https://nitter.net/alice/rss/")
	if diff := cmp.Diff(token, got); diff != "" {
		t.Errorf("watermark changed after rejected commit (-want +got):\n%s", diff)
	}
}

func TestWatermarkNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.GetWatermark(ctx, "https://nitter.net/nobody/rss/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWatermark error = %v, want ErrNotFound", err)
	}
	if err := s.CommitWatermark(ctx, "https://nitter.net/nobody/rss/", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CommitWatermark error = %v, want ErrNotFound", err)
	}
}

func TestCreateSubscriptionKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, "https://nitter.net/alice/rss/", "alice", "nitter.net", 1)
	if err := s.CommitWatermark(ctx, "https://nitter.net/alice/rss/", "T1"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	again := &model.Subscription{FeedURL: "https://nitter.net/alice/rss/", Account: "alice", Mirror: "nitter.net"}
	if err := s.CreateSubscription(ctx, again); err != nil {
		t.Fatalf("create again: %v", err)
	}

	got, err := s.GetWatermark(ctx, "https://nitter.net/alice/rss/")
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	if diff := cmp.Diff("T1", got); diff != "" {
		t.Errorf("watermark mismatch (-want +got):\n%s", diff)
	}
}

func TestListChannels(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, "https://nitter.net/alice/rss/", "alice", "nitter.net", 30, 10, 20, 10)

	got, err := s.ListChannels(ctx, "https://nitter.net/alice/rss/")
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if diff := cmp.Diff([]int64{30, 10, 20}, got); diff != "" {
		t.Errorf("ListChannels mismatch (-want +got):\n%s", diff)
	}
}

func TestMirrorsAndFeeds(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, "https://nitter.net/alice/rss/", "alice", "nitter.net", 1)
	seed(t, s, "https://nitter.net/bob/rss/", "bob", "nitter.net", 2)
	seed(t, s, "https://nitter.example.org/carol/rss/", "carol", "nitter.example.org", 1)
	// Subscribed once but with no remaining channel: not schedulable.
	seed(t, s, "https://xcancel.com/dave/rss/", "dave", "xcancel.com")

	mirrors, err := s.ListMirrors(ctx)
	if err != nil {
		t.Fatalf("list mirrors: %v", err)
	}
	if diff := cmp.Diff([]string{"nitter.example.org", "nitter.net"}, mirrors); diff != "" {
		t.Errorf("ListMirrors mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		mirror string
		want   []string
	}{
		{mirror: "nitter.net", want: []string{"https://nitter.net/alice/rss/", "https://nitter.net/bob/rss/"}},
		{mirror: "nitter.example.org", want: []string{"https://nitter.example.org/carol/rss/"}},
		{mirror: "xcancel.com", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.mirror, func(t *testing.T) {
			got, err := s.ListFeedsForMirror(ctx, tt.mirror)
			if err != nil {
				t.Fatalf("list feeds: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ListFeedsForMirror mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnbindChannelsForAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, "https://nitter.net/alice/rss/", "alice", "nitter.net", 1, 2)
	seed(t, s, "https://nitter.example.org/alice/rss/", "alice", "nitter.example.org", 1)
	seed(t, s, "https://nitter.net/bob/rss/", "bob", "nitter.net", 1)

	n, err := s.UnbindChannelsForAccount(ctx, 1, "Alice")
	if err != nil {
		t.Fatalf("unbind: %v", err)
	}
	if diff := cmp.Diff(int64(2), n); diff != "" {
		t.Errorf("removed count mismatch (-want +got):\n%s", diff)
	}

	got, err := s.ListChannels(ctx, "https://nitter.net/alice/rss/")
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if diff := cmp.Diff([]int64{2}, got); diff != "" {
		t.Errorf("remaining channels mismatch (-want +got):\n%s", diff)
	}

	mirrors, err := s.ListMirrors(ctx)
	if err != nil {
		t.Fatalf("list mirrors: %v", err)
	}
	if diff := cmp.Diff([]string{"nitter.net"}, mirrors); diff != "" {
		t.Errorf("mirrors after unbind mismatch (-want +got):\n%s", diff)
	}

	// The subscription row survives so its watermark is kept.
	if _, err := s.GetWatermark(ctx, "https://nitter.example.org/alice/rss/"); err != nil {
		t.Errorf("subscription should survive unbind: %v", err)
	}
}

func TestListSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	seed(t, s, "https://nitter.net/bob/rss/", "bob", "nitter.net", 7)
	seed(t, s, "https://nitter.net/alice/rss/", "alice", "nitter.net", 7, 8)

	got, err := s.ListSubscriptions(ctx, 7)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	want := []model.Subscription{
		{FeedURL: "https://nitter.net/alice/rss/", Account: "alice", Mirror: "nitter.net"},
		{FeedURL: "https://nitter.net/bob/rss/", Account: "bob", Mirror: "nitter.net"},
	}
	if diff := cmp.Diff(want, got, ignoreTimestamps); diff != "" {
		t.Errorf("ListSubscriptions mismatch (-want +got):\n%s", diff)
	}
}
