// Package scheduler runs one polling loop per mirror and relays new posts.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"nitter_relay/internal/detector"
	"nitter_relay/internal/dispatch"
	"nitter_relay/internal/extract"
	"nitter_relay/internal/fetcher"
	"nitter_relay/internal/registry"
	"nitter_relay/internal/storage"
)

// Scheduler polls every mirror that has subscribers, each in its own loop.
type Scheduler struct {
	store      storage.Storage
	registry   *registry.Registry
	fetcher    *fetcher.Fetcher
	extractor  *extract.Extractor
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger

	fetchDelay time.Duration
	cycleDelay time.Duration

	wake chan struct{}
}

// New creates a Scheduler delivering through d.
func New(store storage.Storage, f *fetcher.Fetcher, x *extract.Extractor, d dispatch.Deliverer, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		registry:   registry.New(store),
		fetcher:    f,
		extractor:  x,
		dispatcher: dispatch.New(d, log),
		log:        log,
		fetchDelay: 3 * time.Minute,
		cycleDelay: 10 * time.Minute,
		wake:       make(chan struct{}, 1),
	}
}

// SetDelays overrides the pause between two feeds of a mirror and the pause
// between two passes over a mirror.
func (s *Scheduler) SetDelays(fetch, cycle time.Duration) {
	s.fetchDelay = fetch
	s.cycleDelay = cycle
}

// Wake asks Run to look for mirrors without a loop. It never blocks.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run starts a loop for every mirror with subscribers and keeps starting
// loops for new mirrors until ctx is cancelled. It returns once every loop
// has stopped.
func (s *Scheduler) Run(ctx context.Context) {
	var g errgroup.Group
	running := make(map[string]bool)

	interval := s.cycleDelay
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.startMirrors(ctx, &g, running)

		select {
		case <-ctx.Done():
			_ = g.Wait()
			return
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

func (s *Scheduler) startMirrors(ctx context.Context, g *errgroup.Group, running map[string]bool) {
	mirrors, err := s.registry.Mirrors(ctx)
	if err != nil {
		s.log.Error("list mirrors", "error", err)
		return
	}
	for _, mirror := range mirrors {
		if running[mirror] {
			continue
		}
		running[mirror] = true
		s.log.Info("starting mirror loop", "mirror", mirror)
		g.Go(func() error {
			s.RunMirror(ctx, mirror)
			return nil
		})
	}
}

// RunMirror polls the feeds of one mirror until ctx is cancelled. The feed
// set is re-read on every pass, so new subscriptions join on the next pass
// and unsubscribed feeds drop out. Only one loop per mirror may run.
func (s *Scheduler) RunMirror(ctx context.Context, mirror string) {
	for {
		feeds, err := s.registry.Feeds(ctx, mirror)
		if err != nil {
			s.log.Error("list feeds", "mirror", mirror, "error", err)
		}

		for i, feedURL := range feeds {
			if i > 0 && !sleep(ctx, s.fetchDelay) {
				return
			}
			s.logCycle(mirror, feedURL, s.ProcessFeed(ctx, feedURL))
		}

		if !sleep(ctx, s.cycleDelay) {
			s.log.Info("mirror loop stopped", "mirror", mirror)
			return
		}
	}
}

// ProcessFeed runs one fetch, detect, extract and dispatch cycle for a feed.
//
// The new watermark is committed before dispatching. A crash or delivery
// failure after the commit loses those posts rather than sending them twice.
func (s *Scheduler) ProcessFeed(ctx context.Context, feedURL string) error {
	watermark, err := s.store.GetWatermark(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("get watermark: %w", err)
	}

	feed, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	res, err := detector.Detect(feed.Items, watermark)
	if err != nil {
		return err
	}

	if err := s.store.CommitWatermark(ctx, feedURL, res.Watermark); err != nil {
		return fmt.Errorf("commit watermark: %w", err)
	}
	if len(res.Items) == 0 {
		s.log.Info("watermark initialized", "feed_url", feedURL, "watermark", res.Watermark)
		return nil
	}

	account, err := extract.AccountFromURL(feedURL)
	if err != nil {
		return fmt.Errorf("feed account: %w", err)
	}
	posts := s.extractor.ExtractAll(res.Items, account)
	if len(posts) == 0 {
		return nil
	}

	channels, err := s.store.ListChannels(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, posts, extract.Identity(feed, account), channels); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	s.log.Info("relayed posts", "feed_url", feedURL, "posts", len(posts), "channels", len(channels))
	return nil
}

func (s *Scheduler) logCycle(mirror, feedURL string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, detector.ErrNoUpdate):
		s.log.Debug("no update", "mirror", mirror, "feed_url", feedURL)
	case errors.Is(err, detector.ErrNoItem), errors.Is(err, detector.ErrMissingPublishDate):
		s.log.Warn("unusable feed", "mirror", mirror, "feed_url", feedURL, "error", err)
	case errors.Is(err, context.Canceled):
	default:
		s.log.Error("process feed", "mirror", mirror, "feed_url", feedURL, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
