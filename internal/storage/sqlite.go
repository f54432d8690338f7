package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"nitter_relay/internal/model"
	"nitter_relay/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateSubscription inserts sub unless a subscription for the same feed URL
// already exists. An existing row keeps its account and watermark.
func (s *SQLite) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (feed_url, account, mirror, watermark, created_at)
		 VALUES (?, ?, ?, '', ?)
		 ON CONFLICT (feed_url) DO NOTHING`,
		sub.FeedURL, sub.Account, sub.Mirror, now,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetWatermark returns the watermark of the subscription for feedURL.
func (s *SQLite) GetWatermark(ctx context.Context, feedURL string) (string, error) {
	var watermark string
	err := s.db.QueryRowContext(ctx,
		`SELECT watermark FROM subscriptions WHERE feed_url = ?`, feedURL,
	).Scan(&watermark)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("subscription %s: %w", feedURL, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query watermark: %w", err)
	}
	return watermark, nil
}

// CommitWatermark stores token as the newest dispatched item of feedURL.
// An empty token is rejected so a watermark is never cleared.
func (s *SQLite) CommitWatermark(ctx context.Context, feedURL, token string) error {
	if token == "" {
		return fmt.Errorf("commit watermark %s: empty token", feedURL)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET watermark = ? WHERE feed_url = ?`, token, feedURL,
	)
	if err != nil {
		return fmt.Errorf("update watermark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %s: %w", feedURL, ErrNotFound)
	}
	return nil
}

// ListSubscriptions returns the subscriptions bound to the given chat.
func (s *SQLite) ListSubscriptions(ctx context.Context, channelID int64) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.feed_url, s.account, s.mirror, s.watermark, s.created_at
		 FROM subscriptions s
		 INNER JOIN channel_bindings b ON b.feed_url = s.feed_url
		 WHERE b.channel_id = ?
		 ORDER BY s.account, s.feed_url`, channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var created string
		if err := rows.Scan(&sub.FeedURL, &sub.Account, &sub.Mirror, &sub.Watermark, &created); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.CreatedAt, _ = time.Parse(timeLayout, created)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// BindChannel subscribes a chat to feedURL. Binding twice is a no-op.
func (s *SQLite) BindChannel(ctx context.Context, feedURL string, channelID int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channel_bindings (feed_url, channel_id, created_at) VALUES (?, ?, ?)`,
		feedURL, channelID, now,
	)
	if err != nil {
		return fmt.Errorf("insert channel binding: %w", err)
	}
	return nil
}

// UnbindChannelsForAccount removes every binding of channelID to a feed of
// account, across all mirrors. It returns the number of bindings removed.
func (s *SQLite) UnbindChannelsForAccount(ctx context.Context, channelID int64, account string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_bindings
		 WHERE channel_id = ?
		   AND feed_url IN (SELECT feed_url FROM subscriptions WHERE account = ? COLLATE NOCASE)`,
		channelID, account,
	)
	if err != nil {
		return 0, fmt.Errorf("delete channel bindings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ListChannels returns the chats bound to feedURL.
func (s *SQLite) ListChannels(ctx context.Context, feedURL string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id FROM channel_bindings WHERE feed_url = ? ORDER BY rowid`, feedURL,
	)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListMirrors returns the mirror hosts that have at least one bound feed.
func (s *SQLite) ListMirrors(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx,
		`SELECT DISTINCT s.mirror
		 FROM subscriptions s
		 INNER JOIN channel_bindings b ON b.feed_url = s.feed_url
		 ORDER BY s.mirror`,
	)
}

// ListFeedsForMirror returns the bound feed URLs hosted on mirror.
func (s *SQLite) ListFeedsForMirror(ctx context.Context, mirror string) ([]string, error) {
	return s.queryStrings(ctx,
		`SELECT DISTINCT s.feed_url
		 FROM subscriptions s
		 INNER JOIN channel_bindings b ON b.feed_url = s.feed_url
		 WHERE s.mirror = ?
		 ORDER BY s.feed_url`, mirror,
	)
}

func (s *SQLite) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
