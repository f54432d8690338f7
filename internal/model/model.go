// Package model defines the domain types used across the application.
package model

import "time"

// Subscription is a tracked feed on one mirror.
type Subscription struct {
	FeedURL   string
	Account   string
	Mirror    string
	Watermark string
	CreatedAt time.Time
}

// ChannelBinding links a subscription to a destination chat.
type ChannelBinding struct {
	FeedURL   string
	ChannelID int64
	CreatedAt time.Time
}

// Post is a new feed item normalized for dispatch.
type Post struct {
	URL       string
	IsRetweet bool
	Media     []string
}

// Identity is how a feed presents itself when its posts are relayed.
type Identity struct {
	DisplayName string
	IconURL     string
	Account     string
}

// Message is a single delivery to a chat.
type Message struct {
	Text          string
	SenderName    string
	SenderIconURL string
}
