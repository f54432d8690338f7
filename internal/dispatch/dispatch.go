// Package dispatch fans new posts out to the channels bound to a feed.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"nitter_relay/internal/model"
)

// Deliverer sends one message to a chat.
type Deliverer interface {
	Deliver(ctx context.Context, channelID int64, msg model.Message) error
}

// Dispatcher delivers posts channel by channel.
type Dispatcher struct {
	deliverer Deliverer
	log       *slog.Logger
}

// New creates a Dispatcher sending through d.
func New(d Deliverer, log *slog.Logger) *Dispatcher {
	return &Dispatcher{deliverer: d, log: log}
}

// Dispatch delivers posts to every channel in turn. Each channel gets the
// full ordered sequence before the next channel starts. A failed delivery
// abandons the rest of that channel's sequence only; the other channels are
// still attempted and all failures are returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, posts []model.Post, id model.Identity, channels []int64) error {
	if len(posts) == 0 || len(channels) == 0 {
		return nil
	}
	msgs := Messages(posts, id)

	var errs []error
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sent, err := d.sendAll(ctx, ch, msgs)
		if err != nil {
			d.log.Error("deliver", "chat_id", ch, "account", id.Account, "sent", sent, "pending", len(msgs)-sent, "error", err)
			errs = append(errs, fmt.Errorf("chat %d: %w", ch, err))
			continue
		}
		d.log.Debug("delivered", "chat_id", ch, "account", id.Account, "count", sent)
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) sendAll(ctx context.Context, ch int64, msgs []model.Message) (int, error) {
	for i, msg := range msgs {
		if err := d.deliverer.Deliver(ctx, ch, msg); err != nil {
			return i, err
		}
	}
	return len(msgs), nil
}

// Messages renders posts into the per-channel delivery sequence: for each
// post its link, then every attached image after the first. The first image
// is already shown by the link preview.
func Messages(posts []model.Post, id model.Identity) []model.Message {
	return lo.FlatMap(posts, func(p model.Post, _ int) []model.Message {
		msgs := []model.Message{newMessage(PostText(p, id), id)}
		if len(p.Media) > 1 {
			for _, m := range p.Media[1:] {
				msgs = append(msgs, newMessage(m, id))
			}
		}
		return msgs
	})
}

// PostText is the text of a post's primary message.
func PostText(p model.Post, id model.Identity) string {
	if !p.IsRetweet {
		return p.URL
	}
	return fmt.Sprintf("%s\n%s retweeted:", p.URL, id.DisplayName)
}

func newMessage(text string, id model.Identity) model.Message {
	return model.Message{Text: text, SenderName: id.DisplayName, SenderIconURL: id.IconURL}
}
