package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nitter_relay/internal/extract"
	"nitter_relay/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Nitter Relay!

Relays posts of Twitter accounts to this chat through Nitter RSS feeds.

Quick start:
/subscribe https://nitter.net/<account>/rss

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/subscribe <url> - relay a Nitter feed (URL must end with /rss)
/unsubscribe <account> - stop relaying an account
/list - show subscriptions of this chat

New feeds are picked up on the next polling pass of their mirror.`)
}

func (b *Bot) handleSubscribe(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /subscribe <url>")
		return
	}
	feedURL, err := ParseFeedURL(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid feed URL: %v", err))
		return
	}
	account, err := extract.AccountFromURL(feedURL)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid feed URL: %v", err))
		return
	}
	mirror, err := extract.MirrorFromURL(feedURL)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid feed URL: %v", err))
		return
	}

	feed, err := b.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch feed: %v", err))
		return
	}

	sub := &model.Subscription{FeedURL: feedURL, Account: account, Mirror: mirror}
	if err := b.store.CreateSubscription(ctx, sub); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save subscription: %v", err))
		return
	}
	if err := b.store.BindChannel(ctx, feedURL, chatID); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to save subscription: %v", err))
		return
	}
	b.log.Info("subscribed", "feed_url", feedURL, "chat_id", chatID)

	if b.waker != nil {
		b.waker.Wake()
	}

	name := extract.Identity(feed, account).DisplayName
	b.reply(chatID, fmt.Sprintf("Subscribed to %s (@%s) via %s.\nNew posts will be relayed here.", name, account, mirror))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, chatID int64, args string) {
	account, err := ParseAccountArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /unsubscribe <account>")
		return
	}

	n, err := b.store.UnbindChannelsForAccount(ctx, chatID, account)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if n == 0 {
		b.reply(chatID, fmt.Sprintf("This chat is not subscribed to @%s.", account))
		return
	}
	b.log.Info("unsubscribed", "account", account, "chat_id", chatID, "feeds", n)
	b.reply(chatID, fmt.Sprintf("Unsubscribed from @%s.", account))
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	subs, err := b.store.ListSubscriptions(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatSubscriptionList(subs))
	msg.DisableWebPagePreview = true
	if len(subs) > 0 {
		msg.ReplyMarkup = unsubscribeKeyboard(subscriptionAccounts(subs))
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}
