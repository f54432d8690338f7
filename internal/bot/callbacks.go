package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdSubscribe   = "subscribe"
	cmdUnsubscribe = "unsubscribe"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
	if cb.Message == nil {
		return
	}

	action, arg, ok := strings.Cut(cb.Data, ":")
	if !ok || arg == "" {
		return
	}
	chatID := cb.Message.Chat.ID

	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	if !b.cfg.IsUserAllowed(userID) {
		b.reply(chatID, "Access denied.")
		return
	}

	b.log.Info("callback", "action", action, "arg", arg, "chat_id", chatID, "user_id", userID)

	switch action {
	case cmdUnsubscribe:
		b.handleUnsubscribe(ctx, chatID, arg)
	}
}

func unsubscribeKeyboard(accounts []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Unsubscribe @"+account, cmdUnsubscribe+":"+account),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
