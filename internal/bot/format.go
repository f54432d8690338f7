package bot

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"nitter_relay/internal/model"
)

// FormatMessage renders a relayed message with its sender name as a header.
func FormatMessage(m model.Message) string {
	if m.SenderName == "" {
		return m.Text
	}
	return fmt.Sprintf("[%s]\n%s", m.SenderName, m.Text)
}

// FormatSubscriptionList formats the subscriptions of a chat for display.
func FormatSubscriptionList(subs []model.Subscription) string {
	if len(subs) == 0 {
		return "This chat has no subscriptions yet. Use /subscribe <url> to add one."
	}
	var b strings.Builder
	b.WriteString("Subscriptions:\n")
	for _, s := range subs {
		fmt.Fprintf(&b, "\n@%s via %s\n   %s\n", s.Account, s.Mirror, s.FeedURL)
	}
	return b.String()
}

// subscriptionAccounts returns the distinct accounts of subs in order.
func subscriptionAccounts(subs []model.Subscription) []string {
	return lo.Uniq(lo.Map(subs, func(s model.Subscription, _ int) string {
		return s.Account
	}))
}
