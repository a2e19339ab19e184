// Package notify posts subscription reminders to a Discord channel.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/discordgo"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxMessageLen is Discord's message content limit.
const maxMessageLen = 2000

// Sender posts a message to a channel. *discordgo.Session satisfies it.
type Sender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Reminder is the content of one daily reminder.
type Reminder struct {
	Today    civil.Date
	Upcoming []domain.Subscription
	Trials   []domain.Subscription
	BurnRate decimal.Decimal
	Currency string
}

// Source is the part of the vault a reminder is built from.
type Source interface {
	Today() civil.Date
	UpcomingBills() []domain.Subscription
	ExpiringTrials() []domain.Subscription
	BurnRate() decimal.Decimal
	Settings() domain.Settings
}

// Build gathers today's reminder from src.
func Build(src Source) Reminder {
	return Reminder{
		Today:    src.Today(),
		Upcoming: src.UpcomingBills(),
		Trials:   src.ExpiringTrials(),
		BurnRate: src.BurnRate(),
		Currency: src.Settings().Currency,
	}
}

// Empty reports whether there is nothing worth posting.
func (r Reminder) Empty() bool {
	return len(r.Upcoming) == 0 && len(r.Trials) == 0
}

// Notifier posts at most one reminder per day.
type Notifier struct {
	sender    Sender
	channelID string
	log       zerolog.Logger

	mu       sync.Mutex
	lastSent civil.Date
}

// New creates a notifier posting to channelID through sender.
func New(sender Sender, channelID string, log zerolog.Logger) *Notifier {
	return &Notifier{sender: sender, channelID: channelID, log: log}
}

// NewDiscord creates a bot session for token. Only the REST API is used, so
// the session is never opened; close it with the returned session's Close.
func NewDiscord(token, channelID string, log zerolog.Logger) (*Notifier, *discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return New(session, channelID, log), session, nil
}

// Remind posts r unless it is empty or a reminder already went out for
// r.Today. It reports whether a message was sent.
func (n *Notifier) Remind(ctx context.Context, r Reminder) (bool, error) {
	if r.Empty() {
		return false, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastSent == r.Today {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if _, err := n.sender.ChannelMessageSend(n.channelID, Compose(r)); err != nil {
		return false, fmt.Errorf("Remind: sending message: %w", err)
	}
	n.lastSent = r.Today
	n.log.Info().
		Int("upcoming", len(r.Upcoming)).
		Int("trials", len(r.Trials)).
		Msg("reminder posted")
	return true, nil
}

// Compose renders r as a Discord message.
func Compose(r Reminder) string {
	var b strings.Builder
	b.WriteString("📅 **Subscription reminder**\n")

	if len(r.Upcoming) > 0 {
		b.WriteString("\n**Due this week**\n")
		for _, s := range r.Upcoming {
			fmt.Fprintf(&b, "• %s: %s on %s (%s)\n", s.Name, domain.FormatAmount(s.Cost, r.Currency), s.NextBillingDate, dueIn(r.Today, s.NextBillingDate))
		}
	}

	if len(r.Trials) > 0 {
		b.WriteString("\n**Trials ending**\n")
		for _, s := range r.Trials {
			end := *s.TrialEndDate
			fmt.Fprintf(&b, "• %s ends %s (%s), then %s %s\n", s.Name, end, dueIn(r.Today, end), domain.FormatAmount(s.Cost, r.Currency), s.Frequency)
		}
	}

	fmt.Fprintf(&b, "\n**Monthly burn rate**: %s", domain.FormatAmount(r.BurnRate, r.Currency))

	msg := b.String()
	if len(msg) > maxMessageLen {
		msg = truncate(msg, maxMessageLen-1) + "…"
	}
	return msg
}

func dueIn(today, d civil.Date) string {
	switch days := d.DaysSince(today); days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
