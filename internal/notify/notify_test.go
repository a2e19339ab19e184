package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/bwmarrin/discordgo"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type mockSender struct {
	SendFunc func(channelID, content string) error
	sent     []string
}

func (m *mockSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.SendFunc != nil {
		if err := m.SendFunc(channelID, content); err != nil {
			return nil, err
		}
	}
	m.sent = append(m.sent, content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

var today = civil.Date{Year: 2024, Month: 6, Day: 15}

func sampleReminder() Reminder {
	trialEnd := civil.Date{Year: 2024, Month: 6, Day: 16}
	return Reminder{
		Today: today,
		Upcoming: []domain.Subscription{
			{Name: "Netflix", Cost: decimal.RequireFromString("15.99"), Frequency: domain.Monthly, NextBillingDate: civil.Date{Year: 2024, Month: 6, Day: 18}},
		},
		Trials: []domain.Subscription{
			{Name: "Spotify", Cost: decimal.NewFromInt(10), Frequency: domain.Monthly, IsTrial: true, TrialEndDate: &trialEnd},
		},
		BurnRate: decimal.RequireFromString("15.99"),
		Currency: "USD",
	}
}

func TestCompose(t *testing.T) {
	msg := Compose(sampleReminder())
	for _, want := range []string{
		"Netflix: $15.99 on 2024-06-18 (in 3 days)",
		"Spotify ends 2024-06-16 (tomorrow), then $10.00 monthly",
		"**Monthly burn rate**: $15.99",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message lacks %q:\n%s", want, msg)
		}
	}
}

func TestCompose_Truncates(t *testing.T) {
	r := sampleReminder()
	for i := 0; i < 100; i++ {
		r.Upcoming = append(r.Upcoming, r.Upcoming[0])
	}
	if msg := Compose(r); len(msg) > maxMessageLen+len("…") {
		t.Errorf("message length = %d", len(msg))
	}
}

func TestRemind_OncePerDay(t *testing.T) {
	sender := &mockSender{}
	n := New(sender, "chan", zerolog.Nop())
	ctx := context.Background()

	sent, err := n.Remind(ctx, sampleReminder())
	if err != nil || !sent {
		t.Fatalf("first Remind() = %v, %v", sent, err)
	}
	sent, err = n.Remind(ctx, sampleReminder())
	if err != nil || sent {
		t.Fatalf("second Remind() = %v, %v", sent, err)
	}

	next := sampleReminder()
	next.Today = civil.Date{Year: 2024, Month: 6, Day: 16}
	if sent, _ := n.Remind(ctx, next); !sent {
		t.Error("Remind() on the next day should send")
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent %d messages, want 2", len(sender.sent))
	}
}

func TestRemind_SkipsEmpty(t *testing.T) {
	sender := &mockSender{}
	sent, err := New(sender, "chan", zerolog.Nop()).Remind(context.Background(), Reminder{Today: today, Currency: "USD"})
	if err != nil || sent || len(sender.sent) != 0 {
		t.Errorf("Remind() = %v, %v with %d messages", sent, err, len(sender.sent))
	}
}

func TestRemind_SendErrorRetries(t *testing.T) {
	boom := errors.New("rate limited")
	fail := true
	sender := &mockSender{SendFunc: func(string, string) error {
		if fail {
			return boom
		}
		return nil
	}}
	n := New(sender, "chan", zerolog.Nop())

	if _, err := n.Remind(context.Background(), sampleReminder()); !errors.Is(err, boom) {
		t.Fatalf("Remind() error = %v, want %v", err, boom)
	}
	fail = false
	if sent, err := n.Remind(context.Background(), sampleReminder()); err != nil || !sent {
		t.Errorf("retry Remind() = %v, %v", sent, err)
	}
}
