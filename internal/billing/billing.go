// Package billing keeps subscription billing state current and derives the
// figures shown next to the subscription list.
package billing

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// UpcomingWindowDays is how far ahead Upcoming looks.
	UpcomingWindowDays = 7
	// TrialWarningDays is the 48 hour window used by ExpiringTrials.
	TrialWarningDays = 2
)

// Reconcile runs one pass over subs against today:
//
//   - a trial whose end date is before today stops being a trial and bills today
//   - a non-trial whose next billing date is before today advances by exactly
//     one period
//
// A subscription more than one period behind needs several passes to catch
// up. The input slice is not modified. changed reports whether any
// subscription differs from its input.
func Reconcile(subs []domain.Subscription, today civil.Date) ([]domain.Subscription, bool) {
	out := make([]domain.Subscription, len(subs))
	changed := false

	for i, sub := range subs {
		switch {
		case sub.IsTrial && sub.TrialEndDate != nil && sub.TrialEndDate.Before(today):
			sub.IsTrial = false
			sub.NextBillingDate = today
			changed = true
		case !sub.IsTrial && sub.NextBillingDate.Before(today):
			sub.NextBillingDate = sub.Frequency.Next(sub.NextBillingDate)
			changed = true
		}
		out[i] = sub
	}

	return out, changed
}

// BurnRate is the monthly cost of all non-trial subscriptions, with yearly
// plans spread over twelve months.
func BurnRate(subs []domain.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		total = total.Add(sub.MonthlyCost())
	}
	return total
}

// Upcoming returns subscriptions billing between today and a week from
// today inclusive, soonest first.
func Upcoming(subs []domain.Subscription, today civil.Date) []domain.Subscription {
	until := domain.AddDate(today, 0, 0, UpcomingWindowDays)

	var out []domain.Subscription
	for _, sub := range subs {
		if within(sub.NextBillingDate, today, until) {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextBillingDate.Before(out[j].NextBillingDate)
	})
	return out
}

// ExpiringTrials returns trials ending within the next 48 hours, soonest first.
func ExpiringTrials(subs []domain.Subscription, today civil.Date) []domain.Subscription {
	until := domain.AddDate(today, 0, 0, TrialWarningDays)

	var out []domain.Subscription
	for _, sub := range subs {
		if sub.IsTrial && sub.TrialEndDate != nil && within(*sub.TrialEndDate, today, until) {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TrialEndDate.Before(*out[j].TrialEndDate)
	})
	return out
}

func within(d, from, to civil.Date) bool {
	return !d.Before(from) && !d.After(to)
}
