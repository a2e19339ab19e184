package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Frequency is a subscription's billing period.
type Frequency string

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// ParseFrequency parses a user supplied billing frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Monthly, Yearly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("unknown frequency: %q", s)
}

// Next returns d advanced by one billing period.
func (f Frequency) Next(d civil.Date) civil.Date {
	if f == Yearly {
		return AddDate(d, 1, 0, 0)
	}
	return AddDate(d, 0, 1, 0)
}

// Subscription is a recurring charge. While IsTrial is set the subscription
// has no burn-rate effect and TrialEndDate must be present.
type Subscription struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Cost            decimal.Decimal `json:"cost"`
	Frequency       Frequency       `json:"frequency"`
	NextBillingDate civil.Date      `json:"nextBillingDate"`
	Category        string          `json:"category"`
	IsTrial         bool            `json:"isTrial"`
	TrialEndDate    *civil.Date     `json:"trialEndDate,omitempty"`
	Color           string          `json:"color"`
	Description     string          `json:"description,omitempty"`
}

// MonthlyCost is the subscription's contribution to the monthly burn rate.
func (s Subscription) MonthlyCost() decimal.Decimal {
	if s.IsTrial {
		return decimal.Zero
	}
	if s.Frequency == Yearly {
		return s.Cost.Div(decimal.NewFromInt(12))
	}
	return s.Cost
}
