package vault

import (
	"fmt"
	"strings"

	"github.com/dvloznov/vault/internal/billing"
	"github.com/dvloznov/vault/internal/domain"
	"github.com/shopspring/decimal"
)

// Subscriptions returns all subscriptions.
func (v *Vault) Subscriptions() []domain.Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	return domain.Snapshot{Subscriptions: v.subscriptions}.Clone().Subscriptions
}

// AddSubscription records a subscription and runs a billing pass, since
// the new entry may already be overdue.
func (v *Vault) AddSubscription(s domain.Subscription) (domain.Subscription, error) {
	if s.Frequency == "" {
		s.Frequency = domain.Monthly
	}
	if err := validateSubscription(s); err != nil {
		return domain.Subscription{}, fmt.Errorf("AddSubscription: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	s.ID = v.id(s.ID)
	if domain.IsZeroDate(s.NextBillingDate) {
		s.NextBillingDate = v.Today()
	}
	v.subscriptions = append(v.subscriptions, s)
	if !v.reconcileLocked() {
		v.persistLocked()
	}
	return s, nil
}

// EditSubscription replaces a subscription. Unknown ids are ignored.
func (v *Vault) EditSubscription(s domain.Subscription) error {
	if err := validateSubscription(s); err != nil {
		return fmt.Errorf("EditSubscription: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.subscriptions {
		if v.subscriptions[i].ID == s.ID {
			v.subscriptions[i] = s
			v.persistLocked()
			return nil
		}
	}
	return nil
}

// DeleteSubscription removes a subscription.
func (v *Vault) DeleteSubscription(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.subscriptions {
		if v.subscriptions[i].ID == id {
			v.subscriptions = append(v.subscriptions[:i:i], v.subscriptions[i+1:]...)
			if !v.reconcileLocked() {
				v.persistLocked()
			}
			return
		}
	}
}

// BurnRate is the monthly cost of all paid subscriptions.
func (v *Vault) BurnRate() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return billing.BurnRate(v.subscriptions)
}

// UpcomingBills lists subscriptions, trials included, whose next billing
// date falls within the next week.
func (v *Vault) UpcomingBills() []domain.Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	return billing.Upcoming(v.subscriptions, v.Today())
}

// ExpiringTrials lists trials ending within the warning window.
func (v *Vault) ExpiringTrials() []domain.Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	return billing.ExpiringTrials(v.subscriptions, v.Today())
}

func validateSubscription(s domain.Subscription) error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("name is required")
	}
	if s.Cost.IsNegative() {
		return invalid("cost must not be negative")
	}
	if _, err := domain.ParseFrequency(string(s.Frequency)); err != nil {
		return invalid("%v", err)
	}
	if s.IsTrial && (s.TrialEndDate == nil || domain.IsZeroDate(*s.TrialEndDate)) {
		return invalid("a trial needs an end date")
	}
	return nil
}
