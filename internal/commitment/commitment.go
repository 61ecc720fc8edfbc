// Package commitment implements the recurring pledge math: frequency
// normalization, next-expected-date projection, lateness detection and
// fulfillment accrual. Everything here is a pure function of stored fields
// plus an explicit "today" — no ambient clock, no I/O.
package commitment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// Frequency is how often a pledge recurs.
type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiAnnual Frequency = "semi_annual"
	FrequencyAnnual     Frequency = "annual"
)

// frequencyMonths maps each frequency to the length of one interval in months.
var frequencyMonths = map[Frequency]int{
	FrequencyMonthly:    1,
	FrequencyQuarterly:  3,
	FrequencySemiAnnual: 6,
	FrequencyAnnual:     12,
}

// ParseFrequency validates a raw frequency value.
func ParseFrequency(raw string) (Frequency, error) {
	f := Frequency(raw)
	if _, ok := frequencyMonths[f]; !ok {
		return "", errors.InvalidInput("frequency", "must be one of monthly, quarterly, semi_annual, annual")
	}
	return f, nil
}

// Months returns the length of one pledge interval in months.
func (f Frequency) Months() int {
	return frequencyMonths[f]
}

// Valid reports whether f is one of the four known frequencies.
func (f Frequency) Valid() bool {
	_, ok := frequencyMonths[f]
	return ok
}

// Status is the pledge lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// validTransitions is the pledge status machine. Completed and cancelled are
// terminal.
var validTransitions = map[Status][]Status{
	StatusActive: {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused: {StatusActive, StatusCancelled},
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", errors.InvalidInput("status", "must be one of active, paused, completed, cancelled")
}

// CanTransition reports whether a pledge may move from one status to another.
// Same-status "transitions" are allowed as no-ops.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Pledge is the subset of stored pledge fields the engine computes from.
type Pledge struct {
	Amount          decimal.Decimal
	Frequency       Frequency
	Status          Status
	StartOn         time.Time
	EndOn           *time.Time
	LastFulfilledOn *time.Time
}

// MonthlyEquivalent normalizes an amount at the given frequency to its
// per-month value. No rounding beyond currency precision (2 places).
func MonthlyEquivalent(amount decimal.Decimal, frequency Frequency) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.InvalidInput("amount", "must be positive")
	}
	months, ok := frequencyMonths[frequency]
	if !ok {
		return decimal.Zero, errors.InvalidInput("frequency", "must be one of monthly, quarterly, semi_annual, annual")
	}
	return amount.Div(decimal.NewFromInt(int64(months))).Round(2), nil
}

// NextExpectedDate projects when the next gift is due: one frequency interval
// after the last fulfilled date, or after the start date when nothing has been
// fulfilled yet. ok is false for non-active pledges, for which the projection
// is not applicable.
func NextExpectedDate(p Pledge, today time.Time) (time.Time, bool) {
	if p.Status != StatusActive {
		return time.Time{}, false
	}
	base := p.StartOn
	if p.LastFulfilledOn != nil {
		base = *p.LastFulfilledOn
	}
	return base.AddDate(0, p.Frequency.Months(), 0), true
}

// IsLate reports whether the pledge has missed its expected gift beyond the
// grace period. Only active pledges can be late.
func IsLate(p Pledge, today time.Time, gracePeriodDays int) bool {
	next, ok := NextExpectedDate(p, today)
	if !ok {
		return false
	}
	return today.After(next.AddDate(0, 0, gracePeriodDays))
}

// DaysLate returns how many whole days past the next expected date today is,
// or 0 when the pledge is on schedule or not active.
func DaysLate(p Pledge, today time.Time) int {
	next, ok := NextExpectedDate(p, today)
	if !ok {
		return 0
	}
	days := int(today.Sub(next).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// FulfillmentPercentage computes received/expected as a percentage. Expected
// accrues the monthly equivalent for each full month elapsed since the start
// date, capped at the end date or today, whichever is earlier. Values above
// 100 are legal (over-fulfillment) and are never clamped down.
func FulfillmentPercentage(p Pledge, totalReceived decimal.Decimal, today time.Time) (decimal.Decimal, error) {
	monthly, err := MonthlyEquivalent(p.Amount, p.Frequency)
	if err != nil {
		return decimal.Zero, err
	}

	horizon := today
	if p.EndOn != nil && p.EndOn.Before(horizon) {
		horizon = *p.EndOn
	}

	months := fullMonthsBetween(p.StartOn, horizon)
	if months == 0 {
		return decimal.Zero, nil
	}

	expected := monthly.Mul(decimal.NewFromInt(int64(months)))
	if totalReceived.LessThan(decimal.Zero) {
		totalReceived = decimal.Zero
	}
	return totalReceived.Div(expected).Mul(decimal.NewFromInt(100)).Round(1), nil
}

// fullMonthsBetween counts whole calendar months elapsed from a to b.
func fullMonthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	months := 0
	for !a.AddDate(0, months+1, 0).After(b) {
		months++
	}
	return months
}
