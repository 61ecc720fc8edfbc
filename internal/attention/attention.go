// Package attention builds the prioritized dashboard queues from
// already-loaded collections. Every function is pure: inputs plus an
// explicit "today", no I/O.
package attention

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kindling-crm/be-donor-pipeline/internal/commitment"
)

// PledgeView is a pledge joined with contact identity, as loaded by the
// calling layer.
type PledgeView struct {
	PledgeID    string
	ContactID   string
	ContactName string
	Pledge      commitment.Pledge
}

// LatePledge is one entry in the late-donations queue.
type LatePledge struct {
	PledgeID          string          `json:"pledge_id"`
	ContactID         string          `json:"contact_id"`
	ContactName       string          `json:"contact_name"`
	MonthlyEquivalent decimal.Decimal `json:"monthly_equivalent"`
	LastFulfilledOn   *time.Time      `json:"last_fulfilled_on,omitempty"`
	DaysLate          int             `json:"days_late"`
	NextExpectedOn    time.Time       `json:"next_expected_on"`
}

// LateDonations filters active pledges past their expected date plus grace,
// sorted most-late first.
func LateDonations(pledges []PledgeView, today time.Time, gracePeriodDays int) []LatePledge {
	late := make([]LatePledge, 0)
	for _, pv := range pledges {
		if !commitment.IsLate(pv.Pledge, today, gracePeriodDays) {
			continue
		}
		next, _ := commitment.NextExpectedDate(pv.Pledge, today)
		monthly, err := commitment.MonthlyEquivalent(pv.Pledge.Amount, pv.Pledge.Frequency)
		if err != nil {
			// Bad stored data; skip rather than poison the whole queue.
			continue
		}
		late = append(late, LatePledge{
			PledgeID:          pv.PledgeID,
			ContactID:         pv.ContactID,
			ContactName:       pv.ContactName,
			MonthlyEquivalent: monthly,
			LastFulfilledOn:   pv.Pledge.LastFulfilledOn,
			DaysLate:          commitment.DaysLate(pv.Pledge, today),
			NextExpectedOn:    next,
		})
	}

	sort.SliceStable(late, func(i, j int) bool {
		return late[i].DaysLate > late[j].DaysLate
	})
	return late
}

// DonorActivity is a contact's giving and ask history, as loaded by the
// calling layer.
type DonorActivity struct {
	ContactID   string
	ContactName string
	LastGiftOn  *time.Time
	GiftCount   int
	AskCount    int
}

// AtRiskDonor is one entry in the at-risk queue.
type AtRiskDonor struct {
	ContactID     string     `json:"contact_id"`
	ContactName   string     `json:"contact_name"`
	LastGiftOn    *time.Time `json:"last_gift_on,omitempty"`
	DaysSinceGift int        `json:"days_since_gift,omitempty"`
}

// AtRiskDonors returns contacts whose giving pattern has lapsed: no gift, or
// no gift within thresholdDays. A contact with zero gifts who has never been
// asked is a prospect, not at risk, and is excluded.
func AtRiskDonors(donors []DonorActivity, thresholdDays int, today time.Time) []AtRiskDonor {
	atRisk := make([]AtRiskDonor, 0)
	for _, d := range donors {
		if d.GiftCount == 0 && d.AskCount == 0 {
			continue
		}
		if d.LastGiftOn != nil {
			days := int(today.Sub(*d.LastGiftOn).Hours() / 24)
			if days <= thresholdDays {
				continue
			}
			atRisk = append(atRisk, AtRiskDonor{
				ContactID:     d.ContactID,
				ContactName:   d.ContactName,
				LastGiftOn:    d.LastGiftOn,
				DaysSinceGift: days,
			})
			continue
		}
		atRisk = append(atRisk, AtRiskDonor{
			ContactID:   d.ContactID,
			ContactName: d.ContactName,
		})
	}

	// Longest-lapsed first; donors with no recorded gift (but a history of
	// asks) sort ahead of dated ones.
	sort.SliceStable(atRisk, func(i, j int) bool {
		if (atRisk[i].LastGiftOn == nil) != (atRisk[j].LastGiftOn == nil) {
			return atRisk[i].LastGiftOn == nil
		}
		return atRisk[i].DaysSinceGift > atRisk[j].DaysSinceGift
	})
	return atRisk
}

// Donation is a received gift, as loaded by the calling layer.
type Donation struct {
	DonationID  string          `json:"donation_id"`
	ContactID   string          `json:"contact_id"`
	ContactName string          `json:"contact_name"`
	Amount      decimal.Decimal `json:"amount"`
	ReceivedOn  time.Time       `json:"received_on"`
	Thanked     bool            `json:"thanked"`
}

// ThankYouQueue returns unthanked donations oldest-first, so the gifts that
// have waited longest for acknowledgment surface before newer ones.
func ThankYouQueue(donations []Donation) []Donation {
	queue := make([]Donation, 0)
	for _, d := range donations {
		if !d.Thanked {
			queue = append(queue, d)
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].ReceivedOn.Before(queue[j].ReceivedOn)
	})
	return queue
}

// TaskSummary is an overdue task supplied by the task collaborator.
type TaskSummary struct {
	TaskID      string    `json:"task_id"`
	ContactID   string    `json:"contact_id,omitempty"`
	Title       string    `json:"title"`
	DueOn       time.Time `json:"due_on"`
	Priority    string    `json:"priority,omitempty"`
	DaysOverdue int       `json:"days_overdue,omitempty"`
}

// Summary is the needs-attention badge payload: full counts plus capped
// previews per category.
type Summary struct {
	LateCount        int          `json:"late_count"`
	LatePreview      []LatePledge `json:"late_preview"`
	OverdueTaskCount int          `json:"overdue_task_count"`
	TaskPreview      []TaskSummary `json:"task_preview"`
	ThankYouCount    int          `json:"thank_you_count"`
	ThankYouPreview  []Donation   `json:"thank_you_preview"`
	Total            int          `json:"total"`
}

// NeedsAttention composes the three queues into a summary. Counts always
// reflect the full lists even when previews are truncated to previewLimit.
func NeedsAttention(late []LatePledge, overdueTasks []TaskSummary, thankYou []Donation, previewLimit int) Summary {
	if previewLimit < 0 {
		previewLimit = 0
	}
	return Summary{
		LateCount:        len(late),
		LatePreview:      late[:min(previewLimit, len(late))],
		OverdueTaskCount: len(overdueTasks),
		TaskPreview:      overdueTasks[:min(previewLimit, len(overdueTasks))],
		ThankYouCount:    len(thankYou),
		ThankYouPreview:  thankYou[:min(previewLimit, len(thankYou))],
		Total:            len(late) + len(overdueTasks) + len(thankYou),
	}
}
