package attention

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kindling-crm/be-donor-pipeline/internal/commitment"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func activePledge(amount int64, freq commitment.Frequency, start time.Time) commitment.Pledge {
	return commitment.Pledge{
		Amount:    decimal.NewFromInt(amount),
		Frequency: freq,
		Status:    commitment.StatusActive,
		StartOn:   start,
	}
}

func TestLateDonations(t *testing.T) {
	today := date(2026, 6, 1)

	pledges := []PledgeView{
		{
			PledgeID:    "on-time",
			ContactID:   "c1",
			ContactName: "Ada",
			Pledge: commitment.Pledge{
				Amount:          decimal.NewFromInt(50),
				Frequency:       commitment.FrequencyMonthly,
				Status:          commitment.StatusActive,
				StartOn:         date(2026, 1, 1),
				LastFulfilledOn: datePtr(2026, 5, 20),
			},
		},
		{
			PledgeID:    "slightly-late",
			ContactID:   "c2",
			ContactName: "Grace",
			// Next expected 2026-05-15, 17 days late.
			Pledge: commitment.Pledge{
				Amount:          decimal.NewFromInt(90),
				Frequency:       commitment.FrequencyMonthly,
				Status:          commitment.StatusActive,
				StartOn:         date(2026, 1, 15),
				LastFulfilledOn: datePtr(2026, 4, 15),
			},
		},
		{
			PledgeID:    "very-late",
			ContactID:   "c3",
			ContactName: "Edsger",
			// Never fulfilled, next expected 2026-04-01, 61 days late.
			Pledge: activePledge(120, commitment.FrequencyQuarterly, date(2026, 1, 1)),
		},
		{
			PledgeID:    "paused",
			ContactID:   "c4",
			ContactName: "Barbara",
			Pledge: commitment.Pledge{
				Amount:    decimal.NewFromInt(100),
				Frequency: commitment.FrequencyMonthly,
				Status:    commitment.StatusPaused,
				StartOn:   date(2025, 1, 1),
			},
		},
	}

	late := LateDonations(pledges, today, 5)

	if len(late) != 2 {
		t.Fatalf("LateDonations() returned %d entries, want 2", len(late))
	}
	if late[0].PledgeID != "very-late" || late[1].PledgeID != "slightly-late" {
		t.Errorf("order = [%s, %s], want [very-late, slightly-late]", late[0].PledgeID, late[1].PledgeID)
	}
	if late[0].DaysLate != 61 {
		t.Errorf("DaysLate = %d, want 61", late[0].DaysLate)
	}
	if !late[0].MonthlyEquivalent.Equal(decimal.NewFromInt(40)) {
		t.Errorf("MonthlyEquivalent = %s, want 40", late[0].MonthlyEquivalent)
	}
	if !late[0].NextExpectedOn.Equal(date(2026, 4, 1)) {
		t.Errorf("NextExpectedOn = %s, want 2026-04-01", late[0].NextExpectedOn)
	}
}

func TestAtRiskDonors(t *testing.T) {
	today := date(2026, 6, 1)

	donors := []DonorActivity{
		{ContactID: "recent", ContactName: "Recent Giver", LastGiftOn: datePtr(2026, 5, 15), GiftCount: 3},
		{ContactID: "lapsed", ContactName: "Lapsed Giver", LastGiftOn: datePtr(2026, 1, 1), GiftCount: 5},
		{ContactID: "prospect", ContactName: "New Prospect", GiftCount: 0, AskCount: 0},
		{ContactID: "asked-never-gave", ContactName: "Asked Once", GiftCount: 0, AskCount: 2},
	}

	atRisk := AtRiskDonors(donors, 60, today)

	if len(atRisk) != 2 {
		t.Fatalf("AtRiskDonors() returned %d entries, want 2", len(atRisk))
	}
	// No-gift donors with asks sort first, then longest-lapsed.
	if atRisk[0].ContactID != "asked-never-gave" {
		t.Errorf("first = %s, want asked-never-gave", atRisk[0].ContactID)
	}
	if atRisk[1].ContactID != "lapsed" {
		t.Errorf("second = %s, want lapsed", atRisk[1].ContactID)
	}
	if atRisk[1].DaysSinceGift != 151 {
		t.Errorf("DaysSinceGift = %d, want 151", atRisk[1].DaysSinceGift)
	}
}

func TestAtRiskDonors_ExactThresholdNotAtRisk(t *testing.T) {
	today := date(2026, 6, 1)
	donors := []DonorActivity{
		{ContactID: "edge", LastGiftOn: datePtr(2026, 4, 2), GiftCount: 1}, // exactly 60 days
	}
	if got := AtRiskDonors(donors, 60, today); len(got) != 0 {
		t.Errorf("donor at exactly the threshold reported at risk: %v", got)
	}
}

func TestThankYouQueue(t *testing.T) {
	d0 := date(2026, 3, 1)
	d1 := date(2026, 4, 1)
	d2 := date(2026, 5, 1)

	donations := []Donation{
		{DonationID: "mid", ReceivedOn: d1, Thanked: false},
		{DonationID: "thanked", ReceivedOn: d2, Thanked: true},
		{DonationID: "oldest", ReceivedOn: d0, Thanked: false},
	}

	queue := ThankYouQueue(donations)

	if len(queue) != 2 {
		t.Fatalf("ThankYouQueue() returned %d entries, want 2", len(queue))
	}
	if queue[0].DonationID != "oldest" || queue[1].DonationID != "mid" {
		t.Errorf("order = [%s, %s], want [oldest, mid]", queue[0].DonationID, queue[1].DonationID)
	}
}

func TestNeedsAttention(t *testing.T) {
	late := []LatePledge{{PledgeID: "a"}, {PledgeID: "b"}, {PledgeID: "c"}}
	tasks := []TaskSummary{{TaskID: "t1"}}
	thank := []Donation{{DonationID: "d1"}, {DonationID: "d2"}, {DonationID: "d3"}, {DonationID: "d4"}}

	s := NeedsAttention(late, tasks, thank, 2)

	if s.LateCount != 3 || s.OverdueTaskCount != 1 || s.ThankYouCount != 4 {
		t.Errorf("counts = (%d, %d, %d), want (3, 1, 4)", s.LateCount, s.OverdueTaskCount, s.ThankYouCount)
	}
	if s.Total != 8 {
		t.Errorf("Total = %d, want 8", s.Total)
	}
	// Previews are capped but counts above must stay full.
	if len(s.LatePreview) != 2 || len(s.TaskPreview) != 1 || len(s.ThankYouPreview) != 2 {
		t.Errorf("preview lengths = (%d, %d, %d), want (2, 1, 2)",
			len(s.LatePreview), len(s.TaskPreview), len(s.ThankYouPreview))
	}
	if s.LatePreview[0].PledgeID != "a" {
		t.Errorf("LatePreview[0] = %s, want a", s.LatePreview[0].PledgeID)
	}
}

func TestNeedsAttention_Empty(t *testing.T) {
	s := NeedsAttention(nil, nil, nil, 5)
	if s.Total != 0 || s.LateCount != 0 {
		t.Errorf("empty summary = %+v, want zeros", s)
	}
}
