package commitment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		frequency Frequency
		want      string
	}{
		{"monthly passes through", "50", FrequencyMonthly, "50"},
		{"quarterly divides by 3", "120", FrequencyQuarterly, "40"},
		{"semi_annual divides by 6", "600", FrequencySemiAnnual, "100"},
		{"annual divides by 12", "1200", FrequencyAnnual, "100"},
		{"rounds to currency precision", "100", FrequencyQuarterly, "33.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthlyEquivalent(decimal.RequireFromString(tt.amount), tt.frequency)
			if err != nil {
				t.Fatalf("MonthlyEquivalent() error = %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("MonthlyEquivalent(%s, %s) = %s, want %s", tt.amount, tt.frequency, got, tt.want)
			}
		})
	}
}

func TestMonthlyEquivalent_Invalid(t *testing.T) {
	if _, err := MonthlyEquivalent(decimal.Zero, FrequencyMonthly); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := MonthlyEquivalent(decimal.NewFromInt(-5), FrequencyMonthly); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := MonthlyEquivalent(decimal.NewFromInt(10), Frequency("weekly")); err == nil {
		t.Error("expected error for unknown frequency")
	}
}

func TestParseFrequency(t *testing.T) {
	for _, raw := range []string{"monthly", "quarterly", "semi_annual", "annual"} {
		if _, err := ParseFrequency(raw); err != nil {
			t.Errorf("ParseFrequency(%q) unexpected error: %v", raw, err)
		}
	}
	if _, err := ParseFrequency("weekly"); err == nil {
		t.Error("ParseFrequency(weekly) expected error")
	}
}

func TestNextExpectedDate(t *testing.T) {
	today := date(2026, 4, 10)

	tests := []struct {
		name   string
		pledge Pledge
		want   time.Time
		wantOK bool
	}{
		{
			name: "no fulfillment projects from start",
			pledge: Pledge{
				Frequency: FrequencyQuarterly,
				Status:    StatusActive,
				StartOn:   date(2026, 1, 1),
			},
			want:   date(2026, 4, 1),
			wantOK: true,
		},
		{
			name: "fulfilled projects from last fulfilled",
			pledge: Pledge{
				Frequency:       FrequencyMonthly,
				Status:          StatusActive,
				StartOn:         date(2026, 1, 1),
				LastFulfilledOn: datePtr(2026, 3, 15),
			},
			want:   date(2026, 4, 15),
			wantOK: true,
		},
		{
			name: "paused pledge has no projection",
			pledge: Pledge{
				Frequency: FrequencyMonthly,
				Status:    StatusPaused,
				StartOn:   date(2026, 1, 1),
			},
			wantOK: false,
		},
		{
			name: "cancelled pledge has no projection",
			pledge: Pledge{
				Frequency: FrequencyAnnual,
				Status:    StatusCancelled,
				StartOn:   date(2025, 1, 1),
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextExpectedDate(tt.pledge, today)
			if ok != tt.wantOK {
				t.Fatalf("NextExpectedDate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("NextExpectedDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

// Matches the worked scenario: 120/quarterly starting 2026-01-01, no
// fulfillment, today 2026-04-10 with a 5-day grace period.
func TestQuarterlyPledgeScenario(t *testing.T) {
	p := Pledge{
		Amount:    decimal.NewFromInt(120),
		Frequency: FrequencyQuarterly,
		Status:    StatusActive,
		StartOn:   date(2026, 1, 1),
	}
	today := date(2026, 4, 10)

	next, ok := NextExpectedDate(p, today)
	if !ok || !next.Equal(date(2026, 4, 1)) {
		t.Errorf("NextExpectedDate() = %s, %v, want 2026-04-01, true", next, ok)
	}
	if got := DaysLate(p, today); got != 9 {
		t.Errorf("DaysLate() = %d, want 9", got)
	}
	if !IsLate(p, today, 5) {
		t.Error("IsLate() = false, want true")
	}
	monthly, err := MonthlyEquivalent(p.Amount, p.Frequency)
	if err != nil {
		t.Fatal(err)
	}
	if !monthly.Equal(decimal.NewFromInt(40)) {
		t.Errorf("MonthlyEquivalent() = %s, want 40", monthly)
	}
}

func TestIsLate(t *testing.T) {
	start := date(2026, 1, 1)

	tests := []struct {
		name  string
		p     Pledge
		today time.Time
		grace int
		want  bool
	}{
		{
			name:  "on schedule",
			p:     Pledge{Frequency: FrequencyMonthly, Status: StatusActive, StartOn: start},
			today: date(2026, 1, 20),
			grace: 5,
			want:  false,
		},
		{
			name:  "inside grace period",
			p:     Pledge{Frequency: FrequencyMonthly, Status: StatusActive, StartOn: start},
			today: date(2026, 2, 5),
			grace: 5,
			want:  false,
		},
		{
			name:  "just past grace period",
			p:     Pledge{Frequency: FrequencyMonthly, Status: StatusActive, StartOn: start},
			today: date(2026, 2, 7),
			grace: 5,
			want:  true,
		},
		{
			name: "fulfilled today is never late",
			p: Pledge{
				Frequency:       FrequencyMonthly,
				Status:          StatusActive,
				StartOn:         start,
				LastFulfilledOn: datePtr(2026, 3, 1),
			},
			today: date(2026, 3, 1),
			grace: 0,
			want:  false,
		},
		{
			name:  "paused never late",
			p:     Pledge{Frequency: FrequencyMonthly, Status: StatusPaused, StartOn: start},
			today: date(2026, 12, 1),
			grace: 0,
			want:  false,
		},
		{
			name:  "completed never late",
			p:     Pledge{Frequency: FrequencyMonthly, Status: StatusCompleted, StartOn: start},
			today: date(2026, 12, 1),
			grace: 0,
			want:  false,
		},
		{
			name:  "cancelled never late",
			p:     Pledge{Frequency: FrequencyMonthly, Status: StatusCancelled, StartOn: start},
			today: date(2026, 12, 1),
			grace: 0,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLate(tt.p, tt.today, tt.grace); got != tt.want {
				t.Errorf("IsLate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysLate_NeverNegative(t *testing.T) {
	p := Pledge{Frequency: FrequencyMonthly, Status: StatusActive, StartOn: date(2026, 1, 1)}
	if got := DaysLate(p, date(2026, 1, 10)); got != 0 {
		t.Errorf("DaysLate() before due date = %d, want 0", got)
	}
}

func TestFulfillmentPercentage(t *testing.T) {
	today := date(2026, 7, 1)

	tests := []struct {
		name     string
		p        Pledge
		received string
		want     string
	}{
		{
			name: "exactly on track",
			p: Pledge{
				Amount:    decimal.NewFromInt(100),
				Frequency: FrequencyMonthly,
				Status:    StatusActive,
				StartOn:   date(2026, 1, 1),
			},
			received: "600", // 6 full months × 100
			want:     "100",
		},
		{
			name: "half fulfilled",
			p: Pledge{
				Amount:    decimal.NewFromInt(100),
				Frequency: FrequencyMonthly,
				Status:    StatusActive,
				StartOn:   date(2026, 1, 1),
			},
			received: "300",
			want:     "50",
		},
		{
			name: "over-fulfillment is not clamped",
			p: Pledge{
				Amount:    decimal.NewFromInt(100),
				Frequency: FrequencyMonthly,
				Status:    StatusActive,
				StartOn:   date(2026, 1, 1),
			},
			received: "900",
			want:     "150",
		},
		{
			name: "accrual capped at end date",
			p: Pledge{
				Amount:    decimal.NewFromInt(100),
				Frequency: FrequencyMonthly,
				Status:    StatusActive,
				StartOn:   date(2026, 1, 1),
				EndOn:     datePtr(2026, 4, 1), // 3 full months
			},
			received: "300",
			want:     "100",
		},
		{
			name: "nothing accrued yet",
			p: Pledge{
				Amount:    decimal.NewFromInt(100),
				Frequency: FrequencyMonthly,
				Status:    StatusActive,
				StartOn:   date(2026, 6, 20),
			},
			received: "0",
			want:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FulfillmentPercentage(tt.p, decimal.RequireFromString(tt.received), today)
			if err != nil {
				t.Fatalf("FulfillmentPercentage() error = %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("FulfillmentPercentage() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusActive, StatusPaused, true},
		{StatusPaused, StatusActive, true},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusCancelled, true},
		{StatusPaused, StatusCancelled, true},
		{StatusPaused, StatusCompleted, false},
		{StatusCompleted, StatusActive, false},
		{StatusCancelled, StatusActive, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusActive, StatusActive, true},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
