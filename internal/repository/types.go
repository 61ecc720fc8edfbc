package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Domain types for the donor pipeline ──────────────────────────────────────

// Pledge is a recurring or one-time giving commitment from a contact.
type Pledge struct {
	ID              string
	OwnerID         string
	ContactID       string
	ContactName     string
	Amount          decimal.Decimal
	Frequency       string // monthly | quarterly | semi_annual | annual
	Status          string // active | paused | completed | cancelled
	StartOn         time.Time
	EndOn           *time.Time
	LastFulfilledOn *time.Time
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Journal is a named container grouping a fundraiser's pipeline contacts.
type Journal struct {
	ID         string
	OwnerID    string
	Name       string
	GoalAmount *decimal.Decimal
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JournalContact is a contact's membership inside one journal. A contact
// appears at most once per journal.
type JournalContact struct {
	ID          string
	JournalID   string
	ContactID   string
	ContactName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StageEvent is one immutable record of an action taken at a pipeline stage.
// Rows are never updated or deleted.
type StageEvent struct {
	ID               string
	JournalContactID string
	Stage            string // contact | meet | close | decision | thank | next_steps
	EventType        string
	Notes            *string
	Metadata         map[string]interface{}
	ActorID          string
	OccurredAt       time.Time
}

// StageSummary is the per-stage lane rollup used by the board view.
type StageSummary struct {
	Stage       string
	EventCount  int
	LastEventAt *time.Time
}

// Decision is the current commitment terms for a journal contact. At most
// one live decision exists per journal contact.
type Decision struct {
	ID               string
	JournalContactID string
	Amount           decimal.Decimal
	Cadence          string // one_time | monthly | quarterly | annual
	Status           string // pending | active | paused | declined
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DecisionUpdate carries the partial fields of a decision update. Nil fields
// are left unchanged.
type DecisionUpdate struct {
	Amount  *decimal.Decimal
	Cadence *string
	Status  *string
}

// DecisionHistoryEntry is an immutable snapshot of a decision's state taken
// just before a mutation. Entries survive deletion of the live decision.
type DecisionHistoryEntry struct {
	ID               string
	DecisionID       string
	JournalContactID string
	Amount           decimal.Decimal
	Cadence          string
	Status           string
	ChangedBy        *string
	SnapshotAt       time.Time
}

// NextStep is an ordered checklist item scoped to a journal contact.
type NextStep struct {
	ID               string
	JournalContactID string
	Title            string
	DueOn            *time.Time
	Completed        bool
	CompletedAt      *time.Time
	Position         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Donation is a received gift, written by the gift-recording collaborator
// and read here for fulfillment and thank-you tracking.
type Donation struct {
	ID          string
	OwnerID     string
	ContactID   string
	ContactName string
	PledgeID    *string
	Amount      decimal.Decimal
	ReceivedOn  time.Time
	Thanked     bool
	ThankedAt   *time.Time
	CreatedAt   time.Time
}

// DonorActivity is the per-contact giving/ask rollup the attention
// aggregator consumes.
type DonorActivity struct {
	ContactID   string
	ContactName string
	LastGiftOn  *time.Time
	GiftCount   int
	AskCount    int
}

// TaskSummary is an overdue task row from the task collaborator.
type TaskSummary struct {
	ID        string
	ContactID *string
	Title     string
	DueOn     time.Time
	Priority  string
}
