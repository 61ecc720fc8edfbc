package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kindling-crm/be-donor-pipeline/internal/client"
	"github.com/kindling-crm/be-donor-pipeline/internal/commitment"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
	"github.com/kindling-crm/be-donor-pipeline/internal/logger"
	"github.com/kindling-crm/be-donor-pipeline/internal/repository"
)

// Decision cadences. one_time does not recur, so its monthly equivalent is
// zero by convention.
const (
	CadenceOneTime   = "one_time"
	CadenceMonthly   = "monthly"
	CadenceQuarterly = "quarterly"
	CadenceAnnual    = "annual"
)

var validCadences = map[string]bool{
	CadenceOneTime:   true,
	CadenceMonthly:   true,
	CadenceQuarterly: true,
	CadenceAnnual:    true,
}

// Decision statuses.
var validDecisionStatuses = map[string]bool{
	"pending":  true,
	"active":   true,
	"paused":   true,
	"declined": true,
}

// DecisionStore is the decision persistence interface. UpdateWithHistory
// must snapshot the pre-change state and apply the update atomically per
// decision id.
type DecisionStore interface {
	Create(ctx context.Context, decision *repository.Decision) error
	GetByID(ctx context.Context, id string) (*repository.Decision, error)
	GetByJournalContact(ctx context.Context, journalContactID string) (*repository.Decision, error)
	UpdateWithHistory(ctx context.Context, id string, update repository.DecisionUpdate, changedBy *string) (*repository.Decision, error)
	Delete(ctx context.Context, id string) error
}

// DecisionHistoryStore reads the immutable snapshot log.
type DecisionHistoryStore interface {
	ListByDecisionID(ctx context.Context, decisionID string) ([]*repository.DecisionHistoryEntry, error)
	ListByJournalContact(ctx context.Context, journalContactID string) ([]*repository.DecisionHistoryEntry, error)
}

// DecisionService maintains the commitment terms ledger: one live decision
// per journal contact, every mutation preceded by a history snapshot.
type DecisionService struct {
	decisions DecisionStore
	history   DecisionHistoryStore
	journals  JournalStore
	publisher *client.NotificationPublisher
	log       *logger.Logger
}

// NewDecisionService creates a new decision service.
func NewDecisionService(decisions DecisionStore, history DecisionHistoryStore, journals JournalStore, publisher *client.NotificationPublisher, log *logger.Logger) *DecisionService {
	return &DecisionService{
		decisions: decisions,
		history:   history,
		journals:  journals,
		publisher: publisher,
		log:       log,
	}
}

// CreateDecisionRequest represents a create decision request.
type CreateDecisionRequest struct {
	JournalContactID string          `json:"journal_contact_id"`
	Amount           decimal.Decimal `json:"amount"`
	Cadence          string          `json:"cadence"`
	Status           string          `json:"status,omitempty"`
}

// UpdateDecisionRequest carries the partial fields of an update; absent
// fields are left unchanged.
type UpdateDecisionRequest struct {
	DecisionID string           `json:"decision_id"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Cadence    *string          `json:"cadence,omitempty"`
	Status     *string          `json:"status,omitempty"`
	ChangedBy  *string          `json:"changed_by,omitempty"`
}

// DecisionView is a decision plus its derived monthly equivalent.
type DecisionView struct {
	*repository.Decision
	MonthlyEquivalent decimal.Decimal `json:"monthly_equivalent"`
}

// CreateDecision records the negotiated terms for a journal contact. At most
// one live decision may exist per membership.
func (s *DecisionService) CreateDecision(ctx context.Context, req *CreateDecisionRequest) (*DecisionView, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.InvalidInput("amount", "must be positive")
	}
	if !validCadences[req.Cadence] {
		return nil, errors.InvalidInput("cadence", "must be one of one_time, monthly, quarterly, annual")
	}
	status := req.Status
	if status == "" {
		status = "pending"
	}
	if !validDecisionStatuses[status] {
		return nil, errors.InvalidInput("status", "must be one of pending, active, paused, declined")
	}

	if _, err := s.journals.GetContactByID(ctx, req.JournalContactID); err != nil {
		return nil, err
	}

	existing, err := s.decisions.GetByJournalContact(ctx, req.JournalContactID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Conflict("a decision already exists for this journal contact")
	}

	decision := &repository.Decision{
		JournalContactID: req.JournalContactID,
		Amount:           req.Amount,
		Cadence:          req.Cadence,
		Status:           status,
	}
	// The unique constraint backs up the existence check under races.
	if err := s.decisions.Create(ctx, decision); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("decision_id", decision.ID).
		Str("journal_contact_id", decision.JournalContactID).
		Str("cadence", decision.Cadence).
		Str("amount", decision.Amount.String()).
		Msg("Decision created")

	s.publisher.PublishDonorEvent(ctx, "decision_created", "decision", decision.ID, "", "", map[string]interface{}{
		"journal_contact_id": decision.JournalContactID,
		"cadence":            decision.Cadence,
	})

	return s.buildView(decision)
}

// GetDecision retrieves a decision with its derived monthly equivalent.
func (s *DecisionService) GetDecision(ctx context.Context, id string) (*DecisionView, error) {
	decision, err := s.decisions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(decision)
}

// GetDecisionForContact returns the live decision for a membership, or nil.
func (s *DecisionService) GetDecisionForContact(ctx context.Context, journalContactID string) (*DecisionView, error) {
	decision, err := s.decisions.GetByJournalContact(ctx, journalContactID)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, nil
	}
	return s.buildView(decision)
}

// UpdateDecision applies a partial update. The store snapshots the
// pre-change state into history before mutating, atomically per decision.
func (s *DecisionService) UpdateDecision(ctx context.Context, req *UpdateDecisionRequest) (*DecisionView, error) {
	if req.Amount == nil && req.Cadence == nil && req.Status == nil {
		return nil, errors.InvalidInput("fields", "at least one field must be provided")
	}
	if req.Amount != nil && req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.InvalidInput("amount", "must be positive")
	}
	if req.Cadence != nil && !validCadences[*req.Cadence] {
		return nil, errors.InvalidInput("cadence", "must be one of one_time, monthly, quarterly, annual")
	}
	if req.Status != nil && !validDecisionStatuses[*req.Status] {
		return nil, errors.InvalidInput("status", "must be one of pending, active, paused, declined")
	}

	update := repository.DecisionUpdate{
		Amount:  req.Amount,
		Cadence: req.Cadence,
		Status:  req.Status,
	}
	decision, err := s.decisions.UpdateWithHistory(ctx, req.DecisionID, update, req.ChangedBy)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("decision_id", decision.ID).
		Str("journal_contact_id", decision.JournalContactID).
		Msg("Decision updated")

	s.publisher.PublishDonorEvent(ctx, "decision_updated", "decision", decision.ID, "", "", nil)

	return s.buildView(decision)
}

// DeleteDecision removes the live decision. Its history remains queryable.
func (s *DecisionService) DeleteDecision(ctx context.Context, id string) error {
	if err := s.decisions.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("decision_id", id).Msg("Decision deleted")
	s.publisher.PublishDonorEvent(ctx, "decision_deleted", "decision", id, "", "", nil)
	return nil
}

// History returns the snapshot trail for a decision, oldest-first. Works for
// deleted decisions too.
func (s *DecisionService) History(ctx context.Context, decisionID string) ([]*repository.DecisionHistoryEntry, error) {
	return s.history.ListByDecisionID(ctx, decisionID)
}

// ContactHistory returns every snapshot across all decisions a membership
// has had.
func (s *DecisionService) ContactHistory(ctx context.Context, journalContactID string) ([]*repository.DecisionHistoryEntry, error) {
	return s.history.ListByJournalContact(ctx, journalContactID)
}

// buildView computes the derived monthly equivalent for a decision.
func (s *DecisionService) buildView(decision *repository.Decision) (*DecisionView, error) {
	monthly, err := CadenceMonthlyEquivalent(decision.Amount, decision.Cadence)
	if err != nil {
		return nil, err
	}
	return &DecisionView{Decision: decision, MonthlyEquivalent: monthly}, nil
}

// CadenceMonthlyEquivalent normalizes a decision amount to its per-month
// value. A one_time commitment does not recur, so its monthly equivalent is
// zero.
func CadenceMonthlyEquivalent(amount decimal.Decimal, cadence string) (decimal.Decimal, error) {
	if cadence == CadenceOneTime {
		return decimal.Zero, nil
	}
	frequency, err := commitment.ParseFrequency(cadence)
	if err != nil {
		return decimal.Zero, errors.InvalidInput("cadence", "must be one of one_time, monthly, quarterly, annual")
	}
	return commitment.MonthlyEquivalent(amount, frequency)
}
