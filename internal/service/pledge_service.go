package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kindling-crm/be-donor-pipeline/internal/client"
	"github.com/kindling-crm/be-donor-pipeline/internal/commitment"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
	"github.com/kindling-crm/be-donor-pipeline/internal/logger"
	"github.com/kindling-crm/be-donor-pipeline/internal/repository"
)

// PledgeStore is the pledge persistence interface the service depends on.
type PledgeStore interface {
	Create(ctx context.Context, pledge *repository.Pledge) error
	GetByID(ctx context.Context, id, ownerID string) (*repository.Pledge, error)
	List(ctx context.Context, ownerID string, contactID, status *string, limit, offset int) ([]*repository.Pledge, int64, error)
	UpdateStatus(ctx context.Context, id, ownerID, status string) error
	LinkGift(ctx context.Context, pledgeID, ownerID, donationID string) (time.Time, error)
	TotalReceived(ctx context.Context, pledgeID string) (decimal.Decimal, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// PledgeService handles pledge business logic: validation, the status state
// machine and derived-field assembly for pledge cards.
type PledgeService struct {
	pledges         PledgeStore
	publisher       *client.NotificationPublisher
	log             *logger.Logger
	gracePeriodDays int
}

// NewPledgeService creates a new pledge service.
func NewPledgeService(pledges PledgeStore, publisher *client.NotificationPublisher, log *logger.Logger, gracePeriodDays int) *PledgeService {
	return &PledgeService{
		pledges:         pledges,
		publisher:       publisher,
		log:             log,
		gracePeriodDays: gracePeriodDays,
	}
}

// CreatePledgeRequest represents a create pledge request.
type CreatePledgeRequest struct {
	OwnerID   string          `json:"owner_id"`
	ContactID string          `json:"contact_id"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency string          `json:"frequency"`
	StartOn   string          `json:"start_on"`
	EndOn     *string         `json:"end_on,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
}

// LinkGiftRequest associates a recorded donation with a pledge.
type LinkGiftRequest struct {
	PledgeID   string `json:"pledge_id"`
	OwnerID    string `json:"owner_id"`
	DonationID string `json:"donation_id"`
}

// PledgeCard is a pledge plus its derived fields, ready for rendering.
// Derived values are computed on read and never stored.
type PledgeCard struct {
	*repository.Pledge
	MonthlyEquivalent  decimal.Decimal `json:"monthly_equivalent"`
	NextExpectedOn     *time.Time      `json:"next_expected_on,omitempty"`
	IsLate             bool            `json:"is_late"`
	DaysLate           int             `json:"days_late"`
	TotalReceived      decimal.Decimal `json:"total_received"`
	FulfillmentPercent decimal.Decimal `json:"fulfillment_percent"`
}

// CreatePledge validates and records a new commitment.
func (s *PledgeService) CreatePledge(ctx context.Context, req *CreatePledgeRequest, today time.Time) (*PledgeCard, error) {
	if req.OwnerID == "" {
		return nil, errors.InvalidInput("owner_id", "owner is required")
	}
	if req.ContactID == "" {
		return nil, errors.InvalidInput("contact_id", "contact is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.InvalidInput("amount", "must be positive")
	}

	frequency, err := commitment.ParseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}

	startOn, err := time.Parse("2006-01-02", req.StartOn)
	if err != nil {
		return nil, errors.InvalidInput("start_on", "invalid date format, expected YYYY-MM-DD")
	}

	var endOn *time.Time
	if req.EndOn != nil {
		end, err := time.Parse("2006-01-02", *req.EndOn)
		if err != nil {
			return nil, errors.InvalidInput("end_on", "invalid date format, expected YYYY-MM-DD")
		}
		if end.Before(startOn) {
			return nil, errors.InvalidInput("end_on", "end date cannot be before start date")
		}
		endOn = &end
	}

	pledge := &repository.Pledge{
		OwnerID:   req.OwnerID,
		ContactID: req.ContactID,
		Amount:    req.Amount,
		Frequency: string(frequency),
		Status:    string(commitment.StatusActive),
		StartOn:   startOn,
		EndOn:     endOn,
		Notes:     req.Notes,
	}

	if err := s.pledges.Create(ctx, pledge); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("pledge_id", pledge.ID).
		Str("contact_id", pledge.ContactID).
		Str("frequency", pledge.Frequency).
		Str("amount", pledge.Amount.String()).
		Msg("Pledge created")

	s.publisher.PublishDonorEvent(ctx, "pledge_created", "pledge", pledge.ID, pledge.OwnerID, pledge.ContactID, map[string]interface{}{
		"amount":    pledge.Amount.String(),
		"frequency": pledge.Frequency,
	})

	return s.buildCard(ctx, pledge, today)
}

// GetPledge retrieves a pledge with its derived fields.
func (s *PledgeService) GetPledge(ctx context.Context, id, ownerID string, today time.Time) (*PledgeCard, error) {
	pledge, err := s.pledges.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return s.buildCard(ctx, pledge, today)
}

// ListPledges lists pledges with derived fields, filtered and paginated.
func (s *PledgeService) ListPledges(ctx context.Context, ownerID string, contactID, status *string, page, pageSize int, today time.Time) ([]*PledgeCard, int64, error) {
	offset := (page - 1) * pageSize
	pledges, total, err := s.pledges.List(ctx, ownerID, contactID, status, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	cards := make([]*PledgeCard, 0, len(pledges))
	for _, pledge := range pledges {
		card, err := s.buildCard(ctx, pledge, today)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, card)
	}
	return cards, total, nil
}

// ChangeStatus moves a pledge along its status machine. Completed and
// cancelled are terminal; invalid transitions are rejected as conflicts.
func (s *PledgeService) ChangeStatus(ctx context.Context, id, ownerID, newStatus string) error {
	target, err := commitment.ParseStatus(newStatus)
	if err != nil {
		return err
	}

	pledge, err := s.pledges.GetByID(ctx, id, ownerID)
	if err != nil {
		return err
	}

	current := commitment.Status(pledge.Status)
	if !commitment.CanTransition(current, target) {
		return errors.Conflict(
			fmt.Sprintf("cannot change pledge status from '%s' to '%s'", current, target))
	}
	if current == target {
		return nil
	}

	if err := s.pledges.UpdateStatus(ctx, id, ownerID, string(target)); err != nil {
		return err
	}

	s.log.Info().
		Str("pledge_id", id).
		Str("from", string(current)).
		Str("to", string(target)).
		Msg("Pledge status changed")

	s.publisher.PublishDonorEvent(ctx, "pledge_status_changed", "pledge", id, ownerID, pledge.ContactID, map[string]interface{}{
		"from": string(current),
		"to":   string(target),
	})

	return nil
}

// LinkGift associates a donation with a pledge, advancing the fulfillment
// date. Only active pledges accept gifts.
func (s *PledgeService) LinkGift(ctx context.Context, req *LinkGiftRequest) (*repository.Pledge, error) {
	pledge, err := s.pledges.GetByID(ctx, req.PledgeID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	if pledge.Status != string(commitment.StatusActive) {
		return nil, errors.Conflict(
			fmt.Sprintf("cannot link a gift to a pledge with status '%s'", pledge.Status))
	}

	receivedOn, err := s.pledges.LinkGift(ctx, req.PledgeID, req.OwnerID, req.DonationID)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("pledge_id", req.PledgeID).
		Str("donation_id", req.DonationID).
		Str("received_on", receivedOn.Format("2006-01-02")).
		Msg("Gift linked to pledge")

	s.publisher.PublishDonorEvent(ctx, "gift_linked", "pledge", req.PledgeID, req.OwnerID, pledge.ContactID, map[string]interface{}{
		"donation_id": req.DonationID,
	})

	return s.pledges.GetByID(ctx, req.PledgeID, req.OwnerID)
}

// DeletePledge removes a pledge outright. Cancelling via status is the
// normal path; deletion is for records created in error.
func (s *PledgeService) DeletePledge(ctx context.Context, id, ownerID string) error {
	if err := s.pledges.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.log.Info().Str("pledge_id", id).Msg("Pledge deleted")
	return nil
}

// buildCard computes the derived fields for one pledge as of today.
func (s *PledgeService) buildCard(ctx context.Context, pledge *repository.Pledge, today time.Time) (*PledgeCard, error) {
	cp := toCommitmentPledge(pledge)

	monthly, err := commitment.MonthlyEquivalent(cp.Amount, cp.Frequency)
	if err != nil {
		return nil, err
	}

	received, err := s.pledges.TotalReceived(ctx, pledge.ID)
	if err != nil {
		return nil, err
	}

	fulfillment, err := commitment.FulfillmentPercentage(cp, received, today)
	if err != nil {
		return nil, err
	}

	card := &PledgeCard{
		Pledge:             pledge,
		MonthlyEquivalent:  monthly,
		IsLate:             commitment.IsLate(cp, today, s.gracePeriodDays),
		DaysLate:           commitment.DaysLate(cp, today),
		TotalReceived:      received,
		FulfillmentPercent: fulfillment,
	}
	if next, ok := commitment.NextExpectedDate(cp, today); ok {
		card.NextExpectedOn = &next
	}
	return card, nil
}

// toCommitmentPledge maps a stored pledge onto the engine's view of it.
func toCommitmentPledge(p *repository.Pledge) commitment.Pledge {
	return commitment.Pledge{
		Amount:          p.Amount,
		Frequency:       commitment.Frequency(p.Frequency),
		Status:          commitment.Status(p.Status),
		StartOn:         p.StartOn,
		EndOn:           p.EndOn,
		LastFulfilledOn: p.LastFulfilledOn,
	}
}
