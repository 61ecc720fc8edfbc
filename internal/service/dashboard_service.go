package service

import (
	"context"
	"time"

	"github.com/kindling-crm/be-donor-pipeline/internal/attention"
	"github.com/kindling-crm/be-donor-pipeline/internal/logger"
	"github.com/kindling-crm/be-donor-pipeline/internal/repository"
)

// ActivePledgeStore supplies the active pledges the late queue scans.
type ActivePledgeStore interface {
	ListActive(ctx context.Context, ownerID string) ([]*repository.Pledge, error)
}

// ActivityStore supplies the collaborator facts (gifts, asks, tasks) the
// attention queues are built from. All reads, no writes.
type ActivityStore interface {
	DonorActivity(ctx context.Context, ownerID string) ([]*repository.DonorActivity, error)
	ListUnthanked(ctx context.Context, ownerID string) ([]*repository.Donation, error)
	ListOverdueTasks(ctx context.Context, ownerID string, today time.Time) ([]*repository.TaskSummary, error)
}

// DashboardService composes the attention queues as of an explicit "today".
// It only loads collections and delegates to the pure aggregation functions;
// it performs no writes.
type DashboardService struct {
	pledges             ActivePledgeStore
	activity            ActivityStore
	log                 *logger.Logger
	gracePeriodDays     int
	atRiskThresholdDays int
	previewLimit        int
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(pledges ActivePledgeStore, activity ActivityStore, log *logger.Logger, gracePeriodDays, atRiskThresholdDays, previewLimit int) *DashboardService {
	return &DashboardService{
		pledges:             pledges,
		activity:            activity,
		log:                 log,
		gracePeriodDays:     gracePeriodDays,
		atRiskThresholdDays: atRiskThresholdDays,
		previewLimit:        previewLimit,
	}
}

// LateDonations returns active pledges past due, most late first.
func (s *DashboardService) LateDonations(ctx context.Context, ownerID string, today time.Time) ([]attention.LatePledge, error) {
	pledges, err := s.pledges.ListActive(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return attention.LateDonations(toPledgeViews(pledges), today, s.gracePeriodDays), nil
}

// AtRiskDonors returns contacts whose giving pattern has lapsed.
func (s *DashboardService) AtRiskDonors(ctx context.Context, ownerID string, today time.Time) ([]attention.AtRiskDonor, error) {
	activity, err := s.activity.DonorActivity(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return attention.AtRiskDonors(toDonorActivity(activity), s.atRiskThresholdDays, today), nil
}

// ThankYouQueue returns unacknowledged gifts, oldest first.
func (s *DashboardService) ThankYouQueue(ctx context.Context, ownerID string) ([]attention.Donation, error) {
	donations, err := s.activity.ListUnthanked(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return attention.ThankYouQueue(toDonations(donations)), nil
}

// NeedsAttention builds the summary badge: full counts with capped previews.
func (s *DashboardService) NeedsAttention(ctx context.Context, ownerID string, today time.Time) (attention.Summary, error) {
	late, err := s.LateDonations(ctx, ownerID, today)
	if err != nil {
		return attention.Summary{}, err
	}

	tasks, err := s.activity.ListOverdueTasks(ctx, ownerID, today)
	if err != nil {
		return attention.Summary{}, err
	}

	thankYou, err := s.ThankYouQueue(ctx, ownerID)
	if err != nil {
		return attention.Summary{}, err
	}

	return attention.NeedsAttention(late, toTaskSummaries(tasks, today), thankYou, s.previewLimit), nil
}

// ── repository → aggregator mapping ──────────────────────────────────────────

func toPledgeViews(pledges []*repository.Pledge) []attention.PledgeView {
	views := make([]attention.PledgeView, 0, len(pledges))
	for _, p := range pledges {
		views = append(views, attention.PledgeView{
			PledgeID:    p.ID,
			ContactID:   p.ContactID,
			ContactName: p.ContactName,
			Pledge:      toCommitmentPledge(p),
		})
	}
	return views
}

func toDonorActivity(activity []*repository.DonorActivity) []attention.DonorActivity {
	out := make([]attention.DonorActivity, 0, len(activity))
	for _, a := range activity {
		out = append(out, attention.DonorActivity{
			ContactID:   a.ContactID,
			ContactName: a.ContactName,
			LastGiftOn:  a.LastGiftOn,
			GiftCount:   a.GiftCount,
			AskCount:    a.AskCount,
		})
	}
	return out
}

func toDonations(donations []*repository.Donation) []attention.Donation {
	out := make([]attention.Donation, 0, len(donations))
	for _, d := range donations {
		out = append(out, attention.Donation{
			DonationID:  d.ID,
			ContactID:   d.ContactID,
			ContactName: d.ContactName,
			Amount:      d.Amount,
			ReceivedOn:  d.ReceivedOn,
			Thanked:     d.Thanked,
		})
	}
	return out
}

func toTaskSummaries(tasks []*repository.TaskSummary, today time.Time) []attention.TaskSummary {
	out := make([]attention.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		summary := attention.TaskSummary{
			TaskID:      t.ID,
			Title:       t.Title,
			DueOn:       t.DueOn,
			Priority:    t.Priority,
			DaysOverdue: int(today.Sub(t.DueOn).Hours() / 24),
		}
		if t.ContactID != nil {
			summary.ContactID = *t.ContactID
		}
		out = append(out, summary)
	}
	return out
}
