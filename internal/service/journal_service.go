package service

import (
	"context"
	"time"

	"github.com/kindling-crm/be-donor-pipeline/internal/client"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
	"github.com/kindling-crm/be-donor-pipeline/internal/logger"
	"github.com/kindling-crm/be-donor-pipeline/internal/pipeline"
	"github.com/kindling-crm/be-donor-pipeline/internal/repository"
)

// JournalStore is the journal/membership persistence interface. Both
// get-or-create methods must be idempotent under concurrent calls.
type JournalStore interface {
	GetOrCreateDefault(ctx context.Context, ownerID string) (*repository.Journal, error)
	GetByID(ctx context.Context, id, ownerID string) (*repository.Journal, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*repository.Journal, error)
	GetOrCreateContact(ctx context.Context, journalID, contactID string) (*repository.JournalContact, error)
	GetContactByID(ctx context.Context, id string) (*repository.JournalContact, error)
	ListContacts(ctx context.Context, journalID string) ([]*repository.JournalContact, error)
}

// StageEventStore is the append-only stage event log interface.
type StageEventStore interface {
	Append(ctx context.Context, event *repository.StageEvent) error
	ListByJournalContact(ctx context.Context, journalContactID string) ([]*repository.StageEvent, error)
	StageSummaries(ctx context.Context, journalContactID string) ([]*repository.StageSummary, error)
}

// NextStepStore is the checklist persistence interface.
type NextStepStore interface {
	Create(ctx context.Context, step *repository.NextStep) error
	GetByID(ctx context.Context, id string) (*repository.NextStep, error)
	ListByJournalContact(ctx context.Context, journalContactID string) ([]*repository.NextStep, error)
	Update(ctx context.Context, id string, title *string, dueOn *time.Time, position *int) (*repository.NextStep, error)
	SetCompleted(ctx context.Context, id string, completed bool) (*repository.NextStep, error)
	Delete(ctx context.Context, id string) error
}

// JournalService records engagement actions and assembles the pipeline board.
// Logging an interaction never dead-ends: missing journals and memberships
// are created on the way in, not reported as errors.
type JournalService struct {
	journals  JournalStore
	events    StageEventStore
	nextSteps NextStepStore
	publisher *client.NotificationPublisher
	log       *logger.Logger
}

// NewJournalService creates a new journal service.
func NewJournalService(journals JournalStore, events StageEventStore, nextSteps NextStepStore, publisher *client.NotificationPublisher, log *logger.Logger) *JournalService {
	return &JournalService{
		journals:  journals,
		events:    events,
		nextSteps: nextSteps,
		publisher: publisher,
		log:       log,
	}
}

// RecordEventRequest represents a record stage event request.
type RecordEventRequest struct {
	OwnerID   string                 `json:"owner_id"`
	JournalID string                 `json:"journal_id,omitempty"`
	ContactID string                 `json:"contact_id"`
	Stage     string                 `json:"stage"`
	EventType string                 `json:"event_type"`
	Notes     *string                `json:"notes,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RecordEvent validates and appends a stage event, auto-creating the
// journal membership (and, when the owner has no journal at all, a default
// journal) so the write always has somewhere to land.
func (s *JournalService) RecordEvent(ctx context.Context, req *RecordEventRequest) (*repository.StageEvent, error) {
	if req.OwnerID == "" {
		return nil, errors.InvalidInput("owner_id", "owner is required")
	}
	if req.ContactID == "" {
		return nil, errors.InvalidInput("contact_id", "contact is required")
	}

	stage, err := pipeline.ParseStage(req.Stage)
	if err != nil {
		return nil, err
	}
	eventType, err := pipeline.ParseEventType(req.EventType)
	if err != nil {
		return nil, err
	}

	var journal *repository.Journal
	if req.JournalID != "" {
		journal, err = s.journals.GetByID(ctx, req.JournalID, req.OwnerID)
	} else {
		journal, err = s.journals.GetOrCreateDefault(ctx, req.OwnerID)
	}
	if err != nil {
		return nil, err
	}

	jc, err := s.journals.GetOrCreateContact(ctx, journal.ID, req.ContactID)
	if err != nil {
		return nil, err
	}

	event := &repository.StageEvent{
		JournalContactID: jc.ID,
		Stage:            string(stage),
		EventType:        string(eventType),
		Notes:            req.Notes,
		Metadata:         req.Metadata,
		ActorID:          req.OwnerID,
	}
	if err := s.events.Append(ctx, event); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("journal_contact_id", jc.ID).
		Str("stage", event.Stage).
		Str("event_type", event.EventType).
		Msg("Stage event recorded")

	s.publisher.PublishDonorEvent(ctx, "stage_event_recorded", "stage_event", event.ID, req.OwnerID, req.ContactID, map[string]interface{}{
		"stage":      event.Stage,
		"event_type": event.EventType,
	})

	return event, nil
}

// ListEvents returns the full event log for a membership, oldest-first.
func (s *JournalService) ListEvents(ctx context.Context, journalContactID string) ([]*repository.StageEvent, error) {
	if _, err := s.journals.GetContactByID(ctx, journalContactID); err != nil {
		return nil, err
	}
	return s.events.ListByJournalContact(ctx, journalContactID)
}

// CheckTransition classifies a prospective move to targetStage for a
// membership. Purely advisory: the result is for the UI to warn with,
// never to block.
func (s *JournalService) CheckTransition(ctx context.Context, journalContactID, targetStage string) (pipeline.TransitionCheck, error) {
	target, err := pipeline.ParseStage(targetStage)
	if err != nil {
		return pipeline.TransitionCheck{}, err
	}

	summaries, err := s.events.StageSummaries(ctx, journalContactID)
	if err != nil {
		return pipeline.TransitionCheck{}, err
	}

	currentOrder := currentStageOrder(summaries)
	return pipeline.CheckTransition(currentOrder, target), nil
}

// StageLane is one stage cell on the board.
type StageLane struct {
	Stage       string             `json:"stage"`
	Order       int                `json:"order"`
	EventCount  int                `json:"event_count"`
	LastEventAt *time.Time         `json:"last_event_at,omitempty"`
	Freshness   pipeline.Freshness `json:"freshness"`
}

// StageBoard is the six-lane pipeline view for one membership.
type StageBoard struct {
	JournalContactID string      `json:"journal_contact_id"`
	ContactID        string      `json:"contact_id"`
	ContactName      string      `json:"contact_name"`
	CurrentStage     *string     `json:"current_stage,omitempty"`
	Lanes            []StageLane `json:"lanes"`
}

// Board assembles the pipeline board for a membership as of today. The
// current stage is derived from the event log, never stored.
func (s *JournalService) Board(ctx context.Context, journalContactID string, today time.Time) (*StageBoard, error) {
	jc, err := s.journals.GetContactByID(ctx, journalContactID)
	if err != nil {
		return nil, err
	}

	summaries, err := s.events.StageSummaries(ctx, journalContactID)
	if err != nil {
		return nil, err
	}

	byStage := make(map[string]*repository.StageSummary, len(summaries))
	for _, sum := range summaries {
		byStage[sum.Stage] = sum
	}

	board := &StageBoard{
		JournalContactID: jc.ID,
		ContactID:        jc.ContactID,
		ContactName:      jc.ContactName,
		Lanes:            make([]StageLane, 0, len(pipeline.Stages())),
	}

	stagesWithEvents := make([]pipeline.Stage, 0, len(summaries))
	for _, stage := range pipeline.Stages() {
		lane := StageLane{
			Stage:     string(stage),
			Order:     stage.Order(),
			Freshness: pipeline.FreshnessNone,
		}
		if sum, ok := byStage[string(stage)]; ok {
			lane.EventCount = sum.EventCount
			lane.LastEventAt = sum.LastEventAt
			lane.Freshness = pipeline.Classify(sum.LastEventAt, today)
			stagesWithEvents = append(stagesWithEvents, stage)
		}
		board.Lanes = append(board.Lanes, lane)
	}

	if current, ok := pipeline.CurrentStage(stagesWithEvents); ok {
		name := string(current)
		board.CurrentStage = &name
	}
	return board, nil
}

// ── Next steps ────────────────────────────────────────────────────────────────

// CreateNextStepRequest represents a create next step request.
type CreateNextStepRequest struct {
	JournalContactID string  `json:"journal_contact_id"`
	Title            string  `json:"title"`
	DueOn            *string `json:"due_on,omitempty"`
}

// AddNextStep appends a checklist item for a membership.
func (s *JournalService) AddNextStep(ctx context.Context, req *CreateNextStepRequest) (*repository.NextStep, error) {
	if req.Title == "" {
		return nil, errors.InvalidInput("title", "title is required")
	}
	if _, err := s.journals.GetContactByID(ctx, req.JournalContactID); err != nil {
		return nil, err
	}

	var dueOn *time.Time
	if req.DueOn != nil {
		due, err := time.Parse("2006-01-02", *req.DueOn)
		if err != nil {
			return nil, errors.InvalidInput("due_on", "invalid date format, expected YYYY-MM-DD")
		}
		dueOn = &due
	}

	step := &repository.NextStep{
		JournalContactID: req.JournalContactID,
		Title:            req.Title,
		DueOn:            dueOn,
	}
	if err := s.nextSteps.Create(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

// ListNextSteps returns a membership's checklist in order.
func (s *JournalService) ListNextSteps(ctx context.Context, journalContactID string) ([]*repository.NextStep, error) {
	return s.nextSteps.ListByJournalContact(ctx, journalContactID)
}

// UpdateNextStep edits a checklist item.
func (s *JournalService) UpdateNextStep(ctx context.Context, id string, title *string, dueOn *time.Time, position *int) (*repository.NextStep, error) {
	if title != nil && *title == "" {
		return nil, errors.InvalidInput("title", "title cannot be empty")
	}
	return s.nextSteps.Update(ctx, id, title, dueOn, position)
}

// CompleteNextStep marks an item done (or reopens it).
func (s *JournalService) CompleteNextStep(ctx context.Context, id string, completed bool) (*repository.NextStep, error) {
	return s.nextSteps.SetCompleted(ctx, id, completed)
}

// DeleteNextStep removes a checklist item.
func (s *JournalService) DeleteNextStep(ctx context.Context, id string) error {
	return s.nextSteps.Delete(ctx, id)
}

// currentStageOrder derives the highest stage with events, or nil when the
// membership has no events yet.
func currentStageOrder(summaries []*repository.StageSummary) *int {
	stages := make([]pipeline.Stage, 0, len(summaries))
	for _, sum := range summaries {
		stages = append(stages, pipeline.Stage(sum.Stage))
	}
	current, ok := pipeline.CurrentStage(stages)
	if !ok {
		return nil
	}
	order := current.Order()
	return &order
}
