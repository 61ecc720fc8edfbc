package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
	"github.com/kindling-crm/be-donor-pipeline/internal/pipeline"
	"github.com/kindling-crm/be-donor-pipeline/internal/repository"
)

// fakeJournalStore is an in-memory JournalStore with idempotent
// get-or-create semantics.
type fakeJournalStore struct {
	journals map[string]*repository.Journal
	contacts map[string]*repository.JournalContact
	nextID   int
}

func newFakeJournalStore() *fakeJournalStore {
	return &fakeJournalStore{
		journals: make(map[string]*repository.Journal),
		contacts: make(map[string]*repository.JournalContact),
	}
}

func (f *fakeJournalStore) GetOrCreateDefault(_ context.Context, ownerID string) (*repository.Journal, error) {
	for _, j := range f.journals {
		if j.OwnerID == ownerID && j.IsDefault {
			return j, nil
		}
	}
	f.nextID++
	j := &repository.Journal{
		ID:        fmt.Sprintf("journal-%d", f.nextID),
		OwnerID:   ownerID,
		Name:      "My Donors",
		IsDefault: true,
	}
	f.journals[j.ID] = j
	return j, nil
}

func (f *fakeJournalStore) GetByID(_ context.Context, id, ownerID string) (*repository.Journal, error) {
	j, ok := f.journals[id]
	if !ok || j.OwnerID != ownerID {
		return nil, errors.NotFound("journal", id)
	}
	return j, nil
}

func (f *fakeJournalStore) ListByOwner(_ context.Context, ownerID string) ([]*repository.Journal, error) {
	out := make([]*repository.Journal, 0)
	for _, j := range f.journals {
		if j.OwnerID == ownerID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJournalStore) GetOrCreateContact(_ context.Context, journalID, contactID string) (*repository.JournalContact, error) {
	for _, jc := range f.contacts {
		if jc.JournalID == journalID && jc.ContactID == contactID {
			return jc, nil
		}
	}
	f.nextID++
	jc := &repository.JournalContact{
		ID:          fmt.Sprintf("jc-%d", f.nextID),
		JournalID:   journalID,
		ContactID:   contactID,
		ContactName: "Test Contact",
	}
	f.contacts[jc.ID] = jc
	return jc, nil
}

func (f *fakeJournalStore) GetContactByID(_ context.Context, id string) (*repository.JournalContact, error) {
	jc, ok := f.contacts[id]
	if !ok {
		return nil, errors.NotFound("journal contact", id)
	}
	return jc, nil
}

func (f *fakeJournalStore) ListContacts(_ context.Context, journalID string) ([]*repository.JournalContact, error) {
	out := make([]*repository.JournalContact, 0)
	for _, jc := range f.contacts {
		if jc.JournalID == journalID {
			out = append(out, jc)
		}
	}
	return out, nil
}

// fakeStageEventStore is an in-memory append-only event log.
type fakeStageEventStore struct {
	events []*repository.StageEvent
	nextID int
}

func (f *fakeStageEventStore) Append(_ context.Context, event *repository.StageEvent) error {
	f.nextID++
	event.ID = fmt.Sprintf("event-%d", f.nextID)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	cp := *event
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeStageEventStore) ListByJournalContact(_ context.Context, journalContactID string) ([]*repository.StageEvent, error) {
	out := make([]*repository.StageEvent, 0)
	for _, e := range f.events {
		if e.JournalContactID == journalContactID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStageEventStore) StageSummaries(_ context.Context, journalContactID string) ([]*repository.StageSummary, error) {
	byStage := make(map[string]*repository.StageSummary)
	for _, e := range f.events {
		if e.JournalContactID != journalContactID {
			continue
		}
		sum, ok := byStage[e.Stage]
		if !ok {
			sum = &repository.StageSummary{Stage: e.Stage}
			byStage[e.Stage] = sum
		}
		sum.EventCount++
		occurred := e.OccurredAt
		if sum.LastEventAt == nil || occurred.After(*sum.LastEventAt) {
			sum.LastEventAt = &occurred
		}
	}
	out := make([]*repository.StageSummary, 0, len(byStage))
	for _, sum := range byStage {
		out = append(out, sum)
	}
	return out, nil
}

// fakeNextStepStore is an in-memory NextStepStore.
type fakeNextStepStore struct {
	steps  map[string]*repository.NextStep
	nextID int
}

func newFakeNextStepStore() *fakeNextStepStore {
	return &fakeNextStepStore{steps: make(map[string]*repository.NextStep)}
}

func (f *fakeNextStepStore) Create(_ context.Context, step *repository.NextStep) error {
	f.nextID++
	step.ID = fmt.Sprintf("step-%d", f.nextID)
	step.Position = f.nextID
	f.steps[step.ID] = step
	return nil
}

func (f *fakeNextStepStore) GetByID(_ context.Context, id string) (*repository.NextStep, error) {
	step, ok := f.steps[id]
	if !ok {
		return nil, errors.NotFound("next step", id)
	}
	return step, nil
}

func (f *fakeNextStepStore) ListByJournalContact(_ context.Context, journalContactID string) ([]*repository.NextStep, error) {
	out := make([]*repository.NextStep, 0)
	for _, step := range f.steps {
		if step.JournalContactID == journalContactID {
			out = append(out, step)
		}
	}
	return out, nil
}

func (f *fakeNextStepStore) Update(_ context.Context, id string, title *string, dueOn *time.Time, position *int) (*repository.NextStep, error) {
	step, ok := f.steps[id]
	if !ok {
		return nil, errors.NotFound("next step", id)
	}
	if title != nil {
		step.Title = *title
	}
	if dueOn != nil {
		step.DueOn = dueOn
	}
	if position != nil {
		step.Position = *position
	}
	return step, nil
}

func (f *fakeNextStepStore) SetCompleted(_ context.Context, id string, completed bool) (*repository.NextStep, error) {
	step, ok := f.steps[id]
	if !ok {
		return nil, errors.NotFound("next step", id)
	}
	step.Completed = completed
	if completed {
		now := time.Now().UTC()
		step.CompletedAt = &now
	} else {
		step.CompletedAt = nil
	}
	return step, nil
}

func (f *fakeNextStepStore) Delete(_ context.Context, id string) error {
	if _, ok := f.steps[id]; !ok {
		return errors.NotFound("next step", id)
	}
	delete(f.steps, id)
	return nil
}

func newJournalService() (*JournalService, *fakeJournalStore, *fakeStageEventStore) {
	journals := newFakeJournalStore()
	events := &fakeStageEventStore{}
	svc := NewJournalService(journals, events, newFakeNextStepStore(), testPublisher(), testLogger())
	return svc, journals, events
}

func TestRecordEventAutoProvisions(t *testing.T) {
	svc, journals, events := newJournalService()

	event, err := svc.RecordEvent(context.Background(), &RecordEventRequest{
		OwnerID:   "owner-1",
		ContactID: "contact-1",
		Stage:     "contact",
		EventType: "called",
	})
	if err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	if len(journals.journals) != 1 {
		t.Fatalf("journal count = %d, want 1 (default auto-created)", len(journals.journals))
	}
	for _, j := range journals.journals {
		if !j.IsDefault {
			t.Errorf("auto-created journal IsDefault = false, want true")
		}
	}
	if len(journals.contacts) != 1 {
		t.Fatalf("membership count = %d, want 1", len(journals.contacts))
	}
	if event.Stage != "contact" || event.EventType != "called" {
		t.Errorf("event = %s/%s, want contact/called", event.Stage, event.EventType)
	}
	if len(events.events) != 1 {
		t.Errorf("event log length = %d, want 1", len(events.events))
	}
}

func TestRecordEventIdempotentProvisioning(t *testing.T) {
	svc, journals, events := newJournalService()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordEvent(context.Background(), &RecordEventRequest{
			OwnerID:   "owner-1",
			ContactID: "contact-1",
			Stage:     "meet",
			EventType: "met",
		})
		if err != nil {
			t.Fatalf("RecordEvent() #%d error = %v", i, err)
		}
	}

	if len(journals.journals) != 1 {
		t.Errorf("journal count = %d, want 1 after repeated events", len(journals.journals))
	}
	if len(journals.contacts) != 1 {
		t.Errorf("membership count = %d, want 1 after repeated events", len(journals.contacts))
	}
	if len(events.events) != 3 {
		t.Errorf("event log length = %d, want 3", len(events.events))
	}
}

func TestRecordEventRejectsUnknownStageAndType(t *testing.T) {
	svc, _, _ := newJournalService()

	_, err := svc.RecordEvent(context.Background(), &RecordEventRequest{
		OwnerID: "owner-1", ContactID: "contact-1", Stage: "negotiate", EventType: "called",
	})
	if errors.CodeOf(err) != errors.ErrCodeValidation {
		t.Errorf("unknown stage error = %v, want validation error", err)
	}

	_, err = svc.RecordEvent(context.Background(), &RecordEventRequest{
		OwnerID: "owner-1", ContactID: "contact-1", Stage: "contact", EventType: "faxed",
	})
	if errors.CodeOf(err) != errors.ErrCodeValidation {
		t.Errorf("unknown event type error = %v, want validation error", err)
	}
}

func TestRecordEventExplicitJournalWrongOwner(t *testing.T) {
	svc, journals, _ := newJournalService()

	j, err := journals.GetOrCreateDefault(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("GetOrCreateDefault() error = %v", err)
	}

	_, err = svc.RecordEvent(context.Background(), &RecordEventRequest{
		OwnerID: "owner-2", JournalID: j.ID, ContactID: "contact-1",
		Stage: "contact", EventType: "called",
	})
	if errors.CodeOf(err) != errors.ErrCodeNotFound {
		t.Errorf("foreign journal error = %v, want not found", err)
	}
}

func TestCheckTransitionAdvisory(t *testing.T) {
	svc, _, _ := newJournalService()

	event, err := svc.RecordEvent(context.Background(), &RecordEventRequest{
		OwnerID: "owner-1", ContactID: "contact-1", Stage: "contact", EventType: "called",
	})
	if err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	check, err := svc.CheckTransition(context.Background(), event.JournalContactID, "meet")
	if err != nil {
		t.Fatalf("CheckTransition() error = %v", err)
	}
	if !check.Sequential {
		t.Error("contact→meet Sequential = false, want true")
	}

	check, err = svc.CheckTransition(context.Background(), event.JournalContactID, "decision")
	if err != nil {
		t.Fatalf("CheckTransition() error = %v", err)
	}
	if check.Sequential {
		t.Error("contact→decision Sequential = true, want false")
	}
	want := []pipeline.Stage{pipeline.StageMeet, pipeline.StageClose}
	if len(check.SkippedStages) != len(want) {
		t.Fatalf("SkippedStages = %v, want %v", check.SkippedStages, want)
	}
	for i, stage := range want {
		if check.SkippedStages[i] != stage {
			t.Errorf("SkippedStages[%d] = %s, want %s", i, check.SkippedStages[i], stage)
		}
	}
}

func TestBoardDerivesCurrentStage(t *testing.T) {
	svc, _, _ := newJournalService()
	today := date(2026, time.June, 15)

	var jcID string
	for _, rec := range []struct{ stage, eventType string }{
		{"contact", "called"},
		{"contact", "emailed"},
		{"meet", "met"},
		{"close", "ask_made"},
	} {
		event, err := svc.RecordEvent(context.Background(), &RecordEventRequest{
			OwnerID: "owner-1", ContactID: "contact-1",
			Stage: rec.stage, EventType: rec.eventType,
		})
		if err != nil {
			t.Fatalf("RecordEvent(%s) error = %v", rec.stage, err)
		}
		jcID = event.JournalContactID
	}

	board, err := svc.Board(context.Background(), jcID, today)
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}

	if len(board.Lanes) != 6 {
		t.Fatalf("lane count = %d, want 6", len(board.Lanes))
	}
	if board.CurrentStage == nil || *board.CurrentStage != "close" {
		t.Errorf("CurrentStage = %v, want close", board.CurrentStage)
	}

	counts := map[string]int{}
	for _, lane := range board.Lanes {
		counts[lane.Stage] = lane.EventCount
	}
	if counts["contact"] != 2 || counts["meet"] != 1 || counts["close"] != 1 {
		t.Errorf("lane counts = %v, want contact:2 meet:1 close:1", counts)
	}
	for _, lane := range board.Lanes {
		if lane.Stage == "decision" || lane.Stage == "thank" || lane.Stage == "next_steps" {
			if lane.Freshness != pipeline.FreshnessNone {
				t.Errorf("empty lane %s Freshness = %s, want none", lane.Stage, lane.Freshness)
			}
		}
	}
}

func TestBoardEmptyLog(t *testing.T) {
	svc, journals, _ := newJournalService()

	jc, err := journals.GetOrCreateContact(context.Background(), "journal-x", "contact-1")
	if err != nil {
		t.Fatalf("GetOrCreateContact() error = %v", err)
	}

	board, err := svc.Board(context.Background(), jc.ID, date(2026, time.June, 15))
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if board.CurrentStage != nil {
		t.Errorf("CurrentStage = %v, want nil for empty log", *board.CurrentStage)
	}
}

func TestNextStepLifecycle(t *testing.T) {
	svc, journals, _ := newJournalService()

	jc, err := journals.GetOrCreateContact(context.Background(), "journal-x", "contact-1")
	if err != nil {
		t.Fatalf("GetOrCreateContact() error = %v", err)
	}

	step, err := svc.AddNextStep(context.Background(), &CreateNextStepRequest{
		JournalContactID: jc.ID,
		Title:            "Send annual report",
		DueOn:            strPtr("2026-07-01"),
	})
	if err != nil {
		t.Fatalf("AddNextStep() error = %v", err)
	}
	if step.DueOn == nil || !step.DueOn.Equal(date(2026, time.July, 1)) {
		t.Errorf("DueOn = %v, want 2026-07-01", step.DueOn)
	}

	done, err := svc.CompleteNextStep(context.Background(), step.ID, true)
	if err != nil {
		t.Fatalf("CompleteNextStep() error = %v", err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Errorf("Completed = %v CompletedAt = %v, want true and set", done.Completed, done.CompletedAt)
	}

	reopened, err := svc.CompleteNextStep(context.Background(), step.ID, false)
	if err != nil {
		t.Fatalf("CompleteNextStep(reopen) error = %v", err)
	}
	if reopened.Completed || reopened.CompletedAt != nil {
		t.Errorf("reopened Completed = %v CompletedAt = %v, want false and nil", reopened.Completed, reopened.CompletedAt)
	}

	_, err = svc.AddNextStep(context.Background(), &CreateNextStepRequest{JournalContactID: jc.ID})
	if errors.CodeOf(err) != errors.ErrCodeValidation {
		t.Errorf("AddNextStep() without title error = %v, want validation error", err)
	}

	empty := ""
	_, err = svc.UpdateNextStep(context.Background(), step.ID, &empty, nil, nil)
	if errors.CodeOf(err) != errors.ErrCodeValidation {
		t.Errorf("UpdateNextStep() with empty title error = %v, want validation error", err)
	}
}
