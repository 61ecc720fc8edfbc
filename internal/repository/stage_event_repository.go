package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// StageEventRepository appends and reads the immutable per-stage event log.
// The table has a delete-prevention trigger so Append is the only mutation
// operation exposed.
type StageEventRepository struct {
	db *database.DB
}

// NewStageEventRepository creates a new StageEventRepository.
func NewStageEventRepository(db *database.DB) *StageEventRepository {
	return &StageEventRepository{db: db}
}

// Append inserts one stage event.
func (r *StageEventRepository) Append(ctx context.Context, event *StageEvent) error {
	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal event metadata")
		}
	}

	query := `
		INSERT INTO stage_events
		    (journal_contact_id, stage, event_type, notes, metadata, actor_id)
		VALUES ($1, $2::pipeline_stage, $3, $4, $5, $6)
		RETURNING id, occurred_at
	`

	err := r.db.QueryRow(ctx, query,
		event.JournalContactID,
		event.Stage,
		event.EventType,
		event.Notes,
		metadataJSON,
		event.ActorID,
	).Scan(&event.ID, &event.OccurredAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append stage event")
	}
	return nil
}

// ListByJournalContact returns the full event log for a contact's journal
// membership, oldest-first.
func (r *StageEventRepository) ListByJournalContact(ctx context.Context, journalContactID string) ([]*StageEvent, error) {
	query := `
		SELECT id, journal_contact_id, stage, event_type, notes, metadata, actor_id, occurred_at
		FROM stage_events
		WHERE journal_contact_id = $1
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.Query(ctx, query, journalContactID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get stage events")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ListByStage returns the events recorded at one stage for a membership,
// oldest-first.
func (r *StageEventRepository) ListByStage(ctx context.Context, journalContactID, stage string) ([]*StageEvent, error) {
	query := `
		SELECT id, journal_contact_id, stage, event_type, notes, metadata, actor_id, occurred_at
		FROM stage_events
		WHERE journal_contact_id = $1 AND stage = $2::pipeline_stage
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.Query(ctx, query, journalContactID, stage)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get stage events")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// StageSummaries returns the per-stage event count and last event time for a
// membership. Stages with no events are absent from the result.
func (r *StageEventRepository) StageSummaries(ctx context.Context, journalContactID string) ([]*StageSummary, error) {
	query := `
		SELECT stage, COUNT(*), MAX(occurred_at)
		FROM stage_events
		WHERE journal_contact_id = $1
		GROUP BY stage
	`

	rows, err := r.db.Query(ctx, query, journalContactID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get stage summaries")
	}
	defer rows.Close()

	summaries := make([]*StageSummary, 0)
	for rows.Next() {
		s := &StageSummary{}
		if err := rows.Scan(&s.Stage, &s.EventCount, &s.LastEventAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan stage summary")
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *StageEventRepository) scanRows(rows pgx.Rows) ([]*StageEvent, error) {
	var events []*StageEvent
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

type eventScanner interface {
	Scan(dest ...any) error
}

func (r *StageEventRepository) scanEvent(sc eventScanner) (*StageEvent, error) {
	event := &StageEvent{}
	var metadataJSON []byte

	err := sc.Scan(
		&event.ID,
		&event.JournalContactID,
		&event.Stage,
		&event.EventType,
		&event.Notes,
		&metadataJSON,
		&event.ActorID,
		&event.OccurredAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan stage event")
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal event metadata")
		}
	}

	return event, nil
}
