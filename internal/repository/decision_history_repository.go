package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// DecisionHistoryRepository reads the immutable decision snapshot log.
// Writes happen only inside DecisionRepository.UpdateWithHistory, in the
// same transaction as the mutation they precede; the table has a
// delete-prevention trigger.
type DecisionHistoryRepository struct {
	db *database.DB
}

// NewDecisionHistoryRepository creates a new DecisionHistoryRepository.
func NewDecisionHistoryRepository(db *database.DB) *DecisionHistoryRepository {
	return &DecisionHistoryRepository{db: db}
}

// ListByDecisionID returns all snapshots for a decision, oldest-first. Works
// for deleted decisions too — history outlives the live row.
func (r *DecisionHistoryRepository) ListByDecisionID(ctx context.Context, decisionID string) ([]*DecisionHistoryEntry, error) {
	query := `
		SELECT id, decision_id, journal_contact_id, amount, cadence, status, changed_by, snapshot_at
		FROM decision_history
		WHERE decision_id = $1
		ORDER BY snapshot_at ASC
	`

	rows, err := r.db.Query(ctx, query, decisionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get decision history")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ListByJournalContact returns every snapshot across all decisions a
// membership has had, oldest-first.
func (r *DecisionHistoryRepository) ListByJournalContact(ctx context.Context, journalContactID string) ([]*DecisionHistoryEntry, error) {
	query := `
		SELECT id, decision_id, journal_contact_id, amount, cadence, status, changed_by, snapshot_at
		FROM decision_history
		WHERE journal_contact_id = $1
		ORDER BY snapshot_at ASC
	`

	rows, err := r.db.Query(ctx, query, journalContactID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get decision history")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *DecisionHistoryRepository) scanRows(rows pgx.Rows) ([]*DecisionHistoryEntry, error) {
	var entries []*DecisionHistoryEntry
	for rows.Next() {
		entry := &DecisionHistoryEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.DecisionID,
			&entry.JournalContactID,
			&entry.Amount,
			&entry.Cadence,
			&entry.Status,
			&entry.ChangedBy,
			&entry.SnapshotAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan decision history entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
