package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// DecisionRepository maintains the current decision per journal contact.
// Every mutation snapshots the prior state into decision_history inside the
// same transaction, so the ledger is always reconstructable from history
// plus the live row.
type DecisionRepository struct {
	db *database.DB
}

// NewDecisionRepository creates a new decision repository.
func NewDecisionRepository(db *database.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Create inserts a decision. The unique constraint on journal_contact_id
// enforces at most one live decision per membership.
func (r *DecisionRepository) Create(ctx context.Context, decision *Decision) error {
	query := `
		INSERT INTO decisions (journal_contact_id, amount, cadence, status)
		VALUES ($1, $2, $3::decision_cadence, $4::decision_status)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		decision.JournalContactID,
		decision.Amount,
		decision.Cadence,
		decision.Status,
	).Scan(&decision.ID, &decision.CreatedAt, &decision.UpdatedAt)

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Conflict("a decision already exists for this journal contact")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create decision")
	}
	return nil
}

// GetByID retrieves a decision by its primary key.
func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*Decision, error) {
	query := `
		SELECT id, journal_contact_id, amount, cadence, status, created_at, updated_at
		FROM decisions
		WHERE id = $1
	`

	decision, err := r.scanDecision(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("decision", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get decision")
	}
	return decision, nil
}

// GetByJournalContact returns the live decision for a membership, or nil
// when none exists.
func (r *DecisionRepository) GetByJournalContact(ctx context.Context, journalContactID string) (*Decision, error) {
	query := `
		SELECT id, journal_contact_id, amount, cadence, status, created_at, updated_at
		FROM decisions
		WHERE journal_contact_id = $1
	`

	decision, err := r.scanDecision(r.db.QueryRow(ctx, query, journalContactID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get decision")
	}
	return decision, nil
}

// UpdateWithHistory applies a partial update after snapshotting the current
// state into decision_history, all inside one transaction. The SELECT ...
// FOR UPDATE row lock serializes concurrent updates per decision: the loser
// blocks until the winner commits, then snapshots the winner's state — a
// history row always corresponds to an actual prior live state.
func (r *DecisionRepository) UpdateWithHistory(ctx context.Context, id string, update DecisionUpdate, changedBy *string) (*Decision, error) {
	var updated *Decision

	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		lockQuery := `
			SELECT id, journal_contact_id, amount, cadence, status, created_at, updated_at
			FROM decisions
			WHERE id = $1
			FOR UPDATE
		`
		current, err := r.scanDecision(tx.QueryRow(ctx, lockQuery, id))
		if err == pgx.ErrNoRows {
			return errors.NotFound("decision", id)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to lock decision")
		}

		historyQuery := `
			INSERT INTO decision_history
			    (decision_id, journal_contact_id, amount, cadence, status, changed_by)
			VALUES ($1, $2, $3, $4::decision_cadence, $5::decision_status, $6)
		`
		if _, err := tx.Exec(ctx, historyQuery,
			current.ID,
			current.JournalContactID,
			current.Amount,
			current.Cadence,
			current.Status,
			changedBy,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to write decision history")
		}

		updateQuery := `
			UPDATE decisions
			SET amount     = COALESCE($2, amount),
			    cadence    = COALESCE($3::decision_cadence, cadence),
			    status     = COALESCE($4::decision_status, status),
			    updated_at = NOW()
			WHERE id = $1
			RETURNING id, journal_contact_id, amount, cadence, status, created_at, updated_at
		`
		updated, err = r.scanDecision(tx.QueryRow(ctx, updateQuery,
			id,
			update.Amount,
			update.Cadence,
			update.Status,
		))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to update decision")
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the live decision. History rows reference the decision by
// id only and persist for audit.
func (r *DecisionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM decisions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete decision")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("decision", id)
	}
	return nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type decisionScanner interface {
	Scan(dest ...any) error
}

func (r *DecisionRepository) scanDecision(sc decisionScanner) (*Decision, error) {
	d := &Decision{}
	err := sc.Scan(
		&d.ID,
		&d.JournalContactID,
		&d.Amount,
		&d.Cadence,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
