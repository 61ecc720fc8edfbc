package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// NextStepRepository manages the ordered checklist items per journal contact.
type NextStepRepository struct {
	db *database.DB
}

// NewNextStepRepository creates a new NextStepRepository.
func NewNextStepRepository(db *database.DB) *NextStepRepository {
	return &NextStepRepository{db: db}
}

// Create inserts a checklist item at the end of the list.
func (r *NextStepRepository) Create(ctx context.Context, step *NextStep) error {
	query := `
		INSERT INTO next_steps (journal_contact_id, title, due_on, position)
		VALUES ($1, $2, $3,
		        COALESCE((SELECT MAX(position) + 1 FROM next_steps WHERE journal_contact_id = $1), 1))
		RETURNING id, position, completed, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		step.JournalContactID,
		step.Title,
		step.DueOn,
	).Scan(&step.ID, &step.Position, &step.Completed, &step.CreatedAt, &step.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create next step")
	}
	return nil
}

// GetByID retrieves a checklist item.
func (r *NextStepRepository) GetByID(ctx context.Context, id string) (*NextStep, error) {
	query := `
		SELECT id, journal_contact_id, title, due_on, completed, completed_at, position, created_at, updated_at
		FROM next_steps
		WHERE id = $1
	`

	step, err := r.scanStep(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("next_step", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get next step")
	}
	return step, nil
}

// ListByJournalContact returns the checklist in explicit order.
func (r *NextStepRepository) ListByJournalContact(ctx context.Context, journalContactID string) ([]*NextStep, error) {
	query := `
		SELECT id, journal_contact_id, title, due_on, completed, completed_at, position, created_at, updated_at
		FROM next_steps
		WHERE journal_contact_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.Query(ctx, query, journalContactID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list next steps")
	}
	defer rows.Close()

	steps := make([]*NextStep, 0)
	for rows.Next() {
		step, err := r.scanStep(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan next step")
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Update edits the title, due date and position of a checklist item.
func (r *NextStepRepository) Update(ctx context.Context, id string, title *string, dueOn *time.Time, position *int) (*NextStep, error) {
	query := `
		UPDATE next_steps
		SET title      = COALESCE($2, title),
		    due_on     = COALESCE($3, due_on),
		    position   = COALESCE($4, position),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, journal_contact_id, title, due_on, completed, completed_at, position, created_at, updated_at
	`

	step, err := r.scanStep(r.db.QueryRow(ctx, query, id, title, dueOn, position))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("next_step", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to update next step")
	}
	return step, nil
}

// SetCompleted marks an item complete or reopens it, stamping completed_at
// accordingly.
func (r *NextStepRepository) SetCompleted(ctx context.Context, id string, completed bool) (*NextStep, error) {
	query := `
		UPDATE next_steps
		SET completed    = $2,
		    completed_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
		    updated_at   = NOW()
		WHERE id = $1
		RETURNING id, journal_contact_id, title, due_on, completed, completed_at, position, created_at, updated_at
	`

	step, err := r.scanStep(r.db.QueryRow(ctx, query, id, completed))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("next_step", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to complete next step")
	}
	return step, nil
}

// Delete removes a checklist item.
func (r *NextStepRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM next_steps WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete next step")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("next_step", id)
	}
	return nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type nextStepScanner interface {
	Scan(dest ...any) error
}

func (r *NextStepRepository) scanStep(sc nextStepScanner) (*NextStep, error) {
	s := &NextStep{}
	err := sc.Scan(
		&s.ID,
		&s.JournalContactID,
		&s.Title,
		&s.DueOn,
		&s.Completed,
		&s.CompletedAt,
		&s.Position,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
