package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// PledgeRepository handles pledge data operations.
type PledgeRepository struct {
	db *database.DB
}

// NewPledgeRepository creates a new pledge repository.
func NewPledgeRepository(db *database.DB) *PledgeRepository {
	return &PledgeRepository{db: db}
}

const pledgeColumns = `
	p.id, p.owner_id, p.contact_id, c.display_name,
	p.amount, p.frequency, p.status,
	p.start_on, p.end_on, p.last_fulfilled_on,
	p.notes, p.created_at, p.updated_at
`

// Create inserts a new pledge.
func (r *PledgeRepository) Create(ctx context.Context, pledge *Pledge) error {
	query := `
		INSERT INTO pledges (owner_id, contact_id, amount, frequency, status,
		                     start_on, end_on, notes)
		VALUES ($1, $2, $3, $4::pledge_frequency, $5::pledge_status, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		pledge.OwnerID,
		pledge.ContactID,
		pledge.Amount,
		pledge.Frequency,
		pledge.Status,
		pledge.StartOn,
		pledge.EndOn,
		pledge.Notes,
	).Scan(&pledge.ID, &pledge.CreatedAt, &pledge.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create pledge")
	}
	return nil
}

// GetByID retrieves a pledge by ID scoped to its owner.
func (r *PledgeRepository) GetByID(ctx context.Context, id, ownerID string) (*Pledge, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM pledges p
		JOIN contacts c ON c.id = p.contact_id
		WHERE p.id = $1 AND p.owner_id = $2
	`, pledgeColumns)

	pledge, err := r.scanPledge(r.db.QueryRow(ctx, query, id, ownerID))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("pledge", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get pledge")
	}
	return pledge, nil
}

// List retrieves pledges with optional contact and status filters.
func (r *PledgeRepository) List(ctx context.Context, ownerID string, contactID, status *string, limit, offset int) ([]*Pledge, int64, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM pledges p
		JOIN contacts c ON c.id = p.contact_id
		WHERE p.owner_id = $1
	`, pledgeColumns)
	countQuery := `SELECT COUNT(*) FROM pledges p WHERE p.owner_id = $1`

	args := []interface{}{ownerID}
	argCount := 2

	if contactID != nil {
		clause := fmt.Sprintf(" AND p.contact_id = $%d", argCount)
		query += clause
		countQuery += clause
		args = append(args, *contactID)
		argCount++
	}

	if status != nil {
		clause := fmt.Sprintf(" AND p.status = $%d::pledge_status", argCount)
		query += clause
		countQuery += clause
		args = append(args, *status)
		argCount++
	}

	query += " ORDER BY p.start_on DESC, p.created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	queryArgs := append(args, limit, offset)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count pledges")
	}

	rows, err := r.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list pledges")
	}
	defer rows.Close()

	pledges := make([]*Pledge, 0)
	for rows.Next() {
		pledge, err := r.scanPledge(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan pledge")
		}
		pledges = append(pledges, pledge)
	}
	return pledges, total, nil
}

// ListActive returns all active pledges for an owner, joined with contact
// identity, for the attention queues.
func (r *PledgeRepository) ListActive(ctx context.Context, ownerID string) ([]*Pledge, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM pledges p
		JOIN contacts c ON c.id = p.contact_id
		WHERE p.owner_id = $1 AND p.status = 'active'
		ORDER BY p.start_on ASC
	`, pledgeColumns)

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list active pledges")
	}
	defer rows.Close()

	pledges := make([]*Pledge, 0)
	for rows.Next() {
		pledge, err := r.scanPledge(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan pledge")
		}
		pledges = append(pledges, pledge)
	}
	return pledges, nil
}

// UpdateStatus sets the pledge status.
func (r *PledgeRepository) UpdateStatus(ctx context.Context, id, ownerID, status string) error {
	query := `
		UPDATE pledges
		SET status     = $3::pledge_status,
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, ownerID, status).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("pledge", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update pledge status")
	}
	return nil
}

// LinkGift associates a donation with the pledge and advances
// last_fulfilled_on to the donation's received date, in one transaction.
func (r *PledgeRepository) LinkGift(ctx context.Context, pledgeID, ownerID, donationID string) (time.Time, error) {
	var receivedOn time.Time

	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		linkQuery := `
			UPDATE donations
			SET pledge_id = $1
			WHERE id = $2 AND owner_id = $3
			RETURNING received_on
		`
		err := tx.QueryRow(ctx, linkQuery, pledgeID, donationID, ownerID).Scan(&receivedOn)
		if err == pgx.ErrNoRows {
			return errors.NotFound("donation", donationID)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to link donation")
		}

		fulfillQuery := `
			UPDATE pledges
			SET last_fulfilled_on = GREATEST(COALESCE(last_fulfilled_on, $3::date), $3::date),
			    updated_at        = NOW()
			WHERE id = $1 AND owner_id = $2
			RETURNING id
		`
		var returnedID string
		err = tx.QueryRow(ctx, fulfillQuery, pledgeID, ownerID, receivedOn).Scan(&returnedID)
		if err == pgx.ErrNoRows {
			return errors.NotFound("pledge", pledgeID)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to update pledge fulfillment")
		}
		return nil
	})

	return receivedOn, err
}

// TotalReceived sums the donations linked to a pledge.
func (r *PledgeRepository) TotalReceived(ctx context.Context, pledgeID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM donations
		WHERE pledge_id = $1
	`

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, pledgeID).Scan(&total); err != nil {
		return decimal.Zero, errors.Wrap(err, errors.ErrCodeInternal, "failed to sum pledge donations")
	}
	return total, nil
}

// Delete removes a pledge. Soft-cancel via status is preferred; hard delete
// exists for records created in error.
func (r *PledgeRepository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pledges WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete pledge")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("pledge", id)
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type pledgeScanner interface {
	Scan(dest ...any) error
}

func (r *PledgeRepository) scanPledge(sc pledgeScanner) (*Pledge, error) {
	p := &Pledge{}
	err := sc.Scan(
		&p.ID,
		&p.OwnerID,
		&p.ContactID,
		&p.ContactName,
		&p.Amount,
		&p.Frequency,
		&p.Status,
		&p.StartOn,
		&p.EndOn,
		&p.LastFulfilledOn,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
