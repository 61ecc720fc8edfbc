package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// ActivityRepository provides the read-only collaborator facts the attention
// aggregator consumes: donation activity, thank-you state and overdue tasks.
// Contacts, donations and tasks are written by their own collaborators; this
// repository only reads them.
type ActivityRepository struct {
	db *database.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *database.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// DonorActivity returns the per-contact giving and ask rollup for an owner.
// Asks are counted from ask_made stage events so a contact with zero gifts
// and zero asks can be told apart from a lapsed giver.
func (r *ActivityRepository) DonorActivity(ctx context.Context, ownerID string) ([]*DonorActivity, error) {
	query := `
		SELECT c.id, c.display_name,
		       MAX(d.received_on),
		       COUNT(d.id),
		       (SELECT COUNT(*)
		        FROM stage_events se
		        JOIN journal_contacts jc ON jc.id = se.journal_contact_id
		        WHERE jc.contact_id = c.id AND se.event_type = 'ask_made')
		FROM contacts c
		LEFT JOIN donations d ON d.contact_id = c.id
		WHERE c.owner_id = $1
		GROUP BY c.id, c.display_name
		ORDER BY c.display_name ASC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get donor activity")
	}
	defer rows.Close()

	activity := make([]*DonorActivity, 0)
	for rows.Next() {
		a := &DonorActivity{}
		if err := rows.Scan(&a.ContactID, &a.ContactName, &a.LastGiftOn, &a.GiftCount, &a.AskCount); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan donor activity")
		}
		activity = append(activity, a)
	}
	return activity, nil
}

// ListUnthanked returns donations that have not been acknowledged yet,
// oldest-first.
func (r *ActivityRepository) ListUnthanked(ctx context.Context, ownerID string) ([]*Donation, error) {
	query := `
		SELECT d.id, d.owner_id, d.contact_id, c.display_name,
		       d.pledge_id, d.amount, d.received_on, d.thanked, d.thanked_at, d.created_at
		FROM donations d
		JOIN contacts c ON c.id = d.contact_id
		WHERE d.owner_id = $1 AND NOT d.thanked
		ORDER BY d.received_on ASC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list unthanked donations")
	}
	defer rows.Close()

	return r.scanDonations(rows)
}

// GetDonation retrieves one donation scoped to its owner.
func (r *ActivityRepository) GetDonation(ctx context.Context, id, ownerID string) (*Donation, error) {
	query := `
		SELECT d.id, d.owner_id, d.contact_id, c.display_name,
		       d.pledge_id, d.amount, d.received_on, d.thanked, d.thanked_at, d.created_at
		FROM donations d
		JOIN contacts c ON c.id = d.contact_id
		WHERE d.id = $1 AND d.owner_id = $2
	`

	d := &Donation{}
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&d.ID, &d.OwnerID, &d.ContactID, &d.ContactName,
		&d.PledgeID, &d.Amount, &d.ReceivedOn, &d.Thanked, &d.ThankedAt, &d.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("donation", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get donation")
	}
	return d, nil
}

// ListOverdueTasks returns incomplete tasks due strictly before today,
// most overdue first.
func (r *ActivityRepository) ListOverdueTasks(ctx context.Context, ownerID string, today time.Time) ([]*TaskSummary, error) {
	query := `
		SELECT id, contact_id, title, due_on, priority
		FROM tasks
		WHERE owner_id = $1 AND NOT completed AND due_on < $2
		ORDER BY due_on ASC
	`

	rows, err := r.db.Query(ctx, query, ownerID, today)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list overdue tasks")
	}
	defer rows.Close()

	tasks := make([]*TaskSummary, 0)
	for rows.Next() {
		t := &TaskSummary{}
		if err := rows.Scan(&t.ID, &t.ContactID, &t.Title, &t.DueOn, &t.Priority); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *ActivityRepository) scanDonations(rows pgx.Rows) ([]*Donation, error) {
	donations := make([]*Donation, 0)
	for rows.Next() {
		d := &Donation{}
		err := rows.Scan(
			&d.ID, &d.OwnerID, &d.ContactID, &d.ContactName,
			&d.PledgeID, &d.Amount, &d.ReceivedOn, &d.Thanked, &d.ThankedAt, &d.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan donation")
		}
		donations = append(donations, d)
	}
	return donations, nil
}
