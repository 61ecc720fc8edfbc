package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kindling-crm/be-donor-pipeline/internal/database"
	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// JournalRepository manages journals and journal-contact memberships. The
// get-or-create paths use conflict-tolerant inserts so concurrent first-time
// writes never create duplicates.
type JournalRepository struct {
	db *database.DB
}

// NewJournalRepository creates a new journal repository.
func NewJournalRepository(db *database.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// GetOrCreateDefault returns the owner's default journal, creating it when
// the owner has none yet. Idempotent under concurrency: the partial unique
// index on (owner_id) WHERE is_default makes the insert a no-op for losers.
func (r *JournalRepository) GetOrCreateDefault(ctx context.Context, ownerID string) (*Journal, error) {
	insert := `
		INSERT INTO journals (owner_id, name, is_default)
		VALUES ($1, 'My Donors', TRUE)
		ON CONFLICT (owner_id) WHERE is_default DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, ownerID); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create default journal")
	}

	query := `
		SELECT id, owner_id, name, goal_amount, is_default, created_at, updated_at
		FROM journals
		WHERE owner_id = $1 AND is_default
	`
	journal, err := r.scanJournal(r.db.QueryRow(ctx, query, ownerID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get default journal")
	}
	return journal, nil
}

// GetByID retrieves a journal scoped to its owner.
func (r *JournalRepository) GetByID(ctx context.Context, id, ownerID string) (*Journal, error) {
	query := `
		SELECT id, owner_id, name, goal_amount, is_default, created_at, updated_at
		FROM journals
		WHERE id = $1 AND owner_id = $2
	`
	journal, err := r.scanJournal(r.db.QueryRow(ctx, query, id, ownerID))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("journal", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get journal")
	}
	return journal, nil
}

// ListByOwner returns all of an owner's journals, default first.
func (r *JournalRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Journal, error) {
	query := `
		SELECT id, owner_id, name, goal_amount, is_default, created_at, updated_at
		FROM journals
		WHERE owner_id = $1
		ORDER BY is_default DESC, created_at ASC
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list journals")
	}
	defer rows.Close()

	journals := make([]*Journal, 0)
	for rows.Next() {
		journal, err := r.scanJournal(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan journal")
		}
		journals = append(journals, journal)
	}
	return journals, nil
}

// GetOrCreateContact returns the membership of a contact in a journal,
// creating it if absent. Idempotent via the unique (journal_id, contact_id)
// constraint.
func (r *JournalRepository) GetOrCreateContact(ctx context.Context, journalID, contactID string) (*JournalContact, error) {
	insert := `
		INSERT INTO journal_contacts (journal_id, contact_id)
		VALUES ($1, $2)
		ON CONFLICT (journal_id, contact_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, journalID, contactID); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create journal contact")
	}

	query := `
		SELECT jc.id, jc.journal_id, jc.contact_id, c.display_name, jc.created_at, jc.updated_at
		FROM journal_contacts jc
		JOIN contacts c ON c.id = jc.contact_id
		WHERE jc.journal_id = $1 AND jc.contact_id = $2
	`
	jc, err := r.scanJournalContact(r.db.QueryRow(ctx, query, journalID, contactID))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get journal contact")
	}
	return jc, nil
}

// GetContactByID retrieves a journal-contact membership by its ID.
func (r *JournalRepository) GetContactByID(ctx context.Context, id string) (*JournalContact, error) {
	query := `
		SELECT jc.id, jc.journal_id, jc.contact_id, c.display_name, jc.created_at, jc.updated_at
		FROM journal_contacts jc
		JOIN contacts c ON c.id = jc.contact_id
		WHERE jc.id = $1
	`
	jc, err := r.scanJournalContact(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("journal_contact", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get journal contact")
	}
	return jc, nil
}

// ListContacts returns all memberships in a journal.
func (r *JournalRepository) ListContacts(ctx context.Context, journalID string) ([]*JournalContact, error) {
	query := `
		SELECT jc.id, jc.journal_id, jc.contact_id, c.display_name, jc.created_at, jc.updated_at
		FROM journal_contacts jc
		JOIN contacts c ON c.id = jc.contact_id
		WHERE jc.journal_id = $1
		ORDER BY c.display_name ASC
	`

	rows, err := r.db.Query(ctx, query, journalID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list journal contacts")
	}
	defer rows.Close()

	contacts := make([]*JournalContact, 0)
	for rows.Next() {
		jc, err := r.scanJournalContact(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan journal contact")
		}
		contacts = append(contacts, jc)
	}
	return contacts, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type journalScanner interface {
	Scan(dest ...any) error
}

func (r *JournalRepository) scanJournal(sc journalScanner) (*Journal, error) {
	j := &Journal{}
	err := sc.Scan(
		&j.ID,
		&j.OwnerID,
		&j.Name,
		&j.GoalAmount,
		&j.IsDefault,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JournalRepository) scanJournalContact(sc journalScanner) (*JournalContact, error) {
	jc := &JournalContact{}
	err := sc.Scan(
		&jc.ID,
		&jc.JournalID,
		&jc.ContactID,
		&jc.ContactName,
		&jc.CreatedAt,
		&jc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return jc, nil
}
