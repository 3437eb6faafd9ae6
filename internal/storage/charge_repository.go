package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kubo-market/pix-charge-platform/internal/domain"
)

// Repository defines the Receiver's Charge persistence contract (C4). No
// delete and no public read iteration are exposed, per §4.4.
type Repository interface {
	Insert(ctx context.Context, c *domain.Charge) error
	FindByExternalID(ctx context.Context, externalID string) (*domain.Charge, error)
	FindByID(ctx context.Context, id int64) (*domain.Charge, error)
	UpdateStatus(ctx context.Context, externalID string, newStatus domain.Status, paidAt *time.Time) (*domain.Charge, error)
}

// PostgresRepository implements Repository using database/sql + lib/pq,
// the same driver and pooling the teacher uses for its idempotency table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an open *sql.DB.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// advisoryLockKey hashes externalID into the int64 space pg_advisory_xact_lock
// expects, generalizing the teacher's idempotency-key hash to external_id so
// that concurrent updates to the same charge serialize through Postgres
// rather than relying solely on the UNIQUE constraint.
func advisoryLockKey(externalID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(externalID))
	return int64(h.Sum64())
}

func (r *PostgresRepository) Insert(ctx context.Context, c *domain.Charge) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO charges (external_id, value, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, c.ExternalID, c.Value, string(c.Status), c.CreatedAt, c.ExpiresAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert charge: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Charge, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, external_id, value, status, created_at, expires_at, paid_at
		FROM charges WHERE external_id = $1
	`, externalID))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*domain.Charge, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, external_id, value, status, created_at, expires_at, paid_at
		FROM charges WHERE id = $1
	`, id))
}

// UpdateStatus transitions a charge under a per-external_id advisory lock,
// satisfying §5's "linearizable via a per-row lock" ordering guarantee.
// It returns the freshly committed row. The WHERE status = 'PENDING' guard
// is the database-level enforcement of the state machine's only non-terminal
// source state, the same conditional-update idiom the teacher uses in
// MarkComplete/ResetToProcessing (WHERE status = 'processing'/'failed'): a
// charge already PAID or EXPIRED can never be overwritten by a racing call.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, externalID string, newStatus domain.Status, paidAt *time.Time) (*domain.Charge, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey(externalID)); err != nil {
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE charges SET status = $1, paid_at = $2
		WHERE external_id = $3 AND status = $4
		RETURNING id, external_id, value, status, created_at, expires_at, paid_at
	`, string(newStatus), paidAt, externalID, string(domain.StatusPending))

	c, err := r.scanOne(row)
	if errors.Is(err, domain.ErrChargeNotFound) {
		// Either the external_id doesn't exist, or it exists but is already
		// terminal. Disambiguate so the caller can tell the two apart.
		existing, findErr := r.FindByExternalID(ctx, externalID)
		if findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("%w: charge %s is %s", domain.ErrInvalidTransition, externalID, existing.Status)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanOne(row rowScanner) (*domain.Charge, error) {
	var c domain.Charge
	var value decimal.Decimal
	var status string
	var paidAt sql.NullTime

	err := row.Scan(&c.ID, &c.ExternalID, &value, &status, &c.CreatedAt, &c.ExpiresAt, &paidAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrChargeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan charge: %w", err)
	}

	c.Value = value
	c.Status = domain.Status(status)
	if paidAt.Valid {
		t := paidAt.Time
		c.PaidAt = &t
	}
	return &c, nil
}
