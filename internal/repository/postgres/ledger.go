package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

type ledgerStore struct {
	db *sql.DB
}

// NewLedgerStore creates the transactional boundary for the reservation
// ledger. Every mutating reservation operation runs through WithTx.
func NewLedgerStore(db *sql.DB) repository.LedgerStore {
	return &ledgerStore{db: db}
}

func (s *ledgerStore) WithTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	return nil
}

type ledgerTx struct {
	tx *sql.Tx
}

// ItemForUpdate reads the item row and locks it until the transaction ends,
// serializing concurrent reservations against the same item.
func (l *ledgerTx) ItemForUpdate(ctx context.Context, itemID int64) (*models.GiftItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM gift_items WHERE id = $1 FOR UPDATE`, itemColumns)

	item, err := scanItem(l.tx.QueryRowContext(ctx, query, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock gift item %d: %w", itemID, err)
	}

	return item, nil
}

func (l *ledgerTx) ConfirmedQuantity(ctx context.Context, itemID int64) (int, error) {
	return confirmedQuantity(ctx, l.tx, itemID)
}

func (l *ledgerTx) InsertReservation(ctx context.Context, r *models.Reservation) (*models.Reservation, error) {
	query := `
		INSERT INTO reservations (item_id, list_id, quantity, reserved_by, reserved_by_name,
			is_anonymous, status, expires_at, confirmation_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	err := l.tx.QueryRowContext(ctx, query,
		r.ItemID,
		r.ListID,
		r.Quantity,
		r.ReservedBy,
		r.ReservedByName,
		r.IsAnonymous,
		r.Status,
		r.ExpiresAt,
		r.ConfirmationToken,
		r.CreatedAt,
		r.UpdatedAt,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	return r, nil
}

func (l *ledgerTx) ReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	return getReservationByID(ctx, l.tx, id)
}

func (l *ledgerTx) PendingByToken(ctx context.Context, token string) (*models.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reservations
		WHERE confirmation_token = $1 AND status = 'pending'
		FOR UPDATE`, reservationColumns)

	res, err := scanReservation(l.tx.QueryRowContext(ctx, query, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending reservation by token: %w", err)
	}

	return res, nil
}

func (l *ledgerTx) SetReservationStatus(ctx context.Context, id int64, status models.ReservationStatus) error {
	result, err := l.tx.ExecContext(ctx,
		`UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set reservation %d status to %s: %w", id, status, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("reservation with ID %d not found", id)
	}

	return nil
}

func (l *ledgerTx) SetReservedQuantity(ctx context.Context, itemID int64, quantity int) error {
	result, err := l.tx.ExecContext(ctx,
		`UPDATE gift_items SET reserved_quantity = $2, updated_at = $3 WHERE id = $1`,
		itemID, quantity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set reserved quantity of item %d: %w", itemID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("gift item with ID %d not found", itemID)
	}

	return nil
}

func (l *ledgerTx) InsertComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	return insertComment(ctx, l.tx, c)
}
