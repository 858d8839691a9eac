package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

type reservationRepository struct {
	db *sql.DB
}

// NewReservationRepository creates a new reservation ledger read repository
func NewReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

const reservationColumns = `id, item_id, list_id, quantity, reserved_by, reserved_by_name,
	is_anonymous, status, expires_at, COALESCE(confirmation_token, ''), created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*models.Reservation, error) {
	r := &models.Reservation{}
	err := row.Scan(
		&r.ID,
		&r.ItemID,
		&r.ListID,
		&r.Quantity,
		&r.ReservedBy,
		&r.ReservedByName,
		&r.IsAnonymous,
		&r.Status,
		&r.ExpiresAt,
		&r.ConfirmationToken,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func getReservationByID(ctx context.Context, q querier, id int64) (*models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1`, reservationColumns)

	res, err := scanReservation(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reservation by ID %d: %w", id, err)
	}

	return res, nil
}

// confirmedQuantity recomputes the reserved sum for an item from the ledger.
// Only confirmed rows count; pending rows hold no capacity.
func confirmedQuantity(ctx context.Context, q querier, itemID int64) (int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM reservations
		 WHERE item_id = $1 AND status = 'confirmed'`,
		itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum confirmed reservations for item %d: %w", itemID, err)
	}
	return total, nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	return getReservationByID(ctx, r.db, id)
}

func (r *reservationRepository) GetConfirmedByItem(ctx context.Context, itemID int64) ([]*models.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reservations
		WHERE item_id = $1 AND status = 'confirmed'
		ORDER BY created_at DESC`, reservationColumns)

	return r.queryReservations(ctx, query, itemID)
}

func (r *reservationRepository) GetConfirmedByList(ctx context.Context, listID int64) ([]*models.Reservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reservations
		WHERE list_id = $1 AND status = 'confirmed'
		ORDER BY created_at DESC`, reservationColumns)

	return r.queryReservations(ctx, query, listID)
}

func (r *reservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

func (r *reservationRepository) ConfirmedQuantity(ctx context.Context, itemID int64) (int, error) {
	return confirmedQuantity(ctx, r.db, itemID)
}

// DeleteExpiredPending removes pending reservations whose confirmation
// window has closed. Confirmed rows are never touched.
func (r *reservationRepository) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reservations
		 WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at < $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pending reservations: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
