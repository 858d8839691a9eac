package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new gift item repository
func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, public_token, list_id, name, description, url, price, image,
	quantity, reserved_quantity, priority, position, is_active, created_at, updated_at`

// querier is satisfied by both *sql.DB and *sql.Tx so item scanning can be
// shared with the ledger transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanItem(row interface{ Scan(...any) error }) (*models.GiftItem, error) {
	item := &models.GiftItem{}
	err := row.Scan(
		&item.ID,
		&item.PublicToken,
		&item.ListID,
		&item.Name,
		&item.Description,
		&item.URL,
		&item.Price,
		&item.Image,
		&item.Quantity,
		&item.ReservedQuantity,
		&item.Priority,
		&item.Position,
		&item.IsActive,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *models.GiftItem) (*models.GiftItem, error) {
	query := `
		INSERT INTO gift_items (public_token, list_id, name, description, url, price,
			image, quantity, priority, position, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $12)
		RETURNING id, reserved_quantity, is_active, created_at, updated_at`

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.PublicToken == "" {
		item.PublicToken = models.NewPublicToken()
	}

	err := r.db.QueryRowContext(ctx, query,
		item.PublicToken,
		item.ListID,
		item.Name,
		item.Description,
		item.URL,
		item.Price,
		item.Image,
		item.Quantity,
		item.Priority,
		item.Position,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID, &item.ReservedQuantity, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create gift item: %w", err)
	}

	return item, nil
}

func (r *itemRepository) GetByRef(ctx context.Context, ref models.Ref) (*models.GiftItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM gift_items WHERE id = $1`, itemColumns)
	arg := any(ref.ID)
	if ref.Kind == models.RefPublicToken {
		query = fmt.Sprintf(`SELECT %s FROM gift_items WHERE public_token = $1`, itemColumns)
		arg = ref.Token
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get gift item by ref %s: %w", ref, err)
	}

	return item, nil
}

func (r *itemRepository) GetByList(ctx context.Context, listID int64) ([]*models.GiftItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM gift_items
		WHERE list_id = $1 AND is_active = TRUE
		ORDER BY position ASC`, itemColumns)

	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gift items for list %d: %w", listID, err)
	}
	defer rows.Close()

	var items []*models.GiftItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *itemRepository) Update(ctx context.Context, item *models.GiftItem) (*models.GiftItem, error) {
	query := `
		UPDATE gift_items
		SET name = $2, description = $3, url = $4, price = $5, image = $6,
			quantity = $7, priority = $8, updated_at = $9
		WHERE id = $1
		RETURNING updated_at`

	item.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.URL,
		item.Price,
		item.Image,
		item.Quantity,
		item.Priority,
		item.UpdatedAt,
	).Scan(&item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update gift item %d: %w", item.ID, err)
	}

	return item, nil
}

func (r *itemRepository) UpdatePosition(ctx context.Context, itemID int64, position int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE gift_items SET position = $2, updated_at = $3 WHERE id = $1`,
		itemID, position, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update position of gift item %d: %w", itemID, err)
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

func (r *itemRepository) MaxPosition(ctx context.Context, listID int64) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM gift_items WHERE list_id = $1`,
		listID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max position for list %d: %w", listID, err)
	}
	return max, nil
}

func (r *itemRepository) SoftDelete(ctx context.Context, itemID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE gift_items SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		itemID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete gift item %d: %w", itemID, err)
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
