package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

type listRepository struct {
	db *sql.DB
}

// NewListRepository creates a new gift list repository
func NewListRepository(db *sql.DB) repository.ListRepository {
	return &listRepository{db: db}
}

const listColumns = `id, public_token, creator_id, name, description, visibility,
	show_prices, allow_comments, hide_reserved_items, views, created_at, updated_at`

func scanList(row interface{ Scan(...any) error }) (*models.GiftList, error) {
	list := &models.GiftList{}
	err := row.Scan(
		&list.ID,
		&list.PublicToken,
		&list.CreatorID,
		&list.Name,
		&list.Description,
		&list.Visibility,
		&list.ShowPrices,
		&list.AllowComments,
		&list.HideReservedItems,
		&list.Views,
		&list.CreatedAt,
		&list.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listRepository) Create(ctx context.Context, list *models.GiftList) (*models.GiftList, error) {
	query := `
		INSERT INTO gift_lists (public_token, creator_id, name, description, visibility,
			show_prices, allow_comments, hide_reserved_items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, views, created_at, updated_at`

	now := time.Now()
	list.CreatedAt = now
	list.UpdatedAt = now
	if list.PublicToken == "" {
		list.PublicToken = models.NewPublicToken()
	}

	err := r.db.QueryRowContext(ctx, query,
		list.PublicToken,
		list.CreatorID,
		list.Name,
		list.Description,
		list.Visibility,
		list.ShowPrices,
		list.AllowComments,
		list.HideReservedItems,
		list.CreatedAt,
		list.UpdatedAt,
	).Scan(&list.ID, &list.Views, &list.CreatedAt, &list.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create gift list: %w", err)
	}

	return list, nil
}

func (r *listRepository) GetByRef(ctx context.Context, ref models.Ref) (*models.GiftList, error) {
	query := fmt.Sprintf(`SELECT %s FROM gift_lists WHERE id = $1`, listColumns)
	arg := any(ref.ID)
	if ref.Kind == models.RefPublicToken {
		query = fmt.Sprintf(`SELECT %s FROM gift_lists WHERE public_token = $1`, listColumns)
		arg = ref.Token
	}

	list, err := scanList(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get gift list by ref %s: %w", ref, err)
	}

	return list, nil
}

func (r *listRepository) GetByID(ctx context.Context, id int64) (*models.GiftList, error) {
	return r.GetByRef(ctx, models.InternalRef(id))
}

func (r *listRepository) GetByCreator(ctx context.Context, userID int64) ([]*models.GiftList, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM gift_lists
		WHERE creator_id = $1
		ORDER BY updated_at DESC`, listColumns)

	return r.queryLists(ctx, query, userID)
}

func (r *listRepository) GetAccessible(ctx context.Context, userID int64) ([]*models.GiftList, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM gift_lists gl
		WHERE gl.visibility = 'public'
			OR gl.creator_id = $1
			OR EXISTS (
				SELECT 1 FROM list_followers lf
				WHERE lf.list_id = gl.id AND lf.user_id = $1
			)
		ORDER BY gl.created_at DESC`, listColumns)

	return r.queryLists(ctx, query, userID)
}

func (r *listRepository) queryLists(ctx context.Context, query string, args ...any) ([]*models.GiftList, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gift lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.GiftList
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift list: %w", err)
		}
		lists = append(lists, list)
	}

	return lists, rows.Err()
}

func (r *listRepository) Update(ctx context.Context, list *models.GiftList) (*models.GiftList, error) {
	query := `
		UPDATE gift_lists
		SET name = $2, description = $3, visibility = $4, show_prices = $5,
			allow_comments = $6, hide_reserved_items = $7, updated_at = $8
		WHERE id = $1
		RETURNING updated_at`

	list.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		list.ID,
		list.Name,
		list.Description,
		list.Visibility,
		list.ShowPrices,
		list.AllowComments,
		list.HideReservedItems,
		list.UpdatedAt,
	).Scan(&list.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update gift list %d: %w", list.ID, err)
	}

	return list, nil
}

func (r *listRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gift_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gift list: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("gift list with ID %d not found", id)
	}

	return nil
}

func (r *listRepository) IncrementViews(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE gift_lists SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views for list %d: %w", id, err)
	}
	return nil
}

func (r *listRepository) AddFollower(ctx context.Context, listID, userID int64) error {
	query := `
		INSERT INTO list_followers (list_id, user_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (list_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, listID, userID, time.Now()); err != nil {
		return fmt.Errorf("failed to add follower %d to list %d: %w", userID, listID, err)
	}
	return nil
}

func (r *listRepository) RemoveFollower(ctx context.Context, listID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM list_followers WHERE list_id = $1 AND user_id = $2`, listID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove follower %d from list %d: %w", userID, listID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *listRepository) GetFollowers(ctx context.Context, listID int64) ([]*models.Follower, error) {
	query := `
		SELECT lf.list_id, lf.user_id, lf.added_at, COALESCE(u.username, '')
		FROM list_followers lf
		LEFT JOIN users u ON u.id = lf.user_id
		WHERE lf.list_id = $1
		ORDER BY lf.added_at ASC`

	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query followers for list %d: %w", listID, err)
	}
	defer rows.Close()

	var followers []*models.Follower
	for rows.Next() {
		f := &models.Follower{}
		if err := rows.Scan(&f.ListID, &f.UserID, &f.AddedAt, &f.Username); err != nil {
			return nil, fmt.Errorf("failed to scan follower: %w", err)
		}
		followers = append(followers, f)
	}

	return followers, rows.Err()
}

func (r *listRepository) IsFollower(ctx context.Context, listID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM list_followers WHERE list_id = $1 AND user_id = $2)`,
		listID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follower %d on list %d: %w", userID, listID, err)
	}
	return exists, nil
}
