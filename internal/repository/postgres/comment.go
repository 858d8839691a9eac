package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

type commentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &commentRepository{db: db}
}

func insertComment(ctx context.Context, q querier, comment *models.Comment) (*models.Comment, error) {
	query := `
		INSERT INTO comments (list_id, item_id, author, content, is_anonymous, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	comment.CreatedAt = time.Now()

	err := q.QueryRowContext(ctx, query,
		comment.ListID,
		comment.ItemID,
		comment.Author,
		comment.Content,
		comment.IsAnonymous,
		comment.CreatedAt,
	).Scan(&comment.ID, &comment.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	return insertComment(ctx, r.db, comment)
}

func (r *commentRepository) GetByItem(ctx context.Context, itemID int64) ([]*models.Comment, error) {
	query := `
		SELECT id, list_id, item_id, author, content, is_anonymous, created_at
		FROM comments
		WHERE item_id = $1
		ORDER BY created_at DESC`

	return r.queryComments(ctx, query, itemID)
}

func (r *commentRepository) GetByList(ctx context.Context, listID int64) ([]*models.Comment, error) {
	query := `
		SELECT id, list_id, item_id, author, content, is_anonymous, created_at
		FROM comments
		WHERE list_id = $1
		ORDER BY created_at DESC`

	return r.queryComments(ctx, query, listID)
}

func (r *commentRepository) queryComments(ctx context.Context, query string, args ...any) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(
			&c.ID,
			&c.ListID,
			&c.ItemID,
			&c.Author,
			&c.Content,
			&c.IsAnonymous,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("comment with ID %d not found", id)
	}

	return nil
}
