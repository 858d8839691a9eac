package models

import "time"

// Comment represents a comment left on a list or on a specific item.
type Comment struct {
	ID          int64     `json:"id" db:"id"`
	ListID      int64     `json:"list_id" db:"list_id"`
	ItemID      *int64    `json:"item_id,omitempty" db:"item_id"`
	Author      string    `json:"author" db:"author"`
	Content     string    `json:"content" db:"content"`
	IsAnonymous bool      `json:"is_anonymous" db:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
