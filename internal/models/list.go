package models

import "time"

// ListVisibility controls who can see a gift list.
type ListVisibility string

const (
	VisibilityPublic   ListVisibility = "public"
	VisibilityPrivate  ListVisibility = "private"
	VisibilityUnlisted ListVisibility = "unlisted"
)

// GiftList represents a gift list owned by a single creator.
type GiftList struct {
	ID                int64          `json:"id" db:"id"`
	PublicToken       string         `json:"public_token" db:"public_token"`
	CreatorID         int64          `json:"creator_id" db:"creator_id"`
	Name              string         `json:"name" db:"name"`
	Description       string         `json:"description" db:"description"`
	Visibility        ListVisibility `json:"visibility" db:"visibility"`
	ShowPrices        bool           `json:"show_prices" db:"show_prices"`
	AllowComments     bool           `json:"allow_comments" db:"allow_comments"`
	HideReservedItems bool           `json:"hide_reserved_items" db:"hide_reserved_items"`
	Views             int64          `json:"views" db:"views"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
	Items             []GiftItem     `json:"items,omitempty"`
}

// IsOwnedBy reports whether userID created the list.
func (l *GiftList) IsOwnedBy(userID int64) bool {
	return l.CreatorID == userID
}

// Follower is a user following a list (or, for private lists, an explicitly
// added member).
type Follower struct {
	ListID   int64     `json:"list_id" db:"list_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
	Username string    `json:"username,omitempty" db:"username"`
}
