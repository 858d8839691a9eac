package models

import "time"

// NotificationType categorizes feed notifications.
type NotificationType string

const (
	NotificationReservation NotificationType = "reservation"
	NotificationNewItem     NotificationType = "new_item"
	NotificationNewFollower NotificationType = "new_follower"
)

// Notification is one entry in a user's notification feed.
type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	ListID    *int64           `json:"list_id,omitempty" db:"list_id"`
	ItemID    *int64           `json:"item_id,omitempty" db:"item_id"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
