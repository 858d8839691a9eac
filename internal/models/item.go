package models

import "time"

// ItemPriority is the owner-assigned priority of a gift item.
type ItemPriority string

const (
	PriorityLow    ItemPriority = "low"
	PriorityMedium ItemPriority = "medium"
	PriorityHigh   ItemPriority = "high"
)

// GiftItem represents an item on a gift list.
//
// ReservedQuantity is a write-through cache of the confirmed reservation sum
// for the item. It is refreshed from the ledger by the quantity reconciler
// inside every mutating reservation transaction and must never be
// incremented directly.
type GiftItem struct {
	ID               int64        `json:"id" db:"id"`
	PublicToken      string       `json:"public_token" db:"public_token"`
	ListID           int64        `json:"list_id" db:"list_id"`
	Name             string       `json:"name" db:"name"`
	Description      string       `json:"description" db:"description"`
	URL              string       `json:"url" db:"url"`
	Price            *float64     `json:"price,omitempty" db:"price"`
	Image            string       `json:"image" db:"image"`
	Quantity         int          `json:"quantity" db:"quantity"`
	ReservedQuantity int          `json:"reserved_quantity" db:"reserved_quantity"`
	Priority         ItemPriority `json:"priority" db:"priority"`
	Position         int          `json:"position" db:"position"`
	IsActive         bool         `json:"is_active" db:"is_active"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// AvailableQuantity returns the cached availability, clamped at zero. The
// authoritative value comes from the reconciler; this accessor is for
// display paths that already hold a fresh item row.
func (i *GiftItem) AvailableQuantity() int {
	available := i.Quantity - i.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}
