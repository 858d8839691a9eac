package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	// ReservationPending awaits token confirmation and does not count
	// against item availability.
	ReservationPending ReservationStatus = "pending"
	// ReservationConfirmed counts against item availability.
	ReservationConfirmed ReservationStatus = "confirmed"
	// ReservationCancelled releases any previously held quantity.
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is one row of the reservation ledger, the source of truth for
// an item's reserved quantity. Confirmed rows are append-only apart from the
// cancel transition.
type Reservation struct {
	ID                int64             `json:"id" db:"id"`
	ItemID            int64             `json:"item_id" db:"item_id"`
	ListID            int64             `json:"list_id" db:"list_id"`
	Quantity          int               `json:"quantity" db:"quantity"`
	ReservedBy        string            `json:"reserved_by" db:"reserved_by"`
	ReservedByName    *string           `json:"reserved_by_name,omitempty" db:"reserved_by_name"`
	IsAnonymous       bool              `json:"is_anonymous" db:"is_anonymous"`
	Status            ReservationStatus `json:"status" db:"status"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty" db:"expires_at"`
	ConfirmationToken string            `json:"-" db:"confirmation_token"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the name to show to viewers other than the list
// creator. The creator never sees a reserver identity at all, so this is
// only consulted on non-creator paths.
func (r *Reservation) DisplayName() string {
	if r.IsAnonymous || r.ReservedByName == nil || *r.ReservedByName == "" {
		return "Anonymous"
	}
	return *r.ReservedByName
}
