package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

// Reconciler derives reserved and available quantities from the reservation
// ledger. It is the only component allowed to write the cached
// reserved_quantity column: every mutating reservation transaction refreshes
// the cache through RefreshTx, and read paths recompute from the ledger
// instead of trusting the cache.
type Reconciler struct {
	reservations repository.ReservationRepository
	logger       *logrus.Logger
}

// NewReconciler creates a reconciler over the reservation ledger.
func NewReconciler(reservations repository.ReservationRepository, logger *logrus.Logger) *Reconciler {
	return &Reconciler{reservations: reservations, logger: logger}
}

// Availability is the quantity snapshot exposed to clients.
type Availability struct {
	TotalQuantity     int  `json:"totalQuantity"`
	ReservedQuantity  int  `json:"reservedQuantity"`
	AvailableQuantity int  `json:"availableQuantity"`
	IsAvailable       bool `json:"isAvailable"`
}

// ReservedQuantity returns the confirmed reservation sum for an item,
// computed from the ledger. Idempotent: repeated calls with no intervening
// writes return the same value.
func (r *Reconciler) ReservedQuantity(ctx context.Context, itemID int64) (int, error) {
	reserved, err := r.reservations.ConfirmedQuantity(ctx, itemID)
	if err != nil {
		return 0, storageWrap("reserved quantity lookup", err)
	}
	return reserved, nil
}

// Availability computes the snapshot for an item. A negative computed
// availability indicates a broken invariant: it is logged and clamped to
// zero so consumers never see a negative number.
func (r *Reconciler) Availability(ctx context.Context, item *models.GiftItem) (Availability, error) {
	reserved, err := r.ReservedQuantity(ctx, item.ID)
	if err != nil {
		return Availability{}, err
	}

	available := item.Quantity - reserved
	if available < 0 {
		r.logger.WithFields(logrus.Fields{
			"item_id":  item.ID,
			"quantity": item.Quantity,
			"reserved": reserved,
		}).Error("Item is overcommitted: computed availability is negative")
		available = 0
	}

	return Availability{
		TotalQuantity:     item.Quantity,
		ReservedQuantity:  reserved,
		AvailableQuantity: available,
		IsAvailable:       available > 0,
	}, nil
}

// RefreshTx recomputes the confirmed sum inside an open ledger transaction
// and persists it to the item's cached column. Returns the fresh sum.
func (r *Reconciler) RefreshTx(ctx context.Context, tx repository.LedgerTx, itemID int64) (int, error) {
	reserved, err := tx.ConfirmedQuantity(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if err := tx.SetReservedQuantity(ctx, itemID, reserved); err != nil {
		return 0, err
	}
	return reserved, nil
}
