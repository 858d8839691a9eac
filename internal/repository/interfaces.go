package repository

import (
	"context"
	"time"

	"github.com/lheureux/giftwish/internal/models"
)

// ListRepository defines the interface for gift list data operations
type ListRepository interface {
	Create(ctx context.Context, list *models.GiftList) (*models.GiftList, error)
	GetByRef(ctx context.Context, ref models.Ref) (*models.GiftList, error)
	GetByID(ctx context.Context, id int64) (*models.GiftList, error)
	GetByCreator(ctx context.Context, userID int64) ([]*models.GiftList, error)
	GetAccessible(ctx context.Context, userID int64) ([]*models.GiftList, error)
	Update(ctx context.Context, list *models.GiftList) (*models.GiftList, error)
	Delete(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, id int64) error
	AddFollower(ctx context.Context, listID, userID int64) error
	RemoveFollower(ctx context.Context, listID, userID int64) (bool, error)
	GetFollowers(ctx context.Context, listID int64) ([]*models.Follower, error)
	IsFollower(ctx context.Context, listID, userID int64) (bool, error)
}

// ItemRepository defines the interface for gift item data operations.
// List queries exclude soft-deleted items; lookups by ref do not, so
// historical reservations stay resolvable.
type ItemRepository interface {
	Create(ctx context.Context, item *models.GiftItem) (*models.GiftItem, error)
	GetByRef(ctx context.Context, ref models.Ref) (*models.GiftItem, error)
	GetByList(ctx context.Context, listID int64) ([]*models.GiftItem, error)
	Update(ctx context.Context, item *models.GiftItem) (*models.GiftItem, error)
	UpdatePosition(ctx context.Context, itemID int64, position int) error
	MaxPosition(ctx context.Context, listID int64) (int, error)
	SoftDelete(ctx context.Context, itemID int64) error
}

// ReservationRepository defines the read side of the reservation ledger.
// All mutations go through LedgerStore transactions.
type ReservationRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
	GetConfirmedByItem(ctx context.Context, itemID int64) ([]*models.Reservation, error)
	GetConfirmedByList(ctx context.Context, listID int64) ([]*models.Reservation, error)
	ConfirmedQuantity(ctx context.Context, itemID int64) (int, error)
	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
	GetByList(ctx context.Context, listID int64) ([]*models.Comment, error)
	Delete(ctx context.Context, id int64) error
}

// NotificationRepository defines the interface for notification feed rows
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) (bool, error)
}

// LedgerTx is the set of ledger operations available inside a single
// reservation transaction. ItemForUpdate must lock the item row for the
// remainder of the transaction so concurrent reservations against the same
// item serialize on the database.
type LedgerTx interface {
	ItemForUpdate(ctx context.Context, itemID int64) (*models.GiftItem, error)
	ConfirmedQuantity(ctx context.Context, itemID int64) (int, error)
	InsertReservation(ctx context.Context, r *models.Reservation) (*models.Reservation, error)
	ReservationByID(ctx context.Context, id int64) (*models.Reservation, error)
	PendingByToken(ctx context.Context, token string) (*models.Reservation, error)
	SetReservationStatus(ctx context.Context, id int64, status models.ReservationStatus) error
	SetReservedQuantity(ctx context.Context, itemID int64, quantity int) error
	InsertComment(ctx context.Context, c *models.Comment) (*models.Comment, error)
}

// LedgerStore runs a function inside one atomic transaction against the
// reservation ledger. The transaction commits when fn returns nil and rolls
// back entirely otherwise; partial state never survives.
type LedgerStore interface {
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
}
