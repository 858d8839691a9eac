package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lheureux/giftwish/internal/metrics"
	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

// ReservationMode selects how reservations reach the confirmed state.
// Exactly one mode is active per deployment.
type ReservationMode string

const (
	// ModeImmediate commits reservations as confirmed in a single step.
	ModeImmediate ReservationMode = "immediate"
	// ModeConfirm creates pending reservations that must be confirmed via
	// an emailed token before they count against availability.
	ModeConfirm ReservationMode = "confirm"
)

// Config carries the reservation policy knobs.
type Config struct {
	Mode ReservationMode
	// ConfirmationTTL is how long a pending reservation stays redeemable
	// in confirm mode.
	ConfirmationTTL time.Duration
	// SweepInterval is how often expired pending reservations are removed.
	SweepInterval time.Duration
}

// Notifier is the best-effort side channel announcing state changes.
// Implementations must never fail the calling operation: errors are logged
// inside the notifier and swallowed.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, res *models.Reservation, item *models.GiftItem, list *models.GiftList)
	// ReservationPending carries the single-use confirmation token to the
	// reserver's contact address. The token never reaches the list creator.
	ReservationPending(ctx context.Context, res *models.Reservation, item *models.GiftItem, list *models.GiftList)
	ItemAdded(ctx context.Context, item *models.GiftItem, list *models.GiftList)
	FollowerAdded(ctx context.Context, followerID int64, followerName string, list *models.GiftList)
}

// Viewer identifies the authenticated requester, resolved once at the API
// boundary from the external auth service's token.
type Viewer struct {
	ID       int64
	Email    string
	Username string
}

// IsAnonymous reports whether no authenticated viewer is present.
func (v Viewer) IsAnonymous() bool { return v.ID == 0 }

// Service is the central business logic layer: the reservation engine, the
// quantity reconciler and the visibility policy, plus list/item/comment
// directory operations.
type Service struct {
	cfg     Config
	logger  *logrus.Logger
	metrics *metrics.Metrics

	Lists         repository.ListRepository
	Items         repository.ItemRepository
	Reservations  repository.ReservationRepository
	Comments      repository.CommentRepository
	Notifications repository.NotificationRepository

	ledger     repository.LedgerStore
	reconciler *Reconciler
	notifier   Notifier
}

// New creates a new Service with all required dependencies. A nil notifier
// disables the side channel.
func New(cfg Config, logger *logrus.Logger, m *metrics.Metrics,
	lists repository.ListRepository,
	items repository.ItemRepository,
	reservations repository.ReservationRepository,
	comments repository.CommentRepository,
	notifications repository.NotificationRepository,
	ledger repository.LedgerStore,
	notifier Notifier,
) *Service {
	if cfg.Mode == "" {
		cfg.Mode = ModeImmediate
	}
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = 72 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 15 * time.Minute
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &Service{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		Lists:   lists, Items: items, Reservations: reservations,
		Comments: comments, Notifications: notifications,
		ledger:     ledger,
		reconciler: NewReconciler(reservations, logger),
		notifier:   notifier,
	}
}

// Reconciler returns the quantity reconciler.
func (s *Service) Reconciler() *Reconciler { return s.reconciler }

type noopNotifier struct{}

func (noopNotifier) ReservationConfirmed(context.Context, *models.Reservation, *models.GiftItem, *models.GiftList) {
}
func (noopNotifier) ReservationPending(context.Context, *models.Reservation, *models.GiftItem, *models.GiftList) {
}
func (noopNotifier) ItemAdded(context.Context, *models.GiftItem, *models.GiftList) {}
func (noopNotifier) FollowerAdded(context.Context, int64, string, *models.GiftList) {}
