// Package notify implements the best-effort notification side channel.
// Dispatch failures are logged and counted, never propagated: a lost
// notification must not unwind a committed reservation.
package notify

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

// Sender delivers a rendered notification out-of-band (e.g. a Telegram
// message). Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// ConfirmationMailer fronts the email service that delivers confirmation
// links to reservers. Implementations must be safe for concurrent use.
type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, to, token string) error
}

// Dispatcher writes notification feed rows and fans out to an optional
// out-of-band sender.
type Dispatcher struct {
	notifications repository.NotificationRepository
	lists         repository.ListRepository
	sender        Sender
	mailer        ConfirmationMailer
	logger        *logrus.Logger

	sent    atomic.Int64
	dropped atomic.Int64
}

// NewDispatcher creates a dispatcher. sender and mailer may be nil to
// disable the out-of-band and confirmation-mail channels respectively.
func NewDispatcher(notifications repository.NotificationRepository, lists repository.ListRepository, sender Sender, mailer ConfirmationMailer, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		lists:         lists,
		sender:        sender,
		mailer:        mailer,
		logger:        logger,
	}
}

// Sent returns how many notifications were delivered since startup.
func (d *Dispatcher) Sent() int64 { return d.sent.Load() }

// Dropped returns how many notifications failed to deliver since startup.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// ReservationConfirmed tells the list creator that a reservation was made.
// The reserver's identity is withheld when the reservation is anonymous —
// and the creator-facing message never includes contact details either way.
func (d *Dispatcher) ReservationConfirmed(ctx context.Context, res *models.Reservation, item *models.GiftItem, list *models.GiftList) {
	who := "Someone"
	if !res.IsAnonymous && res.ReservedByName != nil && *res.ReservedByName != "" {
		who = *res.ReservedByName
	}

	d.deliver(ctx, &models.Notification{
		UserID:  list.CreatorID,
		Type:    models.NotificationReservation,
		Title:   "New reservation",
		Message: fmt.Sprintf("%s reserved %q on your list %q", who, item.Name, list.Name),
		ListID:  &list.ID,
		ItemID:  &item.ID,
	})
}

// ReservationPending hands the single-use confirmation token to the mail
// collaborator for delivery to the reserver. Nothing is written to the
// creator's feed: pending rows hold no capacity until confirmed, and the
// token must never reach anyone but the reserver.
func (d *Dispatcher) ReservationPending(ctx context.Context, res *models.Reservation, item *models.GiftItem, _ *models.GiftList) {
	if d.mailer == nil {
		d.dropped.Inc()
		d.logger.WithField("reservation_id", res.ID).
			Warn("No confirmation mailer configured; pending reservation cannot be redeemed")
		return
	}
	if err := d.mailer.SendConfirmation(ctx, res.ReservedBy, res.ConfirmationToken); err != nil {
		d.dropped.Inc()
		d.logger.WithError(err).WithField("reservation_id", res.ID).
			Error("Failed to send confirmation email")
		return
	}
	d.sent.Inc()
	d.logger.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"item_id":        item.ID,
	}).Info("Confirmation email sent")
}

// ItemAdded tells every follower of a list about a new item.
func (d *Dispatcher) ItemAdded(ctx context.Context, item *models.GiftItem, list *models.GiftList) {
	followers, err := d.lists.GetFollowers(ctx, list.ID)
	if err != nil {
		d.dropped.Inc()
		d.logger.WithError(err).WithField("list_id", list.ID).
			Error("Failed to load followers for item notification")
		return
	}

	var errs *multierror.Error
	for _, f := range followers {
		n := &models.Notification{
			UserID:  f.UserID,
			Type:    models.NotificationNewItem,
			Title:   "New item added",
			Message: fmt.Sprintf("A new item %q was added to the list %q", item.Name, list.Name),
			ListID:  &list.ID,
			ItemID:  &item.ID,
		}
		if _, err := d.notifications.Create(ctx, n); err != nil {
			d.dropped.Inc()
			errs = multierror.Append(errs, fmt.Errorf("follower %d: %w", f.UserID, err))
			continue
		}
		d.sent.Inc()
	}
	if err := errs.ErrorOrNil(); err != nil {
		d.logger.WithError(err).WithField("list_id", list.ID).
			Error("Failed to notify some followers about new item")
		return
	}

	d.sendOOB(ctx, fmt.Sprintf("New item %q on list %q", item.Name, list.Name))
}

// FollowerAdded tells the list creator about a new follower or member.
func (d *Dispatcher) FollowerAdded(ctx context.Context, followerID int64, followerName string, list *models.GiftList) {
	who := followerName
	if who == "" {
		who = fmt.Sprintf("User %d", followerID)
	}

	d.deliver(ctx, &models.Notification{
		UserID:  list.CreatorID,
		Type:    models.NotificationNewFollower,
		Title:   "New follower",
		Message: fmt.Sprintf("%s is now following your list %q", who, list.Name),
		ListID:  &list.ID,
	})
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) {
	if _, err := d.notifications.Create(ctx, n); err != nil {
		d.dropped.Inc()
		d.logger.WithError(err).WithField("user_id", n.UserID).
			Error("Failed to store notification")
		return
	}
	d.sent.Inc()
	d.sendOOB(ctx, n.Message)
}

func (d *Dispatcher) sendOOB(ctx context.Context, text string) {
	if d.sender == nil {
		return
	}
	if err := d.sender.Send(ctx, text); err != nil {
		d.dropped.Inc()
		d.logger.WithError(err).Error("Failed to send out-of-band notification")
	}
}
