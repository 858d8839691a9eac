package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

// ReserveRequest carries a viewer's reservation of an item.
type ReserveRequest struct {
	Quantity    int
	Email       string
	Name        string
	IsAnonymous bool
	Message     string
}

// ReserveResult reports the outcome of a committed reservation.
type ReserveResult struct {
	ReservationID       int64
	Status              models.ReservationStatus
	NewReservedQuantity int
	AvailableQuantity   int
	// ConfirmationToken is set in confirm mode only; the caller hands it to
	// the email collaborator.
	ConfirmationToken string
}

// Reserve validates and commits a reservation of the item identified by
// ref. The whole algorithm runs inside a single ledger transaction: the
// item row is locked, the confirmed sum is recomputed from the ledger (the
// cached column may be stale), availability is checked, the reservation row
// is inserted and the cache refreshed. Any failure after the lock rolls the
// whole transaction back.
//
// In immediate mode the reservation is confirmed on insert. In confirm mode
// it is inserted pending with a single-use token and does not reduce
// availability until redeemed.
func (s *Service) Reserve(ctx context.Context, ref models.Ref, viewer Viewer, req ReserveRequest) (*ReserveResult, error) {
	if req.Quantity < 1 {
		return nil, &ValidationError{Message: fmt.Sprintf("quantity must be at least 1, got %d", req.Quantity)}
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = viewer.Email
	}
	if email == "" {
		return nil, &ValidationError{Message: "a contact email is required"}
	}
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "reserving requires authentication"}
	}

	item, err := s.Items.GetByRef(ctx, ref)
	if err != nil {
		return nil, storageWrap("item lookup", err)
	}
	if item == nil || !item.IsActive {
		return nil, &NotFoundError{Resource: "gift item", Ref: ref.String()}
	}

	list, err := s.Lists.GetByID(ctx, item.ListID)
	if err != nil {
		return nil, storageWrap("list lookup", err)
	}
	if list == nil {
		return nil, &NotFoundError{Resource: "gift list", Ref: fmt.Sprint(item.ListID)}
	}
	if ok, err := s.canViewList(ctx, viewer, list); err != nil {
		return nil, err
	} else if !ok {
		return nil, &AuthorizationError{Message: "this list is private"}
	}

	var (
		result      ReserveResult
		reservation *models.Reservation
	)

	start := time.Now()
	err = s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		locked, err := tx.ItemForUpdate(ctx, item.ID)
		if err != nil {
			return err
		}
		if locked == nil || !locked.IsActive {
			return &NotFoundError{Resource: "gift item", Ref: ref.String()}
		}

		// The cached column may be stale; only the ledger sum counts.
		currentReserved, err := tx.ConfirmedQuantity(ctx, locked.ID)
		if err != nil {
			return err
		}

		available := locked.Quantity - currentReserved
		if req.Quantity > available {
			return &QuantityUnavailableError{
				ItemID:    locked.ID,
				Requested: req.Quantity,
				Available: available,
			}
		}

		reservation = &models.Reservation{
			ItemID:      locked.ID,
			ListID:      locked.ListID,
			Quantity:    req.Quantity,
			ReservedBy:  email,
			IsAnonymous: req.IsAnonymous,
			Status:      models.ReservationConfirmed,
		}
		if name := strings.TrimSpace(req.Name); name != "" {
			reservation.ReservedByName = &name
		}
		if s.cfg.Mode == ModeConfirm {
			token, err := newConfirmationToken()
			if err != nil {
				return err
			}
			expires := time.Now().Add(s.cfg.ConfirmationTTL)
			reservation.Status = models.ReservationPending
			reservation.ConfirmationToken = token
			reservation.ExpiresAt = &expires
		}

		if _, err := tx.InsertReservation(ctx, reservation); err != nil {
			return err
		}

		reserved, err := s.reconciler.RefreshTx(ctx, tx, locked.ID)
		if err != nil {
			return err
		}

		if msg := strings.TrimSpace(req.Message); msg != "" {
			comment := &models.Comment{
				ListID:      locked.ListID,
				ItemID:      &locked.ID,
				Author:      commentAuthor(viewer, req),
				Content:     msg,
				IsAnonymous: req.IsAnonymous,
			}
			if _, err := tx.InsertComment(ctx, comment); err != nil {
				return err
			}
		}

		result = ReserveResult{
			ReservationID:       reservation.ID,
			Status:              reservation.Status,
			NewReservedQuantity: reserved,
			AvailableQuantity:   locked.Quantity - reserved,
			ConfirmationToken:   reservation.ConfirmationToken,
		}
		return nil
	})
	if err != nil {
		if IsQuantityUnavailable(err) {
			s.metrics.QuantityConflicts.Inc()
		}
		return nil, storageWrap("reserve", err)
	}

	s.metrics.ReserveDuration.Observe(time.Since(start).Seconds())
	s.metrics.ReservationsTotal.WithLabelValues(string(result.Status)).Inc()

	// Side effects are best-effort: a notification failure never unwinds a
	// committed reservation.
	switch result.Status {
	case models.ReservationConfirmed:
		s.notifier.ReservationConfirmed(ctx, reservation, item, list)
	case models.ReservationPending:
		s.notifier.ReservationPending(ctx, reservation, item, list)
	}

	return &result, nil
}

// ConfirmReservation redeems a pending reservation's single-use token.
// Pending rows hold no capacity, so availability is re-checked here under
// the same item lock the reserve path takes; a confirmed sum that no longer
// leaves room fails the redemption with the usual conflict error.
func (s *Service) ConfirmReservation(ctx context.Context, token string) (*ReserveResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &ValidationError{Message: "confirmation token is required"}
	}

	var (
		result      ReserveResult
		reservation *models.Reservation
		item        *models.GiftItem
	)

	err := s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		res, err := tx.PendingByToken(ctx, token)
		if err != nil {
			return err
		}
		if res == nil {
			return &NotFoundError{Resource: "pending reservation", Ref: "token"}
		}
		if res.ExpiresAt != nil && res.ExpiresAt.Before(time.Now()) {
			return &ValidationError{Message: "this confirmation link has expired"}
		}

		locked, err := tx.ItemForUpdate(ctx, res.ItemID)
		if err != nil {
			return err
		}
		if locked == nil || !locked.IsActive {
			return &NotFoundError{Resource: "gift item", Ref: fmt.Sprint(res.ItemID)}
		}

		currentReserved, err := tx.ConfirmedQuantity(ctx, locked.ID)
		if err != nil {
			return err
		}
		if res.Quantity > locked.Quantity-currentReserved {
			return &QuantityUnavailableError{
				ItemID:    locked.ID,
				Requested: res.Quantity,
				Available: locked.Quantity - currentReserved,
			}
		}

		if err := tx.SetReservationStatus(ctx, res.ID, models.ReservationConfirmed); err != nil {
			return err
		}
		reserved, err := s.reconciler.RefreshTx(ctx, tx, locked.ID)
		if err != nil {
			return err
		}

		res.Status = models.ReservationConfirmed
		reservation = res
		item = locked
		result = ReserveResult{
			ReservationID:       res.ID,
			Status:              models.ReservationConfirmed,
			NewReservedQuantity: reserved,
			AvailableQuantity:   locked.Quantity - reserved,
		}
		return nil
	})
	if err != nil {
		if IsQuantityUnavailable(err) {
			s.metrics.QuantityConflicts.Inc()
		}
		return nil, storageWrap("confirm reservation", err)
	}

	s.metrics.ReservationsTotal.WithLabelValues(string(models.ReservationConfirmed)).Inc()

	if list, err := s.Lists.GetByID(ctx, item.ListID); err == nil && list != nil {
		s.notifier.ReservationConfirmed(ctx, reservation, item, list)
	}

	return &result, nil
}

// CancelReservation transitions a viewer's own reservation to cancelled and
// releases its quantity in the same transaction.
func (s *Service) CancelReservation(ctx context.Context, id int64, viewer Viewer) (*ReserveResult, error) {
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "cancelling requires authentication"}
	}

	var result ReserveResult
	err := s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		res, err := tx.ReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if res == nil {
			return &NotFoundError{Resource: "reservation", Ref: fmt.Sprint(id)}
		}
		if res.ReservedBy != viewer.Email {
			return &AuthorizationError{Message: "only the reserver can cancel a reservation"}
		}
		if res.Status == models.ReservationCancelled {
			return &ValidationError{Message: "reservation is already cancelled"}
		}

		locked, err := tx.ItemForUpdate(ctx, res.ItemID)
		if err != nil {
			return err
		}
		if locked == nil {
			return &NotFoundError{Resource: "gift item", Ref: fmt.Sprint(res.ItemID)}
		}

		if err := tx.SetReservationStatus(ctx, res.ID, models.ReservationCancelled); err != nil {
			return err
		}
		reserved, err := s.reconciler.RefreshTx(ctx, tx, locked.ID)
		if err != nil {
			return err
		}

		result = ReserveResult{
			ReservationID:       res.ID,
			Status:              models.ReservationCancelled,
			NewReservedQuantity: reserved,
			AvailableQuantity:   locked.Quantity - reserved,
		}
		return nil
	})
	if err != nil {
		return nil, storageWrap("cancel reservation", err)
	}

	s.metrics.ReservationsTotal.WithLabelValues(string(models.ReservationCancelled)).Inc()

	return &result, nil
}

// Availability returns the ledger-derived quantity snapshot for an item.
// The item's list visibility applies: items on a private list only report
// availability to the creator and members.
func (s *Service) Availability(ctx context.Context, viewer Viewer, ref models.Ref) (Availability, error) {
	s.metrics.AvailabilityPolls.Inc()

	item, err := s.Items.GetByRef(ctx, ref)
	if err != nil {
		return Availability{}, storageWrap("item lookup", err)
	}
	if item == nil || !item.IsActive {
		return Availability{}, &NotFoundError{Resource: "gift item", Ref: ref.String()}
	}
	list, err := s.requireList(ctx, models.InternalRef(item.ListID))
	if err != nil {
		return Availability{}, err
	}
	if ok, err := s.canViewList(ctx, viewer, list); err != nil {
		return Availability{}, err
	} else if !ok {
		return Availability{}, &AuthorizationError{Message: "this list is private"}
	}

	return s.reconciler.Availability(ctx, item)
}

func commentAuthor(viewer Viewer, req ReserveRequest) string {
	if req.IsAnonymous {
		return "Anonymous"
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	if viewer.Username != "" {
		return viewer.Username
	}
	return "Anonymous"
}

// newConfirmationToken generates the opaque single-use secret for
// confirm-by-link reservations.
func newConfirmationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate confirmation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
