package service

import (
	"context"
	"time"

	"github.com/lheureux/giftwish/internal/models"
)

// ReservationView is what a viewer may learn about a single reservation.
// Identity fields are populated only on the reserver's own rows; views
// built for the list creator are produced by a constructor that never
// copies them at all.
type ReservationView struct {
	ID          int64     `json:"id"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	DisplayName string    `json:"display_name,omitempty"`
	IsOwn       bool      `json:"is_own,omitempty"`
	// Contact details, echoed back only to the reserver themself.
	ReservedBy     string `json:"reserved_by,omitempty"`
	ReservedByName string `json:"reserved_by_name,omitempty"`
}

// ItemView is the per-viewer rendering of a gift item. Quantity counters
// are pointers so they can be withheld entirely from a creator who opted
// to hide reservation state.
type ItemView struct {
	ID                int64               `json:"id"`
	PublicToken       string              `json:"public_token"`
	ListID            int64               `json:"list_id"`
	Name              string              `json:"name"`
	Description       string              `json:"description,omitempty"`
	URL               string              `json:"url,omitempty"`
	Image             string              `json:"image,omitempty"`
	Price             *float64            `json:"price,omitempty"`
	Priority          models.ItemPriority `json:"priority"`
	Position          int                 `json:"position"`
	Quantity          int                 `json:"quantity"`
	ReservedQuantity  *int                `json:"reserved_quantity,omitempty"`
	AvailableQuantity *int                `json:"available_quantity,omitempty"`
	Reservations      []ReservationView   `json:"reservations,omitempty"`
}

// BuildItemView applies the visibility policy for one item.
//
// The list creator never receives reserver identities, whatever the
// per-reservation anonymity flags say: the surprise is structural, so
// creator views are assembled from quantity and timestamp only. With
// hide_reserved_items set, the creator additionally sees no reservation
// state at all. Other viewers always see the counts; each viewer gets
// their own contact details back on reservations they made.
func BuildItemView(viewer Viewer, list *models.GiftList, item *models.GiftItem, reservations []*models.Reservation) *ItemView {
	view := &ItemView{
		ID:          item.ID,
		PublicToken: item.PublicToken,
		ListID:      item.ListID,
		Name:        item.Name,
		Description: item.Description,
		URL:         item.URL,
		Image:       item.Image,
		Priority:    item.Priority,
		Position:    item.Position,
		Quantity:    item.Quantity,
	}

	isCreator := !viewer.IsAnonymous() && list.IsOwnedBy(viewer.ID)

	if isCreator || list.ShowPrices {
		view.Price = item.Price
	}

	if isCreator && list.HideReservedItems {
		return view
	}

	reserved := 0
	for _, r := range reservations {
		if r.Status == models.ReservationConfirmed {
			reserved += r.Quantity
		}
	}
	available := item.Quantity - reserved
	if available < 0 {
		available = 0
	}
	view.ReservedQuantity = &reserved
	view.AvailableQuantity = &available

	for _, r := range reservations {
		if r.Status != models.ReservationConfirmed {
			continue
		}
		view.Reservations = append(view.Reservations, buildReservationView(viewer, isCreator, r))
	}

	return view
}

// buildReservationView renders one ledger row for a viewer. Creator views
// start and stay identity-free.
func buildReservationView(viewer Viewer, isCreator bool, r *models.Reservation) ReservationView {
	view := ReservationView{
		ID:        r.ID,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
	}
	if isCreator {
		return view
	}

	view.DisplayName = r.DisplayName()
	if !viewer.IsAnonymous() && r.ReservedBy == viewer.Email {
		view.IsOwn = true
		view.ReservedBy = r.ReservedBy
		if r.ReservedByName != nil {
			view.ReservedByName = *r.ReservedByName
		}
	}
	return view
}

// canViewList applies list visibility: public and unlisted lists are open,
// private lists admit only the creator and explicitly added members.
func (s *Service) canViewList(ctx context.Context, viewer Viewer, list *models.GiftList) (bool, error) {
	if list.Visibility != models.VisibilityPrivate {
		return true, nil
	}
	if viewer.IsAnonymous() {
		return false, nil
	}
	if list.IsOwnedBy(viewer.ID) {
		return true, nil
	}
	member, err := s.Lists.IsFollower(ctx, list.ID, viewer.ID)
	if err != nil {
		return false, storageWrap("membership check", err)
	}
	return member, nil
}

// buildItemViews renders a slice of items for a viewer, attaching each
// item's confirmed reservations. Reservation lookups degrade to counters
// from the cached column on error rather than failing the whole page; the
// degraded view never fabricates rows.
func (s *Service) buildItemViews(ctx context.Context, viewer Viewer, list *models.GiftList, items []*models.GiftItem) []*ItemView {
	views := make([]*ItemView, 0, len(items))
	for _, item := range items {
		reservations, err := s.Reservations.GetConfirmedByItem(ctx, item.ID)
		if err != nil {
			s.logger.WithError(err).WithField("item_id", item.ID).
				Error("Failed to load reservations for item view, degrading to cached counters")
			views = append(views, s.degradedItemView(viewer, list, item))
			continue
		}
		views = append(views, BuildItemView(viewer, list, item, reservations))
	}
	return views
}

func (s *Service) degradedItemView(viewer Viewer, list *models.GiftList, item *models.GiftItem) *ItemView {
	view := BuildItemView(viewer, list, item, nil)
	if view.ReservedQuantity != nil {
		reserved := item.ReservedQuantity
		available := item.AvailableQuantity()
		view.ReservedQuantity = &reserved
		view.AvailableQuantity = &available
	}
	return view
}
