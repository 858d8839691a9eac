package service

import (
	"context"
	"sort"

	"github.com/lheureux/giftwish/internal/models"
)

// ListStats summarizes reservation activity on a single list for its
// creator. Values derive from real item and ledger rows only; a failed
// sub-query degrades that portion to zero, never to fabricated data.
type ListStats struct {
	Views           int64       `json:"views"`
	Followers       int         `json:"followers"`
	TotalItems      int         `json:"total_items"`
	ReservedItems   int         `json:"reserved_items"`
	ReservationRate int         `json:"reservation_rate"`
	TotalValue      float64     `json:"total_value"`
	ReservedValue   float64     `json:"reserved_value"`
	PopularItems    []*ItemView `json:"popular_items"`
}

// OwnerStats aggregates across all lists the viewer created.
type OwnerStats struct {
	TotalLists      int                `json:"total_lists"`
	TotalViews      int64              `json:"total_views"`
	TotalItems      int                `json:"total_items"`
	ReservedItems   int                `json:"reserved_items"`
	ReservationRate int                `json:"reservation_rate"`
	TotalValue      float64            `json:"total_value"`
	ReservedValue   float64            `json:"reserved_value"`
	PopularLists    []*models.GiftList `json:"popular_lists"`
}

// ListStats computes the creator's statistics page for one list.
func (s *Service) ListStats(ctx context.Context, viewer Viewer, ref models.Ref) (*ListStats, error) {
	list, err := s.requireOwnedList(ctx, viewer, ref)
	if err != nil {
		return nil, err
	}

	items, err := s.Items.GetByList(ctx, list.ID)
	if err != nil {
		return nil, storageWrap("list items", err)
	}

	stats := &ListStats{Views: list.Views, TotalItems: len(items)}

	followers, err := s.Lists.GetFollowers(ctx, list.ID)
	if err != nil {
		s.logger.WithError(err).WithField("list_id", list.ID).Warn("Failed to load followers for stats")
	} else {
		stats.Followers = len(followers)
	}

	reservedByItem := s.reservedByItem(ctx, items)

	var popular []*models.GiftItem
	for _, item := range items {
		reserved := reservedByItem[item.ID]
		if item.Price != nil {
			stats.TotalValue += *item.Price * float64(item.Quantity)
			stats.ReservedValue += *item.Price * float64(reserved)
		}
		if reserved > 0 {
			stats.ReservedItems++
			popular = append(popular, item)
		}
	}
	if stats.TotalItems > 0 {
		stats.ReservationRate = stats.ReservedItems * 100 / stats.TotalItems
	}

	sort.Slice(popular, func(i, j int) bool {
		return reservedByItem[popular[i].ID] > reservedByItem[popular[j].ID]
	})
	if len(popular) > 5 {
		popular = popular[:5]
	}
	stats.PopularItems = s.buildItemViews(ctx, viewer, list, popular)

	return stats, nil
}

// OwnerStats computes the aggregate statistics page across the viewer's
// lists.
func (s *Service) OwnerStats(ctx context.Context, viewer Viewer) (*OwnerStats, error) {
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "statistics require authentication"}
	}

	lists, err := s.Lists.GetByCreator(ctx, viewer.ID)
	if err != nil {
		return nil, storageWrap("creator lists", err)
	}

	stats := &OwnerStats{TotalLists: len(lists)}
	for _, list := range lists {
		stats.TotalViews += list.Views

		items, err := s.Items.GetByList(ctx, list.ID)
		if err != nil {
			s.logger.WithError(err).WithField("list_id", list.ID).
				Warn("Failed to load items for stats, skipping list")
			continue
		}
		stats.TotalItems += len(items)

		reservedByItem := s.reservedByItem(ctx, items)
		for _, item := range items {
			reserved := reservedByItem[item.ID]
			if item.Price != nil {
				stats.TotalValue += *item.Price * float64(item.Quantity)
				stats.ReservedValue += *item.Price * float64(reserved)
			}
			if reserved > 0 {
				stats.ReservedItems++
			}
		}
	}
	if stats.TotalItems > 0 {
		stats.ReservationRate = stats.ReservedItems * 100 / stats.TotalItems
	}

	popular := make([]*models.GiftList, len(lists))
	copy(popular, lists)
	sort.Slice(popular, func(i, j int) bool { return popular[i].Views > popular[j].Views })
	if len(popular) > 5 {
		popular = popular[:5]
	}
	stats.PopularLists = popular

	return stats, nil
}

// reservedByItem resolves each item's confirmed sum through the
// reconciler, degrading to zero for items whose ledger read fails.
func (s *Service) reservedByItem(ctx context.Context, items []*models.GiftItem) map[int64]int {
	reserved := make(map[int64]int, len(items))
	for _, item := range items {
		n, err := s.reconciler.ReservedQuantity(ctx, item.ID)
		if err != nil {
			s.logger.WithError(err).WithField("item_id", item.ID).
				Warn("Failed to compute reserved quantity for stats")
			continue
		}
		reserved[item.ID] = n
	}
	return reserved
}
