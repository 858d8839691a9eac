package service

import (
	"context"
	"strings"

	"github.com/lheureux/giftwish/internal/models"
)

// ItemParams carries the owner-editable fields of a gift item.
type ItemParams struct {
	Name        string
	Description string
	URL         string
	Price       *float64
	Image       string
	Quantity    int
	Priority    models.ItemPriority
}

// AddItem appends an item to the end of a list the viewer owns.
func (s *Service) AddItem(ctx context.Context, viewer Viewer, listRef models.Ref, params ItemParams) (*models.GiftItem, error) {
	list, err := s.requireOwnedList(ctx, viewer, listRef)
	if err != nil {
		return nil, err
	}
	if err := validateItemParams(&params); err != nil {
		return nil, err
	}

	maxPos, err := s.Items.MaxPosition(ctx, list.ID)
	if err != nil {
		return nil, storageWrap("max position", err)
	}

	item := &models.GiftItem{
		ListID:      list.ID,
		Name:        strings.TrimSpace(params.Name),
		Description: strings.TrimSpace(params.Description),
		URL:         strings.TrimSpace(params.URL),
		Price:       params.Price,
		Image:       params.Image,
		Quantity:    params.Quantity,
		Priority:    params.Priority,
		Position:    maxPos + 1,
	}

	created, err := s.Items.Create(ctx, item)
	if err != nil {
		return nil, storageWrap("create item", err)
	}

	s.notifier.ItemAdded(ctx, created, list)
	return created, nil
}

// ListItems returns a list's active items rendered for the viewer.
func (s *Service) ListItems(ctx context.Context, viewer Viewer, listRef models.Ref) ([]*ItemView, error) {
	list, err := s.requireList(ctx, listRef)
	if err != nil {
		return nil, err
	}
	if ok, err := s.canViewList(ctx, viewer, list); err != nil {
		return nil, err
	} else if !ok {
		return nil, &AuthorizationError{Message: "this list is private"}
	}

	items, err := s.Items.GetByList(ctx, list.ID)
	if err != nil {
		return nil, storageWrap("list items", err)
	}
	return s.buildItemViews(ctx, viewer, list, items), nil
}

// UpdateItem applies owner edits to an item. The reserved quantity cache is
// untouched: only the reconciler writes it.
func (s *Service) UpdateItem(ctx context.Context, viewer Viewer, ref models.Ref, params ItemParams) (*models.GiftItem, error) {
	item, _, err := s.requireOwnedItem(ctx, viewer, ref)
	if err != nil {
		return nil, err
	}
	if err := validateItemParams(&params); err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(params.Name)
	item.Description = strings.TrimSpace(params.Description)
	item.URL = strings.TrimSpace(params.URL)
	item.Price = params.Price
	item.Image = params.Image
	item.Quantity = params.Quantity
	item.Priority = params.Priority

	updated, err := s.Items.Update(ctx, item)
	if err != nil {
		return nil, storageWrap("update item", err)
	}
	return updated, nil
}

// DeleteItem soft-deletes an item. Historical reservations stay queryable
// by id; the item simply stops appearing in list views.
func (s *Service) DeleteItem(ctx context.Context, viewer Viewer, ref models.Ref) error {
	item, _, err := s.requireOwnedItem(ctx, viewer, ref)
	if err != nil {
		return err
	}
	if err := s.Items.SoftDelete(ctx, item.ID); err != nil {
		return storageWrap("delete item", err)
	}
	return nil
}

// MoveItem changes an item's ordering position within its list.
func (s *Service) MoveItem(ctx context.Context, viewer Viewer, ref models.Ref, position int) error {
	item, _, err := s.requireOwnedItem(ctx, viewer, ref)
	if err != nil {
		return err
	}
	if position < 1 {
		return &ValidationError{Message: "position must be at least 1"}
	}
	if err := s.Items.UpdatePosition(ctx, item.ID, position); err != nil {
		return storageWrap("move item", err)
	}
	return nil
}

// requireItem resolves an item reference, tolerating soft-deleted items so
// historical data stays reachable by id.
func (s *Service) requireItem(ctx context.Context, ref models.Ref) (*models.GiftItem, error) {
	item, err := s.Items.GetByRef(ctx, ref)
	if err != nil {
		return nil, storageWrap("item lookup", err)
	}
	if item == nil {
		return nil, &NotFoundError{Resource: "gift item", Ref: ref.String()}
	}
	return item, nil
}

// requireOwnedItem resolves an item and enforces that the viewer owns its
// list.
func (s *Service) requireOwnedItem(ctx context.Context, viewer Viewer, ref models.Ref) (*models.GiftItem, *models.GiftList, error) {
	if viewer.IsAnonymous() {
		return nil, nil, &AuthorizationError{Message: "this action requires authentication"}
	}
	item, err := s.requireItem(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.Lists.GetByID(ctx, item.ListID)
	if err != nil {
		return nil, nil, storageWrap("list lookup", err)
	}
	if list == nil {
		return nil, nil, &NotFoundError{Resource: "gift list", Ref: ref.String()}
	}
	if !list.IsOwnedBy(viewer.ID) {
		return nil, nil, &AuthorizationError{Message: "only the list creator can do this"}
	}
	return item, list, nil
}

func validateItemParams(params *ItemParams) error {
	if strings.TrimSpace(params.Name) == "" {
		return &ValidationError{Message: "item name is required"}
	}
	if params.Quantity < 0 {
		return &ValidationError{Message: "quantity cannot be negative"}
	}
	if params.Quantity == 0 {
		params.Quantity = 1
	}
	if params.Priority == "" {
		params.Priority = models.PriorityMedium
	}
	switch params.Priority {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
	default:
		return &ValidationError{Message: "priority must be low, medium or high"}
	}
	return nil
}
