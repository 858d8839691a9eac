package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lheureux/giftwish/internal/models"
)

// ListParams carries the owner-editable fields of a gift list.
type ListParams struct {
	Name              string
	Description       string
	Visibility        models.ListVisibility
	ShowPrices        bool
	AllowComments     bool
	HideReservedItems bool
}

// ListDetail is a list rendered for a particular viewer.
type ListDetail struct {
	List      *models.GiftList `json:"list"`
	Items     []*ItemView      `json:"items"`
	IsOwner   bool             `json:"is_owner"`
	Followers int              `json:"followers"`
}

// CreateList creates a gift list owned by the viewer.
func (s *Service) CreateList(ctx context.Context, viewer Viewer, params ListParams) (*models.GiftList, error) {
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "creating a list requires authentication"}
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, &ValidationError{Message: "list name is required"}
	}
	visibility := params.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	switch visibility {
	case models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityUnlisted:
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unknown visibility %q", visibility)}
	}

	list := &models.GiftList{
		CreatorID:         viewer.ID,
		Name:              strings.TrimSpace(params.Name),
		Description:       strings.TrimSpace(params.Description),
		Visibility:        visibility,
		ShowPrices:        params.ShowPrices,
		AllowComments:     params.AllowComments,
		HideReservedItems: params.HideReservedItems,
	}

	created, err := s.Lists.Create(ctx, list)
	if err != nil {
		return nil, storageWrap("create list", err)
	}

	s.logger.WithField("list_id", created.ID).Infof("Created gift list %q", created.Name)
	return created, nil
}

// GetList loads a list with its items filtered through the visibility
// policy. Non-owner views bump the list's view counter.
func (s *Service) GetList(ctx context.Context, viewer Viewer, ref models.Ref) (*ListDetail, error) {
	list, err := s.requireList(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ok, err := s.canViewList(ctx, viewer, list); err != nil {
		return nil, err
	} else if !ok {
		return nil, &AuthorizationError{Message: "this list is private"}
	}

	isOwner := !viewer.IsAnonymous() && list.IsOwnedBy(viewer.ID)
	if !isOwner {
		if err := s.Lists.IncrementViews(ctx, list.ID); err != nil {
			s.logger.WithError(err).WithField("list_id", list.ID).Warn("Failed to increment view counter")
		} else {
			list.Views++
		}
	}

	items, err := s.Items.GetByList(ctx, list.ID)
	if err != nil {
		return nil, storageWrap("list items", err)
	}

	followers, err := s.Lists.GetFollowers(ctx, list.ID)
	if err != nil {
		s.logger.WithError(err).WithField("list_id", list.ID).Warn("Failed to load follower count")
	}

	return &ListDetail{
		List:      list,
		Items:     s.buildItemViews(ctx, viewer, list, items),
		IsOwner:   isOwner,
		Followers: len(followers),
	}, nil
}

// AccessibleLists returns every list the viewer can see.
func (s *Service) AccessibleLists(ctx context.Context, viewer Viewer) ([]*models.GiftList, error) {
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "listing requires authentication"}
	}
	lists, err := s.Lists.GetAccessible(ctx, viewer.ID)
	if err != nil {
		return nil, storageWrap("accessible lists", err)
	}
	return lists, nil
}

// UpdateList applies owner edits to a list.
func (s *Service) UpdateList(ctx context.Context, viewer Viewer, ref models.Ref, params ListParams) (*models.GiftList, error) {
	list, err := s.requireOwnedList(ctx, viewer, ref)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, &ValidationError{Message: "list name is required"}
	}

	list.Name = strings.TrimSpace(params.Name)
	list.Description = strings.TrimSpace(params.Description)
	if params.Visibility != "" {
		list.Visibility = params.Visibility
	}
	list.ShowPrices = params.ShowPrices
	list.AllowComments = params.AllowComments
	list.HideReservedItems = params.HideReservedItems

	updated, err := s.Lists.Update(ctx, list)
	if err != nil {
		return nil, storageWrap("update list", err)
	}
	return updated, nil
}

// DeleteList removes a list and everything it owns.
func (s *Service) DeleteList(ctx context.Context, viewer Viewer, ref models.Ref) error {
	list, err := s.requireOwnedList(ctx, viewer, ref)
	if err != nil {
		return err
	}
	if err := s.Lists.Delete(ctx, list.ID); err != nil {
		return storageWrap("delete list", err)
	}
	s.logger.WithField("list_id", list.ID).Info("Deleted gift list")
	return nil
}

// FollowList subscribes the viewer to a public or unlisted list.
func (s *Service) FollowList(ctx context.Context, viewer Viewer, ref models.Ref) error {
	if viewer.IsAnonymous() {
		return &AuthorizationError{Message: "following requires authentication"}
	}
	list, err := s.requireList(ctx, ref)
	if err != nil {
		return err
	}
	if list.IsOwnedBy(viewer.ID) {
		return &ValidationError{Message: "you cannot follow your own list"}
	}
	if list.Visibility == models.VisibilityPrivate {
		return &AuthorizationError{Message: "private lists can only be joined by invitation"}
	}

	if err := s.Lists.AddFollower(ctx, list.ID, viewer.ID); err != nil {
		return storageWrap("follow list", err)
	}

	s.notifier.FollowerAdded(ctx, viewer.ID, viewer.Username, list)
	return nil
}

// UnfollowList removes the viewer from a list's followers.
func (s *Service) UnfollowList(ctx context.Context, viewer Viewer, ref models.Ref) error {
	if viewer.IsAnonymous() {
		return &AuthorizationError{Message: "unfollowing requires authentication"}
	}
	list, err := s.requireList(ctx, ref)
	if err != nil {
		return err
	}

	removed, err := s.Lists.RemoveFollower(ctx, list.ID, viewer.ID)
	if err != nil {
		return storageWrap("unfollow list", err)
	}
	if !removed {
		return &NotFoundError{Resource: "follower", Ref: fmt.Sprint(viewer.ID)}
	}
	return nil
}

// AddMember lets the creator of a private list add a member directly.
func (s *Service) AddMember(ctx context.Context, viewer Viewer, ref models.Ref, userID int64) error {
	list, err := s.requireOwnedList(ctx, viewer, ref)
	if err != nil {
		return err
	}
	if userID == viewer.ID {
		return &ValidationError{Message: "you cannot add yourself to your own list"}
	}
	if userID <= 0 {
		return &ValidationError{Message: "a member user id is required"}
	}

	if err := s.Lists.AddFollower(ctx, list.ID, userID); err != nil {
		return storageWrap("add member", err)
	}

	s.notifier.FollowerAdded(ctx, userID, "", list)
	return nil
}

// requireList resolves a reference or fails with NotFoundError.
func (s *Service) requireList(ctx context.Context, ref models.Ref) (*models.GiftList, error) {
	list, err := s.Lists.GetByRef(ctx, ref)
	if err != nil {
		return nil, storageWrap("list lookup", err)
	}
	if list == nil {
		return nil, &NotFoundError{Resource: "gift list", Ref: ref.String()}
	}
	return list, nil
}

// requireOwnedList resolves a reference and enforces creator-only access.
func (s *Service) requireOwnedList(ctx context.Context, viewer Viewer, ref models.Ref) (*models.GiftList, error) {
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "this action requires authentication"}
	}
	list, err := s.requireList(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !list.IsOwnedBy(viewer.ID) {
		return nil, &AuthorizationError{Message: "only the list creator can do this"}
	}
	return list, nil
}
