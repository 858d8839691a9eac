package service

import (
	"context"
	"strings"

	"github.com/lheureux/giftwish/internal/models"
)

// CommentParams carries a new comment.
type CommentParams struct {
	Content     string
	IsAnonymous bool
}

// AddComment attaches a comment to an item, attributed to the viewer or to
// "Anonymous" per the anonymity flag. The list must allow comments.
func (s *Service) AddComment(ctx context.Context, viewer Viewer, itemRef models.Ref, params CommentParams) (*models.Comment, error) {
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "commenting requires authentication"}
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, &ValidationError{Message: "comment content is required"}
	}

	item, err := s.requireItem(ctx, itemRef)
	if err != nil {
		return nil, err
	}
	list, err := s.requireList(ctx, models.InternalRef(item.ListID))
	if err != nil {
		return nil, err
	}
	if !list.AllowComments {
		return nil, &AuthorizationError{Message: "comments are disabled on this list"}
	}
	if ok, err := s.canViewList(ctx, viewer, list); err != nil {
		return nil, err
	} else if !ok {
		return nil, &AuthorizationError{Message: "this list is private"}
	}

	author := viewer.Username
	if params.IsAnonymous || author == "" {
		author = "Anonymous"
	}

	comment := &models.Comment{
		ListID:      list.ID,
		ItemID:      &item.ID,
		Author:      author,
		Content:     strings.TrimSpace(params.Content),
		IsAnonymous: params.IsAnonymous,
	}

	created, err := s.Comments.Create(ctx, comment)
	if err != nil {
		return nil, storageWrap("create comment", err)
	}
	return created, nil
}

// ItemComments lists the comments on an item, newest first, applying the
// same list visibility gate as the write path. This is a display path: on
// storage failure it degrades to an empty result instead of failing the
// page.
func (s *Service) ItemComments(ctx context.Context, viewer Viewer, itemRef models.Ref) ([]*models.Comment, error) {
	item, err := s.requireItem(ctx, itemRef)
	if err != nil {
		return nil, err
	}
	list, err := s.requireList(ctx, models.InternalRef(item.ListID))
	if err != nil {
		return nil, err
	}
	if ok, err := s.canViewList(ctx, viewer, list); err != nil {
		return nil, err
	} else if !ok {
		return nil, &AuthorizationError{Message: "this list is private"}
	}

	comments, err := s.Comments.GetByItem(ctx, item.ID)
	if err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID).
			Error("Failed to load comments, degrading to empty result")
		return []*models.Comment{}, nil
	}
	return comments, nil
}
