package service

import (
	"context"

	"github.com/lheureux/giftwish/internal/models"
)

// NotificationFeed returns the viewer's most recent notifications.
func (s *Service) NotificationFeed(ctx context.Context, viewer Viewer, limit int) ([]*models.Notification, error) {
	if viewer.IsAnonymous() {
		return nil, &AuthorizationError{Message: "the notification feed requires authentication"}
	}

	notifications, err := s.Notifications.GetByUser(ctx, viewer.ID, limit)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", viewer.ID).
			Error("Failed to load notification feed, degrading to empty result")
		return []*models.Notification{}, nil
	}
	return notifications, nil
}

// MarkNotificationRead marks one of the viewer's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, viewer Viewer, id int64) error {
	if viewer.IsAnonymous() {
		return &AuthorizationError{Message: "the notification feed requires authentication"}
	}
	found, err := s.Notifications.MarkRead(ctx, id, viewer.ID)
	if err != nil {
		return storageWrap("mark notification read", err)
	}
	if !found {
		return &NotFoundError{Resource: "notification", Ref: models.InternalRef(id).String()}
	}
	return nil
}
