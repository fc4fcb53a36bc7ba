package service

import (
	"context"

	"LFG_Board/internal/model"
)

type NotificationService struct {
	repo NotificationStore
}

func NewNotificationService(repo NotificationStore) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) ListUnread(ctx context.Context, accountID uint64) ([]model.Notification, error) {
	return s.repo.ListUnread(ctx, accountID)
}

func (s *NotificationService) MarkRead(ctx context.Context, accountID, id uint64) error {
	return s.repo.MarkRead(ctx, accountID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, accountID uint64) (int64, error) {
	return s.repo.MarkAllRead(ctx, accountID)
}

func (s *NotificationService) DeleteRead(ctx context.Context, accountID uint64) (int64, error) {
	return s.repo.DeleteRead(ctx, accountID)
}
