package database

import (
	"context"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func (r *NotificationRepository) ListUnread(ctx context.Context, accountID uint64) ([]model.Notification, error) {
	list := []model.Notification{}
	err := r.DB.WithContext(ctx).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Order("id DESC").
		Find(&list).Error
	return list, err
}

// MarkRead 按 (id, account_id) 查询，别人的通知视为不存在
func (r *NotificationRepository) MarkRead(ctx context.Context, accountID, id uint64) error {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND account_id = ?", id, accountID).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, accountID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) DeleteRead(ctx context.Context, accountID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("account_id = ? AND is_read = ?", accountID, true).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
