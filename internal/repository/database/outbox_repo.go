package database

import (
	"context"

	"LFG_Board/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// PendingOutbox outbox 查询：待投递与未超过重试上限的失败记录
func (r *OutboxRepository) PendingOutbox(ctx context.Context, batchSize, maxRetry int) ([]model.ModerationOutbox, error) {
	var list []model.ModerationOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOutboxSent outbox 成功记录消息更新
func (r *OutboxRepository) MarkOutboxSent(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.ModerationOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

// MarkOutboxFailed outbox 记录消息失败重试，delivered 记下已成功的 sink
func (r *OutboxRepository) MarkOutboxFailed(ctx context.Context, id uint64, delivered []string) error {
	return r.DB.WithContext(ctx).Model(&model.ModerationOutbox{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":    model.OutboxFailed,
			"retry":     gorm.Expr("retry + 1"),
			"delivered": datatypes.JSONSlice[string](delivered),
		}).Error
}
