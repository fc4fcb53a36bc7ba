package database

import (
	"context"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
)

type FeedbackRepository struct {
	DB *gorm.DB
}

func (r *FeedbackRepository) CreateFeedback(ctx context.Context, fb *model.Feedback) error {
	fb.CreatedAt = fb.CreatedAt.UTC()
	fb.UpdatedAt = fb.CreatedAt
	return r.DB.WithContext(ctx).Create(fb).Error
}

// ListFeedback 关联 accounts 带出提交人用户名
func (r *FeedbackRepository) ListFeedback(ctx context.Context, offset, limit int) ([]model.Feedback, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&model.Feedback{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []struct {
		model.Feedback
		Username string
	}
	err := r.DB.WithContext(ctx).Model(&model.Feedback{}).
		Select("feedback.*, accounts.username AS username").
		Joins("LEFT JOIN accounts ON accounts.id = feedback.account_id").
		Order("feedback.created_at DESC, feedback.id DESC").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	list := make([]model.Feedback, 0, len(rows))
	for _, row := range rows {
		fb := row.Feedback
		fb.Username = row.Username
		list = append(list, fb)
	}
	return list, total, nil
}

func (r *FeedbackRepository) UpdateFeedbackStatus(ctx context.Context, id uint64, status model.FeedbackStatus) error {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Feedback{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return r.DB.WithContext(ctx).Model(&model.Feedback{}).Where("id = ?", id).Update("status", status).Error
}

func (r *FeedbackRepository) CountFeedback(ctx context.Context) (map[model.FeedbackStatus]int64, error) {
	var rows []struct {
		Status model.FeedbackStatus
		N      int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Feedback{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.FeedbackStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
