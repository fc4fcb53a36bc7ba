package database

import (
	"context"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepository struct {
	DB *gorm.DB
}

// CreateComment 帖子检查、额度扣减、评论与给帖主的通知同事务写入
func (r *CommentRepository) CreateComment(ctx context.Context, c *model.Comment, n *model.Notification, charge *model.QuotaCharge) error {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.CreatedAt
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").
			Where("id = ? AND status = ?", c.PostID, model.PostStatusNormal).
			Take(&post).Error
		if err != nil {
			return notFound(err)
		}
		if err = chargeQuota(tx, charge); err != nil {
			return err
		}
		if err = tx.Create(c).Error; err != nil {
			return err
		}
		if n == nil {
			return nil
		}
		n.CommentID = c.ID
		n.CreatedAt = c.CreatedAt
		return tx.Create(n).Error
	})
}

func (r *CommentRepository) FindComment(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// UpdateCommentContent 调用方已确认评论存在（MySQL 内容未变化时 RowsAffected 为 0）
func (r *CommentRepository) UpdateCommentContent(ctx context.Context, id uint64, content string) error {
	return r.DB.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("content", content).Error
}

// DeleteComment 连带删除这条评论产生的通知
func (r *CommentRepository) DeleteComment(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrNotFound
		}
		return tx.Where("comment_id = ?", id).Delete(&model.Notification{}).Error
	})
}

func (r *CommentRepository) ListComments(ctx context.Context, postID uint64, offset, limit int) ([]model.Comment, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Comment
	err := r.DB.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *CommentRepository) CountComments(ctx context.Context, postIDs []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PostID uint64
		N      int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = row.N
	}
	return out, nil
}
