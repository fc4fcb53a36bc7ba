package database

import (
	"context"
	"time"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

// CreatePost 额度扣减与插入同事务，插入失败时扣减一并回滚
func (r *PostRepository) CreatePost(ctx context.Context, post *model.Post, charge *model.QuotaCharge) error {
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.CreatedAt
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := chargeQuota(tx, charge); err != nil {
			return err
		}
		return tx.Create(post).Error
	})
}

func (r *PostRepository) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = post.UpdatedAt.UTC()
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Post{}).Where("id = ? AND status = ?", post.ID, model.PostStatusNormal).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return model.ErrNotFound
		}
		return tx.Model(&model.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"party_size":       post.PartySize,
			"positions_needed": post.PositionsNeeded,
			"min_rank":         post.MinRank,
			"max_rank":         post.MaxRank,
			"description":      post.Description,
			"updated_at":       post.UpdatedAt,
		}).Error
	})
}

func (r *PostRepository) FindPost(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).Where("id = ? AND status = ?", id, model.PostStatusNormal).Take(&post).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// ListPosts 基础分页查询
func (r *PostRepository) ListPosts(ctx context.Context, offset, limit int) ([]model.Post, int64, error) {
	return r.list(r.DB.WithContext(ctx).Where("status = ?", model.PostStatusNormal), offset, limit)
}

func (r *PostRepository) ListPostsByAuthor(ctx context.Context, authorID uint64, offset, limit int) ([]model.Post, int64, error) {
	q := r.DB.WithContext(ctx).Where("author_id = ? AND status = ?", authorID, model.PostStatusNormal)
	return r.list(q, offset, limit)
}

func (r *PostRepository) list(q *gorm.DB, offset, limit int) ([]model.Post, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Model(&model.Post{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Post
	err := q.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

// premiumAuthor 作者在 ? 时刻会员有效
const premiumAuthor = "accounts.is_premium = ? AND (accounts.premium_expires_at IS NULL OR accounts.premium_expires_at >= ?)"

// ListPostsByTier 关联 accounts 按作者会员状态分组
func (r *PostRepository) ListPostsByTier(ctx context.Context, premium bool, now time.Time, limit int) ([]model.Post, int64, error) {
	cond := premiumAuthor
	if !premium {
		cond = "NOT (" + premiumAuthor + ")"
	}
	q := r.DB.WithContext(ctx).Model(&model.Post{}).
		Joins("JOIN accounts ON accounts.id = posts.author_id").
		Where("posts.status = ?", model.PostStatusNormal).
		Where(cond, true, now.UTC())

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Post
	err := q.Select("posts.*").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

// ListPostsCursor 基于时间游标的查询：索引 (created_at DESC, id DESC)
// lastCreatedAt=零值表示第一页；否则用 (created_at, id) 作为严格游标
func (r *PostRepository) ListPostsCursor(ctx context.Context, lastID uint64, lastCreatedAt time.Time, limit int) ([]model.Post, error) {
	var list []model.Post
	q := r.DB.WithContext(ctx).Where("status = ?", model.PostStatusNormal)
	if !lastCreatedAt.IsZero() {
		at := lastCreatedAt.UTC()
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", at, at, lastID)
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// DeletePost 软删除，已删除不报错
func (r *PostRepository) DeletePost(ctx context.Context, id uint64) error {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Update("status", model.PostStatusDeleted).Error
}
