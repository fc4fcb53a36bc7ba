package database

import (
	"context"
	"errors"
	"slices"
	"time"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
)

type AccountRepository struct {
	DB *gorm.DB
}

func (r *AccountRepository) CreateAccount(ctx context.Context, acc *model.Account) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Account{}).
			Where("username = ? OR email = ?", acc.Username, acc.Email).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return model.ErrConflict
		}
		acc.LastQuotaReset = acc.LastQuotaReset.UTC()
		err := tx.Create(acc).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ErrConflict
		}
		return err
	})
}

func (r *AccountRepository) FindAccount(ctx context.Context, id uint64) (*model.Account, error) {
	var acc model.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&acc).Error; err != nil {
		return nil, notFound(err)
	}
	return &acc, nil
}

// FindAccountByLogin 用户名或邮箱登录
func (r *AccountRepository) FindAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	var acc model.Account
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", login, login).Take(&acc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &acc, nil
}

func (r *AccountRepository) ListAccounts(ctx context.Context, offset, limit int) ([]model.Account, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&model.Account{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Account
	err := r.DB.WithContext(ctx).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *AccountRepository) FindAccounts(ctx context.Context, ids []uint64) ([]model.Account, error) {
	var list []model.Account
	if len(ids) == 0 {
		return list, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

// CountAccounts 按角色统计总数与 seenSince 之后活跃的在线数
func (r *AccountRepository) CountAccounts(ctx context.Context, role model.Role, seenSince time.Time) (total, online int64, err error) {
	q := r.DB.WithContext(ctx).Model(&model.Account{}).Where("role = ?", role)
	if err = q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = q.Where("last_seen_at >= ?", seenSince.UTC()).Count(&online).Error
	return total, online, err
}

// TransitionStatus 行锁内校验当前状态，与 outbox 同事务提交
func (r *AccountRepository) TransitionStatus(ctx context.Context, id uint64, from []model.AccountStatus, to model.AccountStatus, ev model.Event) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, id)
		if err != nil {
			return err
		}
		if !slices.Contains(from, acc.Status) {
			return model.ErrConflict
		}
		if err = tx.Model(&model.Account{}).Where("id = ?", id).Update("status", to).Error; err != nil {
			return err
		}
		return insertOutbox(tx, ev)
	})
}

func (r *AccountRepository) SetPremium(ctx context.Context, id uint64, premium bool, expiresAt *time.Time, ev model.Event) error {
	if !premium {
		expiresAt = nil
	}
	if expiresAt != nil {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, id)
		if err != nil {
			return err
		}
		if acc.Status == model.StatusDeleted {
			return model.ErrConflict
		}
		if err = tx.Model(&model.Account{}).Where("id = ?", id).
			Updates(map[string]any{"is_premium": premium, "premium_expires_at": expiresAt}).Error; err != nil {
			return err
		}
		return insertOutbox(tx, ev)
	})
}

// ExpirePremium 条件更新，重复调用不会重复写事件
func (r *AccountRepository) ExpirePremium(ctx context.Context, id uint64, now time.Time, ev model.Event) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Account{}).
			Where("id = ? AND is_premium = ? AND premium_expires_at IS NOT NULL AND premium_expires_at < ?", id, true, now.UTC()).
			Updates(map[string]any{"is_premium": false, "premium_expires_at": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return insertOutbox(tx, ev)
	})
	return changed, err
}

func (r *AccountRepository) TouchLastSeen(ctx context.Context, id uint64, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).UpdateColumn("last_seen_at", at.UTC()).Error
}
