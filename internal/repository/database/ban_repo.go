package database

import (
	"context"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
)

type BanRepository struct {
	DB *gorm.DB
}

// AppendBan 封禁记录与 status=banned 同事务，不会出现 banned 却没有记录
func (r *BanRepository) AppendBan(ctx context.Context, rec *model.BanRecord, ev model.Event) error {
	rec.BannedAt = rec.BannedAt.UTC()
	if rec.BanExpiration != nil {
		exp := rec.BanExpiration.UTC()
		rec.BanExpiration = &exp
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, rec.AccountID)
		if err != nil {
			return err
		}
		if acc.Status == model.StatusDeleted {
			return model.ErrConflict
		}
		if err = tx.Omit("BannedBy").Create(rec).Error; err != nil {
			return err
		}
		if err = tx.Model(&model.Account{}).Where("id = ?", rec.AccountID).
			Update("status", model.StatusBanned).Error; err != nil {
			return err
		}
		return insertOutbox(tx, ev)
	})
}

// LatestBan 最新封禁：banned_at 最大，同一时间取 id 最大
func (r *BanRepository) LatestBan(ctx context.Context, accountID uint64) (*model.BanRecord, error) {
	var rec model.BanRecord
	err := r.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("banned_at DESC, id DESC").
		Limit(1).
		Take(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// ListBans 封禁历史，带上操作的管理员
func (r *BanRepository) ListBans(ctx context.Context, accountID uint64) ([]model.BanRecord, error) {
	var list []model.BanRecord
	err := r.DB.WithContext(ctx).
		Preload("BannedBy").
		Where("account_id = ?", accountID).
		Order("banned_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// LiftExpiredBan 行锁内确认账号仍为 banned 且没有更新的封禁记录
func (r *BanRepository) LiftExpiredBan(ctx context.Context, accountID uint64, latest *model.BanRecord, ev model.Event) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := lockAccount(tx, accountID)
		if err != nil {
			return err
		}
		if acc.Status != model.StatusBanned || latest == nil {
			return nil
		}
		at := latest.BannedAt.UTC()
		var newer int64
		if err = tx.Model(&model.BanRecord{}).
			Where("account_id = ? AND (banned_at > ? OR (banned_at = ? AND id > ?))", accountID, at, at, latest.ID).
			Count(&newer).Error; err != nil {
			return err
		}
		if newer > 0 {
			return nil
		}
		if err = tx.Model(&model.Account{}).Where("id = ?", accountID).
			Update("status", model.StatusActive).Error; err != nil {
			return err
		}
		changed = true
		return insertOutbox(tx, ev)
	})
	return changed, err
}
