package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LFG_Board/internal/model"

	"gorm.io/gorm"
)

type QuotaRepository struct {
	DB *gorm.DB
}

// IncrementQuota 过期窗口清零与条件自增在同一事务；自增条件 col < limit 由数据库原子判断
func (r *QuotaRepository) IncrementQuota(ctx context.Context, id uint64, action model.ActionKind, limit int, now time.Time) (bool, error) {
	charge := &model.QuotaCharge{AccountID: id, Action: action, Limit: limit, At: now}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return chargeQuota(tx, charge)
	})
	if errors.Is(err, model.ErrQuotaExhausted) {
		return false, nil
	}
	return err == nil, err
}

// chargeQuota 必须在业务事务内调用；额度不足返回 ErrQuotaExhausted，账号不存在返回 ErrNotFound
func chargeQuota(tx *gorm.DB, charge *model.QuotaCharge) error {
	if charge == nil {
		return nil
	}
	col := charge.Action.CounterColumn()
	if col == "" {
		return nil
	}
	now := charge.At.UTC()

	if err := tx.Model(&model.Account{}).
		Where("id = ? AND last_quota_reset < ?", charge.AccountID, now.Add(-model.QuotaWindow)).
		UpdateColumns(map[string]any{"posts_today": 0, "comments_today": 0, "last_quota_reset": now}).Error; err != nil {
		return err
	}

	q := tx.Model(&model.Account{}).Where("id = ?", charge.AccountID)
	if charge.Limit >= 0 {
		q = q.Where(fmt.Sprintf("%s < ?", col), charge.Limit)
	}
	res := q.UpdateColumn(col, gorm.Expr(col+" + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// 未命中：区分账号不存在与额度用尽
	var n int64
	if err := tx.Model(&model.Account{}).Where("id = ?", charge.AccountID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return model.ErrQuotaExhausted
}
