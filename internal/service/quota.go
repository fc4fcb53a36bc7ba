package service

import (
	"context"
	"errors"
	"time"

	"LFG_Board/internal/config"
	"LFG_Board/internal/model"
)

// Unlimited 会员无上限
const Unlimited = -1

type QuotaTracker struct {
	store  QuotaStore
	limits config.RateLimits
	clock  Clock
}

func NewQuotaTracker(store QuotaStore, limits config.RateLimits, clock Clock) *QuotaTracker {
	return &QuotaTracker{store: store, limits: limits, clock: clock}
}

// Limit 免费账号取配置值，会员（按 now 判断是否有效）不限
func (q *QuotaTracker) Limit(acc *model.Account, action model.ActionKind, now time.Time) int {
	if acc.PremiumActiveAt(now) {
		return Unlimited
	}
	switch action {
	case model.ActionPost:
		return q.limits.PostsPerDay
	case model.ActionComment:
		return q.limits.CommentsPerDay
	}
	return Unlimited
}

// CheckAndIncrement 检查并占用一次额度；超限时不做任何修改
func (q *QuotaTracker) CheckAndIncrement(ctx context.Context, acc *model.Account, action model.ActionKind) error {
	return q.apply(ctx, q.Charge(acc, action))
}

// apply 单独提交一次扣减，用于不伴随内容写入的动作
func (q *QuotaTracker) apply(ctx context.Context, charge *model.QuotaCharge) error {
	if charge == nil {
		return nil
	}
	ok, err := q.store.IncrementQuota(ctx, charge.AccountID, charge.Action, charge.Limit, charge.At)
	if err != nil {
		return err
	}
	if !ok {
		return &QuotaExceededError{Action: charge.Action, Limit: charge.Limit}
	}
	return nil
}

// Charge 构造本次动作的额度扣减，不占额度的动作返回 nil
func (q *QuotaTracker) Charge(acc *model.Account, action model.ActionKind) *model.QuotaCharge {
	if !action.RateLimited() {
		return nil
	}
	now := q.clock.Now()
	return &model.QuotaCharge{AccountID: acc.ID, Action: action, Limit: q.Limit(acc, action, now), At: now}
}

// quotaError 把存储层的 ErrQuotaExhausted 转成带上限的业务错误
func quotaError(charge *model.QuotaCharge, err error) error {
	if charge != nil && errors.Is(err, model.ErrQuotaExhausted) {
		return &QuotaExceededError{Action: charge.Action, Limit: charge.Limit}
	}
	return err
}

// QuotaUsage 当日额度使用情况，Limit 为 -1 表示不限
type QuotaUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Usage 只读计算；窗口已过期时按 0 计
func (q *QuotaTracker) Usage(acc *model.Account, action model.ActionKind) QuotaUsage {
	now := q.clock.Now()
	used := acc.Counter(action)
	if WindowExpired(acc.LastQuotaReset, now) {
		used = 0
	}
	limit := q.Limit(acc, action, now)
	u := QuotaUsage{Used: used, Limit: limit, Remaining: Unlimited}
	if limit != Unlimited {
		u.Remaining = max(limit-used, 0)
	}
	return u
}

// WindowExpired 距上次重置严格超过 24 小时
func WindowExpired(lastReset, now time.Time) bool {
	return now.Sub(lastReset) > model.QuotaWindow
}
