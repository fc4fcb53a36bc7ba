package service

import (
	"context"
	"errors"

	"LFG_Board/internal/model"

	log "github.com/sirupsen/logrus"
)

// Decision authorize 的结构化结果
type Decision struct {
	Allowed bool   `json:"allowed"`
	Kind    string `json:"kind,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

const (
	DecisionUnauthorized   = "unauthorized"
	DecisionAccountDeleted = "account_deleted"
	DecisionBanned         = "banned"
	DecisionQuotaExceeded  = "quota_exceeded"
)

// EntitlementEvaluator 所有写路径（登录、发帖、评论、编辑）统一经过 Authorize 或 Admit
type EntitlementEvaluator struct {
	store  ModerationStore
	ledger *BanLedger
	quota  *QuotaTracker
	clock  Clock
}

func NewEntitlementEvaluator(store ModerationStore, ledger *BanLedger, quota *QuotaTracker, clock Clock) *EntitlementEvaluator {
	return &EntitlementEvaluator{store: store, ledger: ledger, quota: quota, clock: clock}
}

// Normalize 清除已过期的会员并持久化；幂等
func (e *EntitlementEvaluator) Normalize(ctx context.Context, acc *model.Account) (*model.Account, error) {
	now := e.clock.Now()
	if !acc.IsPremium || acc.PremiumExpiresAt == nil || !now.After(*acc.PremiumExpiresAt) {
		return acc, nil
	}
	ev := model.Event{
		Type:      model.EventPremiumExpired,
		AccountID: acc.ID,
		At:        now,
		Data:      map[string]any{"premium_expires_at": acc.PremiumExpiresAt},
	}
	changed, err := e.store.ExpirePremium(ctx, acc.ID, now, ev)
	if err != nil {
		return nil, err
	}
	if changed {
		log.WithField("account_id", acc.ID).Info("premium expired")
	}
	out := *acc
	out.IsPremium = false
	out.PremiumExpiresAt = nil
	return &out, nil
}

// Authorize 归一化 -> 状态检查 -> 配额；返回归一化后的账号
func (e *EntitlementEvaluator) Authorize(ctx context.Context, accountID uint64, action model.ActionKind) (*model.Account, error) {
	acc, charge, err := e.Admit(ctx, accountID, action)
	if err != nil {
		return nil, err
	}
	if err = e.quota.apply(ctx, charge); err != nil {
		return nil, err
	}
	return acc, nil
}

// Admit 只做归一化与状态检查，额度扣减以 QuotaCharge 返回，由调用方与内容写入同事务提交
func (e *EntitlementEvaluator) Admit(ctx context.Context, accountID uint64, action model.ActionKind) (*model.Account, *model.QuotaCharge, error) {
	if !validAction(action) {
		return nil, nil, invalidInput("unknown action %q", action)
	}
	acc, err := e.store.FindAccount(ctx, accountID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil, ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}
	if acc, err = e.Normalize(ctx, acc); err != nil {
		return nil, nil, err
	}
	if acc, err = e.checkStatus(ctx, acc); err != nil {
		return nil, nil, err
	}
	return acc, e.quota.Charge(acc, action), nil
}

// checkStatus 封禁已过期时惰性恢复 active；并发冲突时重新读取一次
func (e *EntitlementEvaluator) checkStatus(ctx context.Context, acc *model.Account) (*model.Account, error) {
	for attempt := 0; ; attempt++ {
		switch acc.Status {
		case model.StatusActive:
			return acc, nil
		case model.StatusDeleted:
			return nil, ErrAccountDeleted
		case model.StatusBanned:
		default:
			return nil, ErrUnauthorized
		}

		now := e.clock.Now()
		st, latest, err := e.ledger.statusOf(ctx, acc, now)
		if err != nil {
			return nil, err
		}
		if st.Banned {
			return nil, &BannedError{Reason: st.Reason, Expiration: st.Expiration}
		}
		lifted, err := e.ledger.liftExpired(ctx, acc, latest, now)
		if err != nil {
			return nil, err
		}
		if lifted {
			return acc, nil
		}
		if attempt > 0 {
			return nil, ErrInvalidTransition
		}
		fresh, err := e.store.FindAccount(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		fresh.IsPremium, fresh.PremiumExpiresAt = acc.IsPremium, acc.PremiumExpiresAt
		acc = fresh
	}
}

// Decide 把 Authorize 的业务错误映射为 Decision；存储错误原样返回
func (e *EntitlementEvaluator) Decide(ctx context.Context, accountID uint64, action model.ActionKind) (Decision, error) {
	_, err := e.Authorize(ctx, accountID, action)
	if err == nil {
		return Decision{Allowed: true}, nil
	}
	if d, ok := DecisionFor(err); ok {
		return d, nil
	}
	return Decision{}, err
}

// DecisionFor 识别业务拒绝；非业务错误返回 ok=false
func DecisionFor(err error) (Decision, bool) {
	var banned *BannedError
	var quota *QuotaExceededError
	switch {
	case errors.As(err, &banned):
		return Decision{Kind: DecisionBanned, Detail: BanStatus{Banned: true, Reason: banned.Reason, Expiration: banned.Expiration}}, true
	case errors.As(err, &quota):
		return Decision{Kind: DecisionQuotaExceeded, Detail: map[string]any{"action": quota.Action, "limit": quota.Limit}}, true
	case errors.Is(err, ErrAccountDeleted):
		return Decision{Kind: DecisionAccountDeleted}, true
	case errors.Is(err, ErrUnauthorized):
		return Decision{Kind: DecisionUnauthorized}, true
	}
	return Decision{}, false
}

func validAction(a model.ActionKind) bool {
	switch a {
	case model.ActionLogin, model.ActionPost, model.ActionComment, model.ActionCommentEditOwn, model.ActionPostEditOwn, model.ActionFeedback:
		return true
	}
	return false
}
