package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"LFG_Board/internal/model"

	log "github.com/sirupsen/logrus"
)

const PermanentBan = "perm"

var banDurations = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// BanExpiration 把时长代码换算为到期时间，perm 返回 nil
func BanExpiration(code string, bannedAt time.Time) (*time.Time, error) {
	if code == PermanentBan {
		return nil, nil
	}
	d, ok := banDurations[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, code)
	}
	exp := bannedAt.Add(d)
	return &exp, nil
}

// BanStatus 当前封禁状态（实时计算，不依赖 status 字段是否已回写）
type BanStatus struct {
	Banned     bool       `json:"banned"`
	Reason     string     `json:"reason,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

type BanLedger struct {
	store    ModerationStore
	sessions SessionStore
	clock    Clock
}

func NewBanLedger(store ModerationStore, sessions SessionStore, clock Clock) *BanLedger {
	return &BanLedger{store: store, sessions: sessions, clock: clock}
}

// RecordBan 追加封禁记录并置为 banned，随后踢掉该账号的会话
func (l *BanLedger) RecordBan(ctx context.Context, accountID uint64, reason, durationCode string, bannedBy uint64) (*model.BanRecord, error) {
	now := l.clock.Now()
	exp, err := BanExpiration(durationCode, now)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalidInput("ban reason is required")
	}

	rec := &model.BanRecord{
		AccountID:     accountID,
		Reason:        reason,
		BannedAt:      now,
		BanExpiration: exp,
		BannedByID:    bannedBy,
	}
	ev := model.Event{
		Type:      model.EventAccountBanned,
		AccountID: accountID,
		ActorID:   bannedBy,
		At:        now,
		Data:      map[string]any{"reason": reason, "duration": durationCode, "ban_expiration": exp},
	}
	if err = l.store.AppendBan(ctx, rec, ev); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, fmt.Errorf("%w: account %d is deleted", ErrInvalidTransition, accountID)
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"banned_by":  bannedBy,
		"duration":   durationCode,
	}).Info("account banned")

	// 封禁已提交；会话清理失败时由中间件的逐请求封禁检查兜底
	if err = l.sessions.Revoke(ctx, accountID); err != nil {
		log.WithError(err).WithField("account_id", accountID).Warn("revoke session after ban failed")
	}
	return rec, nil
}

// CurrentBanStatus 只读：过期的封禁视为已解封，但不回写 status
func (l *BanLedger) CurrentBanStatus(ctx context.Context, accountID uint64) (BanStatus, error) {
	acc, err := l.store.FindAccount(ctx, accountID)
	if err != nil {
		return BanStatus{}, err
	}
	st, _, err := l.statusOf(ctx, acc, l.clock.Now())
	return st, err
}

// statusOf 只有 status=banned 才看封禁记录；显式解封不追加记录，靠 status 区分
func (l *BanLedger) statusOf(ctx context.Context, acc *model.Account, now time.Time) (BanStatus, *model.BanRecord, error) {
	if acc.Status != model.StatusBanned {
		return BanStatus{}, nil, nil
	}
	latest, err := l.store.LatestBan(ctx, acc.ID)
	if errors.Is(err, model.ErrNotFound) {
		return BanStatus{Banned: true}, nil, nil
	}
	if err != nil {
		return BanStatus{}, nil, err
	}
	if !latest.ActiveAt(now) {
		return BanStatus{}, latest, nil
	}
	return BanStatus{Banned: true, Reason: latest.Reason, Expiration: latest.BanExpiration}, latest, nil
}

// liftExpired 写路径上惰性回写：最新封禁已过期时恢复 active。
// 返回 false 说明期间状态被并发修改（新封禁或已被其他请求回写），调用方需重新读取
func (l *BanLedger) liftExpired(ctx context.Context, acc *model.Account, latest *model.BanRecord, now time.Time) (bool, error) {
	ev := model.Event{
		Type:      model.EventBanExpired,
		AccountID: acc.ID,
		At:        now,
		Data:      map[string]any{"ban_id": latest.ID, "ban_expiration": latest.BanExpiration},
	}
	changed, err := l.store.LiftExpiredBan(ctx, acc.ID, latest, ev)
	if err != nil || !changed {
		return false, err
	}
	log.WithField("account_id", acc.ID).Info("expired ban lifted")
	acc.Status = model.StatusActive
	return true, nil
}

// History 封禁历史，最新在前
func (l *BanLedger) History(ctx context.Context, accountID uint64) ([]model.BanRecord, error) {
	if _, err := l.store.FindAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return l.store.ListBans(ctx, accountID)
}
