package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"LFG_Board/internal/model"
	"LFG_Board/internal/pkg"

	log "github.com/sirupsen/logrus"
)

// OnlineWindow lastSeen 在该时间内视为在线
const OnlineWindow = time.Minute

// Actor 当前操作人，由会话中间件注入
type Actor struct {
	AccountID uint64
	Role      model.Role
}

func (a Actor) IsAdmin() bool { return a.AccountID != 0 && a.Role == model.RoleAdmin }

// CanModerate 管理员与版主可查看用户列表和封禁历史
func (a Actor) CanModerate() bool {
	return a.AccountID != 0 && (a.Role == model.RoleAdmin || a.Role == model.RoleModerator)
}

// AccountStateMachine 管理端状态迁移：封禁、解封、删除、会员
type AccountStateMachine struct {
	store    ModerationStore
	ledger   *BanLedger
	sessions SessionStore
	clock    Clock
}

func NewAccountStateMachine(store ModerationStore, ledger *BanLedger, sessions SessionStore, clock Clock) *AccountStateMachine {
	return &AccountStateMachine{store: store, ledger: ledger, sessions: sessions, clock: clock}
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// Ban active|banned -> banned；重复封禁追加新记录
func (m *AccountStateMachine) Ban(ctx context.Context, actor Actor, accountID uint64, reason, durationCode string) (*model.BanRecord, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.AccountID == accountID {
		return nil, fmt.Errorf("%w: cannot ban yourself", ErrInvalidTransition)
	}
	return m.ledger.RecordBan(ctx, accountID, reason, durationCode, actor.AccountID)
}

// Unban 提前解封：只改 status，不追加记录
func (m *AccountStateMachine) Unban(ctx context.Context, actor Actor, accountID uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	ev := model.Event{Type: model.EventAccountUnbanned, AccountID: accountID, ActorID: actor.AccountID, At: m.clock.Now()}
	if err := m.transition(ctx, accountID, []model.AccountStatus{model.StatusBanned}, model.StatusActive, ev); err != nil {
		return err
	}
	log.WithFields(log.Fields{"account_id": accountID, "actor": actor.AccountID}).Info("account unbanned")
	return nil
}

// Delete 软删除，不可恢复；保留封禁记录
func (m *AccountStateMachine) Delete(ctx context.Context, actor Actor, accountID uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.AccountID == accountID {
		return fmt.Errorf("%w: cannot delete yourself", ErrInvalidTransition)
	}
	ev := model.Event{Type: model.EventAccountDeleted, AccountID: accountID, ActorID: actor.AccountID, At: m.clock.Now()}
	from := []model.AccountStatus{model.StatusActive, model.StatusBanned}
	if err := m.transition(ctx, accountID, from, model.StatusDeleted, ev); err != nil {
		return err
	}
	log.WithFields(log.Fields{"account_id": accountID, "actor": actor.AccountID}).Info("account deleted")
	if err := m.sessions.Revoke(ctx, accountID); err != nil {
		log.WithError(err).WithField("account_id", accountID).Warn("revoke session after delete failed")
	}
	return nil
}

// GrantPremium expiresAt 为 nil 表示永久会员
func (m *AccountStateMachine) GrantPremium(ctx context.Context, actor Actor, accountID uint64, expiresAt *time.Time) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	now := m.clock.Now()
	if expiresAt != nil && !expiresAt.After(now) {
		return invalidInput("premium expiry must be in the future")
	}
	ev := model.Event{
		Type:      model.EventPremiumGranted,
		AccountID: accountID,
		ActorID:   actor.AccountID,
		At:        now,
		Data:      map[string]any{"premium_expires_at": expiresAt},
	}
	if err := m.setPremium(ctx, accountID, true, expiresAt, ev); err != nil {
		return err
	}
	log.WithFields(log.Fields{"account_id": accountID, "actor": actor.AccountID}).Info("premium granted")
	return nil
}

func (m *AccountStateMachine) RevokePremium(ctx context.Context, actor Actor, accountID uint64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	ev := model.Event{Type: model.EventPremiumRevoked, AccountID: accountID, ActorID: actor.AccountID, At: m.clock.Now()}
	if err := m.setPremium(ctx, accountID, false, nil, ev); err != nil {
		return err
	}
	log.WithFields(log.Fields{"account_id": accountID, "actor": actor.AccountID}).Info("premium revoked")
	return nil
}

func (m *AccountStateMachine) BanHistory(ctx context.Context, actor Actor, accountID uint64) ([]model.BanRecord, error) {
	if !actor.CanModerate() {
		return nil, ErrUnauthorized
	}
	return m.ledger.History(ctx, accountID)
}

// AccountView 管理端用户列表项
type AccountView struct {
	model.Account
	Online bool `json:"online"`
}

func (m *AccountStateMachine) ListAccounts(ctx context.Context, actor Actor, page, size int) ([]AccountView, int64, error) {
	if !actor.CanModerate() {
		return nil, 0, ErrUnauthorized
	}
	page, size = normalizePage(page, size)
	list, total, err := m.store.ListAccounts(ctx, (page-1)*size, size)
	if err != nil {
		return nil, 0, err
	}
	since := m.clock.Now().Add(-OnlineWindow)
	out := make([]AccountView, 0, len(list))
	for _, a := range list {
		online := a.LastSeenAt != nil && !a.LastSeenAt.Before(since)
		out = append(out, AccountView{Account: a, Online: online})
	}
	return out, total, nil
}

// UserSummary 普通用户总数与在线数
type UserSummary struct {
	Total  int64 `json:"total"`
	Online int64 `json:"online"`
}

func (m *AccountStateMachine) UserSummary(ctx context.Context, actor Actor) (UserSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return UserSummary{}, err
	}
	total, online, err := m.store.CountAccounts(ctx, model.RoleUser, m.clock.Now().Add(-OnlineWindow))
	if err != nil {
		return UserSummary{}, err
	}
	return UserSummary{Total: total, Online: online}, nil
}

// CreateAccountInput 管理端创建用户
type CreateAccountInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

func (m *AccountStateMachine) CreateAccount(ctx context.Context, actor Actor, in CreateAccountInput) (*model.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || len(username) > 32 {
		return nil, invalidInput("username must be 1-32 characters")
	}
	if !strings.Contains(email, "@") || len(email) > 64 {
		return nil, invalidInput("invalid email")
	}
	if len(in.Password) < 6 {
		return nil, invalidInput("password must be at least 6 characters")
	}
	role := model.RoleUser
	if in.Role != "" {
		r, ok := model.ParseRole(in.Role)
		if !ok {
			return nil, invalidInput("unknown role %q", in.Role)
		}
		role = r
	}

	hash, err := pkg.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	acc := &model.Account{
		Username:       username,
		Email:          email,
		Password:       hash,
		Role:           role,
		Status:         model.StatusActive,
		LastQuotaReset: m.clock.Now(),
	}
	if err = m.store.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, invalidInput("username or email already taken")
		}
		return nil, err
	}
	log.WithFields(log.Fields{"account_id": acc.ID, "actor": actor.AccountID, "role": role}).Info("account created")
	return acc, nil
}

func (m *AccountStateMachine) transition(ctx context.Context, id uint64, from []model.AccountStatus, to model.AccountStatus, ev model.Event) error {
	err := m.store.TransitionStatus(ctx, id, from, to, ev)
	if errors.Is(err, model.ErrConflict) {
		return fmt.Errorf("%w: account %d cannot become %s", ErrInvalidTransition, id, to)
	}
	return err
}

func (m *AccountStateMachine) setPremium(ctx context.Context, id uint64, premium bool, expiresAt *time.Time, ev model.Event) error {
	err := m.store.SetPremium(ctx, id, premium, expiresAt, ev)
	if errors.Is(err, model.ErrConflict) {
		return fmt.Errorf("%w: account %d is deleted", ErrInvalidTransition, id)
	}
	return err
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return page, size
}
