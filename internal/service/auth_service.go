package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"LFG_Board/internal/model"
	"LFG_Board/internal/pkg"

	log "github.com/sirupsen/logrus"
)

type AuthService struct {
	store      ModerationStore
	sessions   SessionStore
	evaluator  *EntitlementEvaluator
	ledger     *BanLedger
	quota      *QuotaTracker
	tokens     *pkg.TokenIssuer
	clock      Clock
	sessionTTL time.Duration
}

func NewAuthService(store ModerationStore, sessions SessionStore, evaluator *EntitlementEvaluator, ledger *BanLedger,
	quota *QuotaTracker, tokens *pkg.TokenIssuer, clock Clock, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		store:      store,
		sessions:   sessions,
		evaluator:  evaluator,
		ledger:     ledger,
		quota:      quota,
		tokens:     tokens,
		clock:      clock,
		sessionTTL: sessionTTL,
	}
}

// Login 校验密码后经 Authorize(login)：已删除、封禁中的账号拒绝，过期封禁顺带恢复
func (s *AuthService) Login(ctx context.Context, login, password string) (*pkg.Pair, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	acc, err := s.store.FindAccountByLogin(ctx, login)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !pkg.CheckPassword(acc.Password, password) {
		return nil, ErrInvalidCredentials
	}

	if acc, err = s.evaluator.Authorize(ctx, acc.ID, model.ActionLogin); err != nil {
		return nil, err
	}
	return s.issue(ctx, acc)
}

func (s *AuthService) issue(ctx context.Context, acc *model.Account) (*pkg.Pair, error) {
	pair, err := s.tokens.GeneratePair(acc.ID, string(acc.Role))
	if err != nil {
		return nil, err
	}
	// 单点登录：新 token 覆盖旧 token
	if err = s.sessions.Save(ctx, acc.ID, pair.AccessToken, s.sessionTTL); err != nil {
		return nil, err
	}
	if err = s.store.TouchLastSeen(ctx, acc.ID, s.clock.Now()); err != nil {
		log.WithError(err).WithField("account_id", acc.ID).Warn("touch last seen failed")
	}
	return pair, nil
}

func (s *AuthService) Logout(ctx context.Context, accountID uint64) error {
	return s.sessions.Revoke(ctx, accountID)
}

// Refresh 刷新前重新走一次登录鉴权，封禁期间无法续期
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	acc, err := s.evaluator.Authorize(ctx, claims.UserID, model.ActionLogin)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, acc)
}

// Authenticate 校验 access token 与 redis 中的会话，并实时检查封禁；封禁中直接踢下线
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*model.Account, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	current, err := s.sessions.Token(ctx, claims.UserID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && current != accessToken) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, err
	}

	acc, err := s.store.FindAccount(ctx, claims.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, err
	}
	if acc.Status == model.StatusDeleted {
		s.forceLogout(ctx, acc.ID)
		return nil, ErrAccountDeleted
	}
	st, _, err := s.ledger.statusOf(ctx, acc, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if st.Banned {
		s.forceLogout(ctx, acc.ID)
		return nil, &BannedError{Reason: st.Reason, Expiration: st.Expiration}
	}

	if err = s.sessions.Touch(ctx, acc.ID, s.sessionTTL); err != nil {
		log.WithError(err).WithField("account_id", acc.ID).Warn("extend session failed")
	}
	return acc, nil
}

// VerifyStatus 客户端轮询：返回实时封禁状态，封禁中则注销会话
func (s *AuthService) VerifyStatus(ctx context.Context, accountID uint64) (BanStatus, error) {
	acc, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return BanStatus{}, err
	}
	if acc.Status == model.StatusDeleted {
		s.forceLogout(ctx, accountID)
		return BanStatus{}, ErrAccountDeleted
	}
	st, _, err := s.ledger.statusOf(ctx, acc, s.clock.Now())
	if err != nil {
		return BanStatus{}, err
	}
	if st.Banned {
		s.forceLogout(ctx, accountID)
	}
	return st, nil
}

func (s *AuthService) Heartbeat(ctx context.Context, accountID uint64) error {
	return s.store.TouchLastSeen(ctx, accountID, s.clock.Now())
}

// Profile 当前用户信息，会员状态已归一化
type Profile struct {
	*model.Account
	Posts    QuotaUsage `json:"posts_quota"`
	Comments QuotaUsage `json:"comments_quota"`
}

func (s *AuthService) Me(ctx context.Context, accountID uint64) (*Profile, error) {
	acc, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc, err = s.evaluator.Normalize(ctx, acc); err != nil {
		return nil, err
	}
	return &Profile{
		Account:  acc,
		Posts:    s.quota.Usage(acc, model.ActionPost),
		Comments: s.quota.Usage(acc, model.ActionComment),
	}, nil
}

// PublicProfile 对外展示的用户信息
type PublicProfile struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicProfile 已删除账号按不存在处理
func (s *AuthService) PublicProfile(ctx context.Context, accountID uint64) (*PublicProfile, error) {
	acc, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.Status == model.StatusDeleted {
		return nil, model.ErrNotFound
	}
	return &PublicProfile{
		ID:        acc.ID,
		Username:  acc.Username,
		IsPremium: acc.PremiumActiveAt(s.clock.Now()),
		CreatedAt: acc.CreatedAt,
	}, nil
}

func (s *AuthService) forceLogout(ctx context.Context, accountID uint64) {
	if err := s.sessions.Revoke(ctx, accountID); err != nil {
		log.WithError(err).WithField("account_id", accountID).Warn("force logout failed")
	}
}
