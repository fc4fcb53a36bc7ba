// Package memory 提供与数据库实现同一契约的内存版本，用于单元测试
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"LFG_Board/internal/model"
)

type Store struct {
	mu sync.Mutex

	accounts      map[uint64]*model.Account
	bans          []model.BanRecord
	posts         map[uint64]*model.Post
	comments      map[uint64]*model.Comment
	notifications map[uint64]*model.Notification
	outbox        []model.ModerationOutbox
	feedback      []model.Feedback

	nextID uint64
}

func NewStore() *Store {
	return &Store{
		accounts:      map[uint64]*model.Account{},
		posts:         map[uint64]*model.Post{},
		comments:      map[uint64]*model.Comment{},
		notifications: map[uint64]*model.Notification{},
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func cloneAccount(a *model.Account) *model.Account {
	c := *a
	if a.PremiumExpiresAt != nil {
		t := *a.PremiumExpiresAt
		c.PremiumExpiresAt = &t
	}
	if a.LastSeenAt != nil {
		t := *a.LastSeenAt
		c.LastSeenAt = &t
	}
	c.Bans = nil
	return &c
}

// ---- accounts ----

func (s *Store) CreateAccount(_ context.Context, acc *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == acc.Username || a.Email == acc.Email {
			return model.ErrConflict
		}
	}
	acc.ID = s.id()
	if acc.Role == "" {
		acc.Role = model.RoleUser
	}
	if acc.Status == "" {
		acc.Status = model.StatusActive
	}
	acc.CreatedAt, acc.UpdatedAt = time.Now(), time.Now()
	s.accounts[acc.ID] = cloneAccount(acc)
	return nil
}

// PutAccount 测试用：直接写入任意状态的账号
func (s *Store) PutAccount(acc *model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == 0 {
		acc.ID = s.id()
	} else if acc.ID > s.nextID {
		s.nextID = acc.ID
	}
	s.accounts[acc.ID] = cloneAccount(acc)
}

func (s *Store) FindAccount(_ context.Context, id uint64) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *Store) FindAccountByLogin(_ context.Context, login string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == login || strings.EqualFold(a.Email, login) {
			return cloneAccount(a), nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context, offset, limit int) ([]model.Account, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, *cloneAccount(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (s *Store) FindAccounts(_ context.Context, ids []uint64) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Account
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			out = append(out, *cloneAccount(a))
		}
	}
	return out, nil
}

func (s *Store) CountAccounts(_ context.Context, role model.Role, seenSince time.Time) (total, online int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Role != role {
			continue
		}
		total++
		if a.LastSeenAt != nil && !a.LastSeenAt.Before(seenSince) {
			online++
		}
	}
	return total, online, nil
}

func (s *Store) TransitionStatus(_ context.Context, id uint64, from []model.AccountStatus, to model.AccountStatus, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.ErrNotFound
	}
	if !slices.Contains(from, a.Status) {
		return model.ErrConflict
	}
	a.Status = to
	s.appendEvent(ev)
	return nil
}

func (s *Store) SetPremium(_ context.Context, id uint64, premium bool, expiresAt *time.Time, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.ErrNotFound
	}
	if a.Status == model.StatusDeleted {
		return model.ErrConflict
	}
	a.IsPremium = premium
	a.PremiumExpiresAt = nil
	if premium && expiresAt != nil {
		t := *expiresAt
		a.PremiumExpiresAt = &t
	}
	s.appendEvent(ev)
	return nil
}

func (s *Store) ExpirePremium(_ context.Context, id uint64, now time.Time, ev model.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return false, model.ErrNotFound
	}
	if !a.IsPremium || a.PremiumExpiresAt == nil || !a.PremiumExpiresAt.Before(now) {
		return false, nil
	}
	a.IsPremium = false
	a.PremiumExpiresAt = nil
	s.appendEvent(ev)
	return true, nil
}

func (s *Store) TouchLastSeen(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.ErrNotFound
	}
	a.LastSeenAt = &at
	return nil
}

// ---- bans ----

func (s *Store) AppendBan(_ context.Context, rec *model.BanRecord, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[rec.AccountID]
	if !ok {
		return model.ErrNotFound
	}
	if a.Status == model.StatusDeleted {
		return model.ErrConflict
	}
	rec.ID = s.id()
	s.bans = append(s.bans, *rec)
	a.Status = model.StatusBanned
	s.appendEvent(ev)
	return nil
}

// PutBan 测试用：直接写入封禁记录，不改账号状态
func (s *Store) PutBan(rec *model.BanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = s.id()
	}
	s.bans = append(s.bans, *rec)
}

func (s *Store) latestBan(accountID uint64) *model.BanRecord {
	var latest *model.BanRecord
	for i := range s.bans {
		b := &s.bans[i]
		if b.AccountID == accountID && b.NewerThan(latest) {
			latest = b
		}
	}
	return latest
}

func (s *Store) LatestBan(_ context.Context, accountID uint64) (*model.BanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := s.latestBan(accountID)
	if latest == nil {
		return nil, model.ErrNotFound
	}
	c := *latest
	return &c, nil
}

func (s *Store) ListBans(_ context.Context, accountID uint64) ([]model.BanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.BanRecord
	for _, b := range s.bans {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NewerThan(&out[j]) })
	return out, nil
}

func (s *Store) LiftExpiredBan(_ context.Context, accountID uint64, latest *model.BanRecord, ev model.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return false, model.ErrNotFound
	}
	if a.Status != model.StatusBanned {
		return false, nil
	}
	if cur := s.latestBan(accountID); latest == nil || cur == nil || cur.ID != latest.ID {
		return false, nil
	}
	a.Status = model.StatusActive
	s.appendEvent(ev)
	return true, nil
}

// ---- quota ----

func (s *Store) IncrementQuota(_ context.Context, id uint64, action model.ActionKind, limit int, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.charge(&model.QuotaCharge{AccountID: id, Action: action, Limit: limit, At: now})
	if errors.Is(err, model.ErrQuotaExhausted) {
		return false, nil
	}
	return err == nil, err
}

// charge 调用方持有锁；失败时不修改计数
func (s *Store) charge(c *model.QuotaCharge) error {
	if c == nil {
		return nil
	}
	a, ok := s.accounts[c.AccountID]
	if !ok {
		return model.ErrNotFound
	}
	if c.At.Sub(a.LastQuotaReset) > model.QuotaWindow {
		a.PostsToday, a.CommentsToday, a.LastQuotaReset = 0, 0, c.At
	}
	var counter *int
	switch c.Action {
	case model.ActionPost:
		counter = &a.PostsToday
	case model.ActionComment:
		counter = &a.CommentsToday
	default:
		return nil
	}
	if c.Limit >= 0 && *counter >= c.Limit {
		return model.ErrQuotaExhausted
	}
	*counter++
	return nil
}

// ---- outbox ----

func (s *Store) appendEvent(ev model.Event) {
	data := map[string]any{"event_time": ev.At.UTC().Format(time.RFC3339Nano), "account_id": ev.AccountID}
	for k, v := range ev.Data {
		data[k] = v
	}
	payload, _ := json.Marshal(data)
	s.outbox = append(s.outbox, model.ModerationOutbox{
		ID:        s.id(),
		EventType: ev.Type,
		AccountID: ev.AccountID,
		ActorID:   ev.ActorID,
		Payload:   payload,
		Status:    model.OutboxPending,
	})
}

// Events 测试用：按写入顺序返回事件类型
func (s *Store) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.outbox))
	for _, ob := range s.outbox {
		out = append(out, ob.EventType)
	}
	return out
}

func (s *Store) PendingOutbox(_ context.Context, batchSize, maxRetry int) ([]model.ModerationOutbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ModerationOutbox
	for _, ob := range s.outbox {
		if len(out) >= batchSize {
			break
		}
		if ob.Status == model.OutboxPending || (ob.Status == model.OutboxFailed && ob.Retry < maxRetry) {
			out = append(out, ob)
		}
	}
	return out, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, id uint64) error {
	return s.updateOutbox(id, func(ob *model.ModerationOutbox) { ob.Status = model.OutboxSent })
}

func (s *Store) MarkOutboxFailed(_ context.Context, id uint64, delivered []string) error {
	return s.updateOutbox(id, func(ob *model.ModerationOutbox) {
		ob.Status = model.OutboxFailed
		ob.Retry++
		ob.Delivered = slices.Clone(delivered)
	})
}

func (s *Store) updateOutbox(id uint64, fn func(*model.ModerationOutbox)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			fn(&s.outbox[i])
			return nil
		}
	}
	return model.ErrNotFound
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := min(offset+limit, len(all))
	return all[offset:end]
}
