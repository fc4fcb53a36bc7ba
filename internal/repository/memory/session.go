package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"LFG_Board/internal/model"
)

// Sessions 内存会话表，不处理过期
type Sessions struct {
	mu     sync.Mutex
	tokens map[uint64]string
	// FailRevoke 测试用：模拟 Redis 不可用
	FailRevoke bool
}

func NewSessions() *Sessions {
	return &Sessions{tokens: map[uint64]string{}}
}

var errUnavailable = errors.New("session store unavailable")

func (s *Sessions) Save(_ context.Context, accountID uint64, token string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[accountID] = token
	return nil
}

func (s *Sessions) Token(_ context.Context, accountID uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[accountID]
	if !ok {
		return "", model.ErrNotFound
	}
	return t, nil
}

func (s *Sessions) Touch(_ context.Context, accountID uint64, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[accountID]; !ok {
		return model.ErrNotFound
	}
	return nil
}

func (s *Sessions) Revoke(_ context.Context, accountID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRevoke {
		return errUnavailable
	}
	delete(s.tokens, accountID)
	return nil
}

// Has 测试用
func (s *Sessions) Has(accountID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[accountID]
	return ok
}

// Limiter 固定窗口计数，窗口由调用方通过 Reset 控制
type Limiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewLimiter() *Limiter { return &Limiter{counts: map[string]int{}} }

func (l *Limiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = map[string]int{}
}
