package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LFG_Board/internal/model"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrExtendFailed     = errors.New("token extend failed")
	ErrTokenDeleted     = errors.New("token delete failed")
)

const AccountTokenPrefix = "login:user:token"

// SessionRepository 每个账号一个 token，重新登录覆盖旧 token
type SessionRepository struct {
	Client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{Client: client}
}

func tokenKey(accountID uint64) string {
	return fmt.Sprintf("%s:%d", AccountTokenPrefix, accountID)
}

func (r *SessionRepository) Save(ctx context.Context, accountID uint64, token string, ttl time.Duration) error {
	if err := r.Client.Set(ctx, tokenKey(accountID), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *SessionRepository) Token(ctx context.Context, accountID uint64) (string, error) {
	token, err := r.Client.Get(ctx, tokenKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// Touch 续期，key 已过期返回 ErrNotFound
func (r *SessionRepository) Touch(ctx context.Context, accountID uint64, ttl time.Duration) error {
	ok, err := r.Client.Expire(ctx, tokenKey(accountID), ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtendFailed, err)
	}
	if !ok {
		return model.ErrNotFound
	}
	return nil
}

// Revoke 删除 token（幂等）
func (r *SessionRepository) Revoke(ctx context.Context, accountID uint64) error {
	if err := r.Client.Del(ctx, tokenKey(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenDeleted, err)
	}
	return nil
}
