package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ThrottlePrefix = "throttle"

// 使用lua脚本原子执行：自增+首次设置窗口过期
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// ThrottleRepository 固定窗口计数限流
type ThrottleRepository struct {
	Client *redis.Client
}

func NewThrottleRepository(client *redis.Client) *ThrottleRepository {
	return &ThrottleRepository{Client: client}
}

// Allow 窗口内第 limit+1 次起返回 false
func (r *ThrottleRepository) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	full := fmt.Sprintf("%s:%s", ThrottlePrefix, key)
	n, err := incrWindow.Run(ctx, r.Client, []string{full}, window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n <= limit, nil
}
