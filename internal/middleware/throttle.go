package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Limiter 固定窗口计数
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LoginThrottle 按客户端 IP 限制每分钟登录次数；limit <= 0 不限流
func LoginThrottle(l Limiter, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || limit <= 0 {
			c.Next()
			return
		}
		ok, err := l.Allow(c.Request.Context(), "login:"+c.ClientIP(), limit, time.Minute)
		if err != nil {
			// 限流存储不可用时放行，登录本身仍需校验密码
			log.WithError(err).WithField("ip", c.ClientIP()).Warn("login throttle unavailable")
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"msg": "too many login attempts, try again later"})
			return
		}
		c.Next()
	}
}
