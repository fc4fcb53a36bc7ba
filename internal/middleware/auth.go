package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"LFG_Board/internal/model"
	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// Authenticator 校验 access token 并返回当前账号
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*model.Account, error)
}

// AuthMiddleware 每次请求都重新检查会话与封禁状态
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			return
		}

		acc, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			var banned *service.BannedError
			switch {
			case errors.As(err, &banned):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"msg":        "account banned",
					"kind":       service.DecisionBanned,
					"reason":     banned.Reason,
					"expiration": banned.Expiration,
				})
			case errors.Is(err, service.ErrAccountDeleted):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "account deleted", "kind": service.DecisionAccountDeleted})
			case errors.Is(err, service.ErrSessionInvalid), errors.Is(err, service.ErrUnauthorized), errors.Is(err, model.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			default:
				log.WithError(err).Error("authenticate failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
			}
			return
		}

		// 注入 user_id 与角色
		c.Set(ContextUserIDKey, acc.ID)
		c.Set(ContextRoleKey, acc.Role)
		c.Next()
	}
}

// RequireRole 角色守卫，必须挂在 AuthMiddleware 之后
func RequireRole(allowed ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ContextRoleKey)
		r, _ := role.(model.Role)
		for _, a := range allowed {
			if r == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "permission denied", "kind": service.DecisionUnauthorized})
	}
}
