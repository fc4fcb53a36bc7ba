package handler

import (
	"errors"
	"net/http"
	"strconv"

	"LFG_Board/internal/middleware"
	"LFG_Board/internal/model"
	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// writeError 业务错误映射为状态码；封禁与额度拒绝附带结构化 detail
func writeError(c *gin.Context, err error) {
	if d, ok := service.DecisionFor(err); ok {
		status := http.StatusForbidden
		if d.Kind == service.DecisionQuotaExceeded {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"msg": err.Error(), "kind": d.Kind, "detail": d.Detail})
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrSessionInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"msg": err.Error()})
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get(middleware.ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

func actorFromCtx(c *gin.Context) service.Actor {
	role, _ := c.Get(middleware.ContextRoleKey)
	r, _ := role.(model.Role)
	return service.Actor{AccountID: userIDFromCtx(c), Role: r}
}

// idParam 解析路径中的 id，失败时已写回 400
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid " + name})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return page, size
}
