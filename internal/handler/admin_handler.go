package handler

import (
	"net/http"
	"time"

	"LFG_Board/internal/model"
	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	machine   *service.AccountStateMachine
	evaluator *service.EntitlementEvaluator
}

func NewAdminHandler(machine *service.AccountStateMachine, evaluator *service.EntitlementEvaluator) *AdminHandler {
	return &AdminHandler{machine: machine, evaluator: evaluator}
}

type createUserReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	acc, err := h.machine.CreateAccount(c.Request.Context(), actorFromCtx(c), service.CreateAccountInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// ListUsers 用户列表（带在线标记）
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.machine.ListAccounts(c.Request.Context(), actorFromCtx(c), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": total})
}

// UserSummary 普通用户总数与在线数
func (h *AdminHandler) UserSummary(c *gin.Context) {
	sum, err := h.machine.UserSummary(c.Request.Context(), actorFromCtx(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type banReq struct {
	Reason   string `json:"reason"`
	Duration string `json:"duration" binding:"required"`
}

func (h *AdminHandler) Ban(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req banReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	rec, err := h.machine.Ban(c.Request.Context(), actorFromCtx(c), id, req.Reason, req.Duration)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *AdminHandler) Unban(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.machine.Unban(c.Request.Context(), actorFromCtx(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.machine.Delete(c.Request.Context(), actorFromCtx(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}

type premiumReq struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// GrantPremium expires_at 省略表示永久会员
func (h *AdminHandler) GrantPremium(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req premiumReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
			return
		}
	}
	if err := h.machine.GrantPremium(c.Request.Context(), actorFromCtx(c), id, req.ExpiresAt); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *AdminHandler) RevokePremium(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.machine.RevokePremium(c.Request.Context(), actorFromCtx(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *AdminHandler) BanHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	list, err := h.machine.BanHistory(c.Request.Context(), actorFromCtx(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list})
}

// Decide 对指定账号执行一次 Authorize，返回结构化结果；post/comment 会计入额度
func (h *AdminHandler) Decide(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	action := model.ActionKind(c.Query("action"))
	d, err := h.evaluator.Decide(c.Request.Context(), id, action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
