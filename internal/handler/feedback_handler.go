package handler

import (
	"net/http"

	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
)

type FeedbackHandler struct {
	svc *service.FeedbackService
}

func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type submitFeedbackReq struct {
	Type    string `json:"type" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req submitFeedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	fb, err := h.svc.Submit(c.Request.Context(), userIDFromCtx(c), req.Type, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

// List 管理端反馈列表，最新在前
func (h *FeedbackHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.svc.List(c.Request.Context(), actorFromCtx(c), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": total})
}

type updateFeedbackReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *FeedbackHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateFeedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	if err := h.svc.UpdateStatus(c.Request.Context(), actorFromCtx(c), id, req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "updated"})
}

func (h *FeedbackHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context(), actorFromCtx(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
