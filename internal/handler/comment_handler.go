package handler

import (
	"net/http"

	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc *service.CommentService
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

type commentReq struct {
	Content string `json:"content"`
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	cm, err := h.svc.CreateComment(c.Request.Context(), userIDFromCtx(c), postID, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (h *CommentHandler) ListComments(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, size := pageParams(c)
	list, total, err := h.svc.ListComments(c.Request.Context(), postID, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": total})
}

func (h *CommentHandler) EditComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	cm, err := h.svc.EditComment(c.Request.Context(), actorFromCtx(c), id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), actorFromCtx(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}
