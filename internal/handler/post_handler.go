package handler

import (
	"net/http"
	"strconv"
	"time"

	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc *service.PostService
}

type CreatePostReq struct {
	PartySize       int      `json:"party_size"`
	PositionsNeeded []string `json:"positions_needed"`
	MinRank         string   `json:"min_rank"`
	MaxRank         string   `json:"max_rank"`
	Description     string   `json:"description"`
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// CreatePost 创建组队帖接口
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}

	post, err := h.svc.CreatePost(c.Request.Context(), userIDFromCtx(c), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (req CreatePostReq) input() service.CreatePostInput {
	return service.CreatePostInput{
		PartySize:       req.PartySize,
		PositionsNeeded: req.PositionsNeeded,
		MinRank:         req.MinRank,
		MaxRank:         req.MaxRank,
		Description:     req.Description,
	}
}

// UpdatePost 编辑帖子接口，作者或管理员
func (h *PostHandler) UpdatePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
		return
	}
	post, err := h.svc.UpdatePost(c.Request.Context(), actorFromCtx(c), id, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Feed 首页信息流：会员帖优先，附评论数与作者
func (h *PostHandler) Feed(c *gin.Context) {
	page, size := pageParams(c)
	list, total, err := h.svc.ListFeed(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": total})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	post, err := h.svc.GetPost(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListPosts 获取帖子列表接口（优先游标分页，兼容页码）
func (h *PostHandler) ListPosts(c *gin.Context) {
	lastIDStr := c.Query("last_id")
	lastTSStr := c.Query("last_created_at")

	// 如果提供了游标，则走游标分页
	if lastIDStr != "" || lastTSStr != "" {
		var lastID uint64
		var lastTS time.Time
		if lastIDStr != "" {
			v, err := strconv.ParseUint(lastIDStr, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid last_id"})
				return
			}
			lastID = v
		}
		if lastTSStr != "" {
			v, err := time.Parse(time.RFC3339Nano, lastTSStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid last_created_at"})
				return
			}
			lastTS = v
		}

		size, _ := strconv.Atoi(c.Query("size"))
		list, nextID, nextTS, err := h.svc.ListPostsCursor(c.Request.Context(), lastID, lastTS, size)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"list":            list,
			"next_last_id":    nextID,
			"next_created_at": nextTS.Format(time.RFC3339Nano),
		})
		return
	}

	// 兼容页码查询（不推荐深页使用）
	page, size := pageParams(c)
	list, total, err := h.svc.ListPosts(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": total})
}

// ListByAuthor 某个用户发布的帖子
func (h *PostHandler) ListByAuthor(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, size := pageParams(c)
	list, total, err := h.svc.ListByAuthor(c.Request.Context(), id, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": total})
}

// DeletePost 删除帖子接口
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePost(c.Request.Context(), actorFromCtx(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "deleted"})
}
