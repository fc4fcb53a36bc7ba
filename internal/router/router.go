package router

import (
	"LFG_Board/internal/handler"
	"LFG_Board/internal/middleware"
	"LFG_Board/internal/model"
	"LFG_Board/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps 路由依赖的服务
type Deps struct {
	Auth          *service.AuthService
	Machine       *service.AccountStateMachine
	Evaluator     *service.EntitlementEvaluator
	Posts         *service.PostService
	Comments      *service.CommentService
	Notifications *service.NotificationService
	Feedback      *service.FeedbackService

	LoginLimiter   middleware.Limiter
	LoginPerMinute int
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	auth := handler.NewAuthHandler(d.Auth)
	admin := handler.NewAdminHandler(d.Machine, d.Evaluator)
	post := handler.NewPostHandler(d.Posts)
	comment := handler.NewCommentHandler(d.Comments)
	notify := handler.NewNotificationHandler(d.Notifications)
	feedback := handler.NewFeedbackHandler(d.Feedback)

	authRequired := middleware.AuthMiddleware(d.Auth)

	// 登录与 token 接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/login", middleware.LoginThrottle(d.LoginLimiter, d.LoginPerMinute), auth.Login)
		userGroup.POST("/logout", authRequired, auth.Logout)
		userGroup.GET("/:id", auth.PublicProfile)
	}
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", auth.Refresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(authRequired)
	{
		authGroup.POST("/verify-status", auth.VerifyStatus)
		authGroup.POST("/heartbeat", auth.Heartbeat)
		authGroup.GET("/me", auth.Me)
	}

	// 帖子相关接口
	postGroup := r.Group("/api/post")
	postGroup.Use(authRequired)
	{
		postGroup.POST("/create", post.CreatePost)
		postGroup.GET("/list", post.ListPosts)
		postGroup.GET("/feed", post.Feed)
		postGroup.GET("/author/:id", post.ListByAuthor)
		postGroup.GET("/:id", post.GetPost)
		postGroup.PUT("/:id", post.UpdatePost)
		postGroup.DELETE("/:id", post.DeletePost)
		postGroup.GET("/:id/comments", comment.ListComments)
		postGroup.POST("/:id/comments", comment.CreateComment)
	}

	// 评论相关接口
	commentGroup := r.Group("/api/comment")
	commentGroup.Use(authRequired)
	{
		commentGroup.PUT("/:id", comment.EditComment)
		commentGroup.DELETE("/:id", comment.DeleteComment)
	}

	// 通知相关接口
	notifyGroup := r.Group("/api/notification")
	notifyGroup.Use(authRequired)
	{
		notifyGroup.GET("/unread", notify.ListUnread)
		notifyGroup.POST("/:id/read", notify.MarkRead)
		notifyGroup.POST("/read-all", notify.MarkAllRead)
		notifyGroup.DELETE("/read", notify.DeleteRead)
	}

	// 用户反馈
	feedbackGroup := r.Group("/api/feedback")
	feedbackGroup.Use(authRequired)
	{
		feedbackGroup.POST("", feedback.Submit)
	}

	// 管理端接口：版主只读，写操作仅管理员
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(authRequired, middleware.RequireRole(model.RoleAdmin, model.RoleModerator))
	{
		adminGroup.GET("/users", admin.ListUsers)
		adminGroup.GET("/users/:id/bans", admin.BanHistory)

		adminOnly := adminGroup.Group("", middleware.RequireRole(model.RoleAdmin))
		adminOnly.POST("/users", admin.CreateUser)
		adminOnly.GET("/users/summary", admin.UserSummary)
		adminOnly.POST("/users/:id/ban", admin.Ban)
		adminOnly.POST("/users/:id/unban", admin.Unban)
		adminOnly.DELETE("/users/:id", admin.Delete)
		adminOnly.POST("/users/:id/premium", admin.GrantPremium)
		adminOnly.DELETE("/users/:id/premium", admin.RevokePremium)
		adminOnly.GET("/users/:id/decision", admin.Decide)
		adminOnly.GET("/feedback", feedback.List)
		adminOnly.GET("/feedback/summary", feedback.Summary)
		adminOnly.PUT("/feedback/:id", feedback.UpdateStatus)
	}

	return r
}
