package service

import (
	"context"
	"time"

	"LFG_Board/internal/model"
)

// AccountReader 账号读取
type AccountReader interface {
	FindAccount(ctx context.Context, id uint64) (*model.Account, error)
	// FindAccountByLogin 按用户名或邮箱查询
	FindAccountByLogin(ctx context.Context, login string) (*model.Account, error)
	ListAccounts(ctx context.Context, offset, limit int) ([]model.Account, int64, error)
	// FindAccounts 批量读取，不存在的 id 直接跳过
	FindAccounts(ctx context.Context, ids []uint64) ([]model.Account, error)
	// CountAccounts role 账号总数，以及 last_seen_at >= seenSince 的在线数
	CountAccounts(ctx context.Context, role model.Role, seenSince time.Time) (total, online int64, err error)
}

// AccountWriter 账号状态写入；所有带 Event 的方法都在同一事务里写 outbox
type AccountWriter interface {
	CreateAccount(ctx context.Context, acc *model.Account) error
	// TransitionStatus 当前状态属于 from 时切换到 to；不存在返回 ErrNotFound，状态不符返回 ErrConflict
	TransitionStatus(ctx context.Context, id uint64, from []model.AccountStatus, to model.AccountStatus, ev model.Event) error
	// SetPremium 更新会员状态，已删除账号返回 ErrConflict
	SetPremium(ctx context.Context, id uint64, premium bool, expiresAt *time.Time, ev model.Event) error
	// ExpirePremium 仅当会员已过期（expires < now）时清除，返回是否发生变更
	ExpirePremium(ctx context.Context, id uint64, now time.Time, ev model.Event) (bool, error)
	TouchLastSeen(ctx context.Context, id uint64, at time.Time) error
}

// BanStore 封禁记录只追加
type BanStore interface {
	// AppendBan 插入记录并置 status=banned，同一事务；已删除账号返回 ErrConflict
	AppendBan(ctx context.Context, rec *model.BanRecord, ev model.Event) error
	// LatestBan 按 banned_at、id 取最新一条，没有返回 ErrNotFound
	LatestBan(ctx context.Context, accountID uint64) (*model.BanRecord, error)
	ListBans(ctx context.Context, accountID uint64) ([]model.BanRecord, error)
	// LiftExpiredBan 仅当账号仍为 banned 且 latest 仍是最新记录时恢复 active，返回是否发生变更
	LiftExpiredBan(ctx context.Context, accountID uint64, latest *model.BanRecord, ev model.Event) (bool, error)
}

// QuotaStore 每日配额的原子检查加一
type QuotaStore interface {
	// IncrementQuota 窗口过期先清零，再在 counter < limit 时加一；limit < 0 表示不限。返回是否成功
	IncrementQuota(ctx context.Context, id uint64, action model.ActionKind, limit int, now time.Time) (bool, error)
}

// ModerationStore 权益与封禁引擎依赖的全部存储能力
type ModerationStore interface {
	AccountReader
	AccountWriter
	BanStore
	QuotaStore
}

type PostStore interface {
	// CreatePost charge 不为 nil 时额度扣减与插入同事务提交；额度不足返回 ErrQuotaExhausted
	CreatePost(ctx context.Context, post *model.Post, charge *model.QuotaCharge) error
	FindPost(ctx context.Context, id uint64) (*model.Post, error)
	// UpdatePost 更新组队字段，帖子不存在或已删除返回 ErrNotFound
	UpdatePost(ctx context.Context, post *model.Post) error
	ListPosts(ctx context.Context, offset, limit int) ([]model.Post, int64, error)
	// ListPostsCursor (created_at, id) 严格游标，lastCreatedAt 为零值表示第一页
	ListPostsCursor(ctx context.Context, lastID uint64, lastCreatedAt time.Time, limit int) ([]model.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID uint64, offset, limit int) ([]model.Post, int64, error)
	// ListPostsByTier 作者在 now 时刻是否为有效会员分组，各自最新在前，返回前 limit 条与该组总数
	ListPostsByTier(ctx context.Context, premium bool, now time.Time, limit int) ([]model.Post, int64, error)
	// DeletePost 软删除；不存在返回 ErrNotFound，已删除视为成功
	DeletePost(ctx context.Context, id uint64) error
}

type CommentStore interface {
	// CreateComment 帖子须仍存在（否则 ErrNotFound）；额度扣减、评论与通知同事务写入
	CreateComment(ctx context.Context, c *model.Comment, n *model.Notification, charge *model.QuotaCharge) error
	FindComment(ctx context.Context, id uint64) (*model.Comment, error)
	UpdateCommentContent(ctx context.Context, id uint64, content string) error
	DeleteComment(ctx context.Context, id uint64) error
	ListComments(ctx context.Context, postID uint64, offset, limit int) ([]model.Comment, int64, error)
	// CountComments 按帖子统计评论数，没有评论的帖子不在结果中
	CountComments(ctx context.Context, postIDs []uint64) (map[uint64]int64, error)
}

type NotificationStore interface {
	ListUnread(ctx context.Context, accountID uint64) ([]model.Notification, error)
	// MarkRead 只能标记自己的通知，否则 ErrNotFound
	MarkRead(ctx context.Context, accountID, id uint64) error
	MarkAllRead(ctx context.Context, accountID uint64) (int64, error)
	DeleteRead(ctx context.Context, accountID uint64) (int64, error)
}

type OutboxStore interface {
	// PendingOutbox 待投递与可重试的失败事件
	PendingOutbox(ctx context.Context, batchSize, maxRetry int) ([]model.ModerationOutbox, error)
	MarkOutboxSent(ctx context.Context, id uint64) error
	// MarkOutboxFailed 重试次数加一，并记录已投递成功的 sink，重试时跳过
	MarkOutboxFailed(ctx context.Context, id uint64, delivered []string) error
}

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb *model.Feedback) error
	// ListFeedback 最新在前，附带提交人
	ListFeedback(ctx context.Context, offset, limit int) ([]model.Feedback, int64, error)
	// UpdateFeedbackStatus 不存在返回 ErrNotFound
	UpdateFeedbackStatus(ctx context.Context, id uint64, status model.FeedbackStatus) error
	// CountFeedback 按状态计数
	CountFeedback(ctx context.Context) (map[model.FeedbackStatus]int64, error)
}

// SessionStore 每个账号仅保留一个有效 token
type SessionStore interface {
	Save(ctx context.Context, accountID uint64, token string, ttl time.Duration) error
	// Token 不存在返回 ErrNotFound
	Token(ctx context.Context, accountID uint64) (string, error)
	Touch(ctx context.Context, accountID uint64, ttl time.Duration) error
	Revoke(ctx context.Context, accountID uint64) error
}
