package model

import "time"

// QuotaWindow 每日配额窗口长度，距上次重置严格超过该值才清零
const QuotaWindow = 24 * time.Hour

// ActionKind 需要经过鉴权的账号动作
type ActionKind string

const (
	ActionLogin          ActionKind = "login"
	ActionPost           ActionKind = "post"
	ActionComment        ActionKind = "comment"
	ActionCommentEditOwn ActionKind = "comment-edit-own"
	ActionPostEditOwn    ActionKind = "post-edit-own"
	ActionFeedback       ActionKind = "feedback"
)

// RateLimited 是否占用每日配额
func (k ActionKind) RateLimited() bool {
	return k == ActionPost || k == ActionComment
}

// CounterColumn accounts 表中对应的计数列
func (k ActionKind) CounterColumn() string {
	switch k {
	case ActionPost:
		return "posts_today"
	case ActionComment:
		return "comments_today"
	}
	return ""
}

// QuotaCharge 与内容写入同一事务执行的额度扣减；Limit < 0 表示不限
type QuotaCharge struct {
	AccountID uint64
	Action    ActionKind
	Limit     int
	At        time.Time
}
