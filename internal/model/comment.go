package model

import "time"

type Comment struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	PostID    uint64    `gorm:"not null;index:idx_comment_post_time,priority:1" json:"post_id"`
	AuthorID  uint64    `gorm:"not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_comment_post_time,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NotificationType string

const NotificationCommentOnPost NotificationType = "comment_on_post"

type Notification struct {
	ID        uint64           `gorm:"primaryKey" json:"id"`
	AccountID uint64           `gorm:"not null;index:idx_notify_account_read,priority:1" json:"account_id"`
	PostID    uint64           `gorm:"not null" json:"post_id"`
	CommentID uint64           `gorm:"not null" json:"comment_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notify_account_read,priority:2" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
