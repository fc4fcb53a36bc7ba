package model

import "time"

type FeedbackType string

const (
	FeedbackBug     FeedbackType = "bug"
	FeedbackFeature FeedbackType = "feature_request"
	FeedbackGeneral FeedbackType = "general"
)

func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackBug, FeedbackFeature, FeedbackGeneral:
		return true
	}
	return false
}

type FeedbackStatus string

const (
	FeedbackOpen       FeedbackStatus = "open"
	FeedbackInProgress FeedbackStatus = "in_progress"
	FeedbackResolved   FeedbackStatus = "resolved"
	FeedbackClosed     FeedbackStatus = "closed"
)

func (s FeedbackStatus) Valid() bool {
	switch s {
	case FeedbackOpen, FeedbackInProgress, FeedbackResolved, FeedbackClosed:
		return true
	}
	return false
}

// Feedback 用户反馈，管理员处理时只改状态
type Feedback struct {
	ID        uint64         `gorm:"primaryKey" json:"id"`
	AccountID uint64         `gorm:"not null;index" json:"account_id"`
	Type      FeedbackType   `gorm:"size:32;not null" json:"type"`
	Message   string         `gorm:"type:text;not null" json:"message"`
	Status    FeedbackStatus `gorm:"size:16;not null;default:'open';index" json:"status"`
	Username  string         `gorm:"-" json:"username,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Feedback) TableName() string { return "feedback" }
