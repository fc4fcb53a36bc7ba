package model

import (
	"time"

	"gorm.io/datatypes"
)

// 写入 outbox 的账号事件类型
const (
	EventAccountBanned   = "account.banned"
	EventAccountUnbanned = "account.unbanned"
	EventBanExpired      = "account.ban_expired"
	EventAccountDeleted  = "account.deleted"
	EventPremiumGranted  = "premium.granted"
	EventPremiumRevoked  = "premium.revoked"
	EventPremiumExpired  = "premium.expired"
)

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// ModerationOutbox 账号状态变更事件表，与状态变更同事务写入
type ModerationOutbox struct {
	ID        uint64         `gorm:"primaryKey"`
	EventType string         `gorm:"size:32;not null"`
	AccountID uint64         `gorm:"not null;index"`
	ActorID   uint64         `gorm:"not null;default:0"` // 0 = 系统（惰性过期）
	Payload   datatypes.JSON `gorm:"not null"`
	Status    int8           `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry     int            `gorm:"not null;default:0"`
	Delivered datatypes.JSONSlice[string] // 已投递成功的 sink 名
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ModerationOutbox) TableName() string { return "moderation_outbox" }

// Event 待写入 outbox 的领域事件，由存储层在同一事务内落表
type Event struct {
	Type      string
	AccountID uint64
	ActorID   uint64
	At        time.Time
	Data      map[string]any
}
