package model

import "time"

// BanRecord 封禁记录，只追加不修改
type BanRecord struct {
	ID            uint64     `gorm:"primaryKey" json:"id"`
	AccountID     uint64     `gorm:"not null;index:idx_ban_account_time,priority:1" json:"account_id"`
	Reason        string     `gorm:"type:text;not null" json:"reason"`
	BannedAt      time.Time  `gorm:"not null;index:idx_ban_account_time,priority:2" json:"banned_at"`
	BanExpiration *time.Time `json:"ban_expiration"` // nil = 永久
	BannedByID    uint64     `gorm:"not null" json:"banned_by_id"`

	BannedBy *Account `gorm:"foreignKey:BannedByID" json:"banned_by,omitempty"`
}

func (BanRecord) TableName() string { return "ban_records" }

// ActiveAt 判断 now 时刻封禁是否仍然生效
func (b *BanRecord) ActiveAt(now time.Time) bool {
	return b.BanExpiration == nil || b.BanExpiration.After(now)
}

// NewerThan 先比 BannedAt，同一时间点用 ID 打破并列
func (b *BanRecord) NewerThan(o *BanRecord) bool {
	if o == nil {
		return true
	}
	if !b.BannedAt.Equal(o.BannedAt) {
		return b.BannedAt.After(o.BannedAt)
	}
	return b.ID > o.ID
}
