package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole 解析角色名，未知角色返回 ok=false
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type AccountStatus string

const (
	StatusActive  AccountStatus = "active"
	StatusBanned  AccountStatus = "banned"
	StatusDeleted AccountStatus = "deleted"
)

// Account 用户账号及权益状态；Status 是封禁状态的唯一依据，Role 与之独立
type Account struct {
	ID       uint64 `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:64;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"`

	Role   Role          `gorm:"size:16;not null;default:'user'" json:"role"`
	Status AccountStatus `gorm:"size:16;not null;default:'active';index" json:"status"`

	IsPremium        bool       `gorm:"not null;default:false" json:"is_premium"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at"` // IsPremium 时 nil 表示永久

	PostsToday     int       `gorm:"not null;default:0" json:"posts_today"`
	CommentsToday  int       `gorm:"not null;default:0" json:"comments_today"`
	LastQuotaReset time.Time `gorm:"not null" json:"last_quota_reset"`

	LastSeenAt *time.Time `json:"last_seen_at"`

	Bans []BanRecord `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// PremiumActiveAt 判断 now 时刻会员是否有效（不依赖是否已归一化）
func (a *Account) PremiumActiveAt(now time.Time) bool {
	if a == nil || !a.IsPremium {
		return false
	}
	return a.PremiumExpiresAt == nil || !now.After(*a.PremiumExpiresAt)
}

// Counter 返回 action 对应的当日计数
func (a *Account) Counter(action ActionKind) int {
	switch action {
	case ActionPost:
		return a.PostsToday
	case ActionComment:
		return a.CommentsToday
	}
	return 0
}
