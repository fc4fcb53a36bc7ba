package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PostStatusNormal  = 0
	PostStatusDeleted = 1
)

// Post 组队帖：需要的位置与段位范围
type Post struct {
	ID              uint64                     `gorm:"primaryKey;index:idx_post_time_id,priority:2,sort:desc" json:"id"`
	AuthorID        uint64                     `gorm:"not null;index:idx_author_time" json:"author_id"`
	PartySize       int                        `gorm:"not null;default:1" json:"party_size"`
	PositionsNeeded datatypes.JSONSlice[string] `json:"positions_needed"`
	MinRank         Rank                       `gorm:"size:16;not null" json:"min_rank"`
	MaxRank         Rank                       `gorm:"size:16;not null" json:"max_rank"`
	Description     string                     `gorm:"type:text" json:"description"`
	Status          int                        `gorm:"not null;default:0" json:"-"` // 0=normal 1=deleted
	CreatedAt       time.Time                  `gorm:"index:idx_post_time_id,priority:1,sort:desc;index:idx_author_time" json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

type Rank string

// Ranks 段位，从低到高
var Ranks = []Rank{"Herald", "Guardian", "Crusader", "Archon", "Legend", "Ancient", "Divine", "Immortal"}

// RankIndex 段位序号，未知返回 -1
func RankIndex(r Rank) int {
	for i, v := range Ranks {
		if v == r {
			return i
		}
	}
	return -1
}

const (
	PositionCarry       = "carry"
	PositionMid         = "mid"
	PositionOfflane     = "offlane"
	PositionSoftSupport = "soft_support"
	PositionHardSupport = "hard_support"
)

// ParsePosition 同时接受存储值和展示名（"soft support"）
func ParsePosition(label string) (string, bool) {
	switch label {
	case PositionCarry, PositionMid, PositionOfflane:
		return label, true
	case "soft support", PositionSoftSupport:
		return PositionSoftSupport, true
	case "hard support", PositionHardSupport:
		return PositionHardSupport, true
	}
	return "", false
}
