package dbmysql

import (
	"time"
)

// Subscription is a directed edge from a subscriber to a target feed
// (the target user/group's Posts or Directs timeline). Subscriptions
// are never symmetric by default.
type Subscription struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"column:user_id;not null;index:idx_sub_pair,unique" json:"user_id"`
	TimelineID int64     `gorm:"column:timeline_id;not null;index:idx_sub_pair,unique;index" json:"timeline_id"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Ban is a directed edge; access checks treat it as symmetric.
type Ban struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"column:user_id;not null;index:idx_ban_pair,unique" json:"user_id"`
	BannedUserID int64     `gorm:"column:banned_user_id;not null;index:idx_ban_pair,unique;index" json:"banned_user_id"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Ban) TableName() string { return "bans" }
