package dbmysql

import (
	"time"
)

// Timeline is a named ordered feed owned by exactly one user or group.
// The autoincrement id doubles as the compact fan-out key; the UID is
// the public identifier.
type Timeline struct {
	ID        int64     `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	UID       string    `gorm:"column:uid;uniqueIndex;size:36;not null" json:"uid"`
	Name      string    `gorm:"column:name;size:20;not null;index:idx_owner_name,unique" json:"name"`
	UserID    int64     `gorm:"column:user_id;not null;index:idx_owner_name,unique" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Timeline) TableName() string { return "timelines" }

// FeedEntry is one post's membership in one timeline. This relation is
// the only durable artifact of fan-out; it must stay consistent with
// every committed write but could in principle be rebuilt from posts,
// comments, likes and the social graph.
type FeedEntry struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TimelineID int64     `gorm:"column:timeline_id;not null;index:idx_feed_post,unique;index:idx_feed_bumped" json:"timeline_id"`
	PostID     int64     `gorm:"column:post_id;not null;index:idx_feed_post,unique;index" json:"post_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	BumpedAt   time.Time `gorm:"column:bumped_at;index:idx_feed_bumped" json:"bumped_at"`
}

func (FeedEntry) TableName() string { return "feed_entries" }
