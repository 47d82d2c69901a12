package dbmysql

import "time"

// UserStat holds the denormalized per-user counters. Rows are mutated
// only inside fan-out transactions so reads always reflect the last
// committed event.
type UserStat struct {
	UserID        int64     `gorm:"primaryKey;column:user_id" json:"user_id"`
	PostsCount    int64     `gorm:"column:posts_count;default:0" json:"posts_count"`
	CommentsCount int64     `gorm:"column:comments_count;default:0" json:"comments_count"`
	LikesCount    int64     `gorm:"column:likes_count;default:0" json:"likes_count"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (UserStat) TableName() string { return "user_stats" }
