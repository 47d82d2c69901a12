package dbmysql

import (
	"time"
)

type Post struct {
	PostID   int64  `gorm:"primaryKey;column:post_id;autoIncrement" json:"post_id"`
	Body     string `gorm:"column:body;type:text;not null" json:"body"`
	AuthorID int64  `gorm:"column:author_id;not null;index" json:"author_id"`

	// FeedIntIDs is the denormalized set of destination timeline ids the
	// post currently appears in, kept in step with feed_entries by the
	// fan-out writer inside the same transaction.
	FeedIntIDs Int64List `gorm:"column:feed_int_ids;type:json" json:"feed_int_ids"`

	// IsPropagable is false for direct messages; non-propagable posts
	// never have their comment/like activity bumped into third-party
	// rivers.
	IsPropagable bool `gorm:"column:is_propagable;default:true" json:"is_propagable"`

	CommentsCount int       `gorm:"column:comments_count;default:0" json:"comments_count"`
	LikesCount    int       `gorm:"column:likes_count;default:0" json:"likes_count"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Post) TableName() string { return "posts" }
