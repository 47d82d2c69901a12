package dbmysql

import (
	"time"
)

type Comment struct {
	CommentID int64  `gorm:"primaryKey;column:comment_id;autoIncrement" json:"comment_id"`
	Body      string `gorm:"column:body;type:text" json:"body"`
	AuthorID  int64  `gorm:"column:author_id;not null;index" json:"author_id"`
	PostID    int64  `gorm:"column:post_id;not null;index" json:"post_id"`

	// HideType is a soft-deletion marker. Non-zero means the body is
	// redacted but the comment keeps its slot in the post's sequence.
	HideType int16 `gorm:"column:hide_type;default:0" json:"hide_type"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) IsVisible() bool { return c.HideType == 0 }
