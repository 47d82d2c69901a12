package dbmysql

import "time"

type Like struct {
	ID        int64     `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	UserID    int64     `gorm:"column:user_id;not null;index:idx_user_post_like,unique" json:"user_id"`
	PostID    int64     `gorm:"column:post_id;not null;index:idx_user_post_like,unique;index" json:"post_id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Like) TableName() string { return "likes" }
