package dbmysql

import (
	"time"
)

type User struct {
	UserID             int64     `gorm:"primaryKey;column:user_id;autoIncrement" json:"user_id"`
	Username           string    `gorm:"column:username;uniqueIndex;size:50;not null" json:"username"`
	ScreenName         string    `gorm:"column:screen_name;size:100" json:"screen_name"`
	Type               string    `gorm:"type:ENUM('user','group');default:'user';column:type" json:"type"`
	Privacy            string    `gorm:"type:ENUM('public','protected','private');default:'public';column:privacy" json:"privacy"`
	Active             bool      `gorm:"column:active;default:true" json:"active"`
	HiddenCommentTypes Int16List `gorm:"column:hidden_comment_types;type:json" json:"hidden_comment_types"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) IsGroup() bool { return u.Type == "group" }

// GroupAdmin links a group account to the users administering it.
type GroupAdmin struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   int64     `gorm:"column:group_id;not null;index:idx_group_admin,unique" json:"group_id"`
	UserID    int64     `gorm:"column:user_id;not null;index:idx_group_admin,unique" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (GroupAdmin) TableName() string { return "group_admins" }
