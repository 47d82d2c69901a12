package dbmysql

import "time"

// Attachment metadata lives in MySQL; the blob itself is stored in
// GridFS and referenced by FilePath (the object id hex).
type Attachment struct {
	AttachmentID int64     `gorm:"primaryKey;column:attachment_id;autoIncrement" json:"attachment_id"`
	UserID       int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	PostID       *int64    `gorm:"column:post_id;index" json:"post_id"`
	FileName     string    `gorm:"column:file_name;size:255" json:"file_name"`
	FileSize     int64     `gorm:"column:file_size" json:"file_size"`
	MediaType    string    `gorm:"column:media_type;size:100" json:"media_type"`
	FilePath     string    `gorm:"column:file_path;size:64" json:"file_path"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Attachment) TableName() string { return "attachments" }
