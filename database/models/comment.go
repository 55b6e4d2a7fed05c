package models

import "time"

// Comment 图片评论
type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:varchar(1000);not null" json:"text"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PictureID uint      `gorm:"not null;index:idx_comment_picture_created,priority:1" json:"picture_id"`
	CreatedAt time.Time `gorm:"index:idx_comment_picture_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
