package models

import "time"

// Blacklisted 已注销的访问令牌
type Blacklisted struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Token     string    `gorm:"type:varchar(1024);uniqueIndex;not null"`
	UserID    uint      `gorm:"not null;index"`
	CreatedAt time.Time
}

func (Blacklisted) TableName() string {
	return "blacklisted"
}
