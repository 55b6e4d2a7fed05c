package models

import "time"

// Role 用户角色
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// IsValid 是否为已知角色
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// User 用户。FullName 即用户名，全局唯一
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"full_name"`
	Email        string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"type:varchar(255);not null" json:"-"`
	Avatar       *string   `gorm:"type:varchar(512)" json:"avatar"`
	RefreshToken *string   `gorm:"type:varchar(1024)" json:"-"`
	Role         Role      `gorm:"type:varchar(20);default:user;not null" json:"role"`
	IsBanned     bool      `gorm:"default:false;not null" json:"is_banned"`
	PictureCount int       `gorm:"default:0;not null" json:"picture_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Pictures    []Picture     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comments    []Comment     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Blacklisted []Blacklisted `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsModerator 是否具备版主及以上权限
func (u *User) IsModerator() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}
