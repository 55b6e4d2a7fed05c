package models

import "time"

// MaxTagsPerPicture 单张图片最多可关联的标签数
const MaxTagsPerPicture = 5

// Picture 用户上传的原图
type Picture struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	URL         string    `gorm:"type:varchar(512);not null" json:"url"`
	PublicID    string    `gorm:"type:varchar(255);not null;index" json:"public_id"`
	Description *string   `gorm:"type:varchar(500)" json:"description"`
	UserID      uint      `gorm:"not null;index:idx_picture_user_created,priority:1" json:"user_id"`
	CreatedAt   time.Time `gorm:"index:idx_picture_user_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Tags        []*Tag               `gorm:"many2many:picture_tag_association;constraint:OnDelete:CASCADE" json:"tags"`
	Comments    []Comment            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Transformed []TransformedPicture `gorm:"foreignKey:OriginalPictureID;constraint:OnDelete:CASCADE" json:"-"`
}

// TagNames 返回标签名列表
func (p *Picture) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Tag 标签，按名称全局共享
type Tag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(25);uniqueIndex;not null" json:"name"`
}
