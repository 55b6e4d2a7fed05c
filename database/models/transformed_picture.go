package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransformedPicture 原图的变换副本及其二维码
type TransformedPicture struct {
	ID                uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	OriginalPictureID uint              `gorm:"not null;index" json:"original_picture_id"`
	URL               string            `gorm:"type:varchar(1024);not null" json:"url"`
	PublicID          string            `gorm:"type:varchar(255);not null" json:"public_id"`
	QRURL             *string           `gorm:"column:qr_url;type:varchar(1024)" json:"qr_url"`
	QRPublicID        *string           `gorm:"column:qr_public_id;type:varchar(255)" json:"qr_public_id"`
	Params            datatypes.JSONMap `gorm:"column:transformation_params" json:"transformation_params"`
	UserID            uint              `gorm:"not null;index" json:"user_id"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
