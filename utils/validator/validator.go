package validator

import (
	"net/http"
)

// sniffLen http.DetectContentType 最多读取的字节数
const sniffLen = 512

// allowedImageMimeTypes Allowed image types
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IsImage 按文件头判断内容是否为允许的图片类型，同时返回检测到的 MIME 类型
func IsImage(data []byte) (bool, string) {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	mimeType := http.DetectContentType(data)
	return allowedImageMimeTypes[mimeType], mimeType
}
