package mime

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// 支持上传的图片类型及扩展名
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// SniffContentType 读取前 512 字节判断类型，并将流复位到开头
func SniffContentType(stream io.ReadSeeker) (string, error) {
	buffer := make([]byte, 512)

	n, err := stream.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read stream for mime sniffing: %w", err)
	}

	contentType := http.DetectContentType(buffer[:n])

	if _, err = stream.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek stream back to start after sniffing: %w", err)
	}

	return contentType, nil
}

// IsImage 是否为支持的图片类型
func IsImage(contentType string) bool {
	_, ok := imageExtensions[normalize(contentType)]
	return ok
}

// ExtensionFor 返回类型对应的扩展名，未知类型返回 ".bin"
func ExtensionFor(contentType string) string {
	if ext, ok := imageExtensions[normalize(contentType)]; ok {
		return ext
	}
	return ".bin"
}

func normalize(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// ContentTypeFor 按扩展名返回类型，未知扩展名返回 application/octet-stream
func ContentTypeFor(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot >= 0 {
		ext := strings.ToLower(name[dot:])
		for contentType, e := range imageExtensions {
			if e == ext {
				return contentType
			}
		}
		if ext == ".jpeg" {
			return "image/jpeg"
		}
	}
	return "application/octet-stream"
}
