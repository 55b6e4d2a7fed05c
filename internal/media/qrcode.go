package media

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRSize 二维码边长（像素）
const QRSize = 256

// EncodeQR 生成编码 content 的 PNG 二维码
func EncodeQR(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	png, err := qrcode.Encode(content, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
