package generator

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Kind 媒体对象分类，对应远端存储中的子目录
type Kind string

const (
	KindOriginal    Kind = "original_images"
	KindTransformed Kind = "transformed_images"
	KindQRCode      Kind = "qr_codes"
	KindAvatar      Kind = "avatars"
)

// KeyGenerator 按 <root>/user_<id>/<kind>/ 分层生成对象路径
type KeyGenerator struct {
	root string
}

// NewKeyGenerator 创建路径生成器，root 为空时使用 "photogram"
func NewKeyGenerator(root string) *KeyGenerator {
	root = strings.Trim(root, "/")
	if root == "" {
		root = "photogram"
	}
	return &KeyGenerator{root: root}
}

// Folder 返回用户某类对象所在目录，如 photogram/user_7/original_images
func (g *KeyGenerator) Folder(userID uint, kind Kind) string {
	return path.Join(g.root, fmt.Sprintf("user_%d", userID), string(kind))
}

// NewKey 在目录下生成一个随机对象路径，ext 需包含点号
func (g *KeyGenerator) NewKey(userID uint, kind Kind, ext string) string {
	return path.Join(g.Folder(userID, kind), uuid.NewString()+ext)
}
