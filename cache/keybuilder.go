package cache

import "strings"

// keyNamespace 所有键的公共前缀，多个服务共用一个 redis 时互不覆盖
const keyNamespace = "photogram"

// KeyBuilder 某一类缓存数据的键
type KeyBuilder struct {
	kind string
}

// NewKeyBuilder kind 为数据类别，如 user、rate_limit
func NewKeyBuilder(kind string) *KeyBuilder {
	return &KeyBuilder{kind: kind}
}

// Build 拼接为 photogram:<kind>:<part>...
func (kb *KeyBuilder) Build(parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, keyNamespace, kb.kind)
	segments = append(segments, parts...)
	return strings.Join(segments, ":")
}

var (
	// User 按邮箱缓存的用户
	User = NewKeyBuilder("user")

	// RateLimit 限流计数器
	RateLimit = NewKeyBuilder("rate_limit")

	// Dashboard 管理后台统计
	Dashboard = NewKeyBuilder("dashboard")
)

// UserKey 邮箱不区分大小写
func UserKey(email string) string {
	return User.Build(strings.ToLower(email))
}
