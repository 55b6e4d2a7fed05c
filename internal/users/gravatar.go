package users

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AvatarResolver 根据邮箱查找默认头像
type AvatarResolver interface {
	Lookup(ctx context.Context, email string) (string, error)
}

// Gravatar 通过 Gravatar 查找头像，未注册的邮箱返回空串
type Gravatar struct {
	client  *http.Client
	baseURL string
}

// NewGravatar 创建 Gravatar 查询器
func NewGravatar(timeout time.Duration) *Gravatar {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Gravatar{
		client:  &http.Client{Timeout: timeout},
		baseURL: "https://www.gravatar.com/avatar/",
	}
}

// Lookup 以 d=404 发起 HEAD 请求，存在时返回头像地址
func (g *Gravatar) Lookup(ctx context.Context, email string) (string, error) {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	avatarURL := g.baseURL + hex.EncodeToString(sum[:])

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, avatarURL+"?d=404", nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return avatarURL, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("gravatar returned status %d", resp.StatusCode)
	}
}
