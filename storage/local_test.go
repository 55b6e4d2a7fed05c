package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalStorage_PathTraversal_Prevention 测试路径遍历防护
func TestLocalStorage_PathTraversal_Prevention(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	traversalAttempts := []string{
		"../../../etc/passwd",
		"..\\..\\..\\windows\\system32\\config\\sam",
		"../../.env",
		"..",
		".",
		"",
		"/etc/passwd",
		"folder/../../../etc/passwd",
	}

	for _, attempt := range traversalAttempts {
		t.Run("save_"+attempt, func(t *testing.T) {
			err := storage.Save(ctx, attempt, strings.NewReader("test content"), 12, "text/plain")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid")
		})
	}

	_, err = storage.Get(ctx, "../../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, storage.Delete(ctx, "../../../etc/passwd"))
}

// TestLocalStorage_Lifecycle 测试写入、读取、覆盖、删除
func TestLocalStorage_Lifecycle(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "photogram/user_1/original_images/abc.webp"

	exists, err := storage.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, storage.Save(ctx, key, strings.NewReader("v1"), 2, "image/webp"))
	require.NoError(t, storage.Save(ctx, key, strings.NewReader("v2"), 2, "image/webp"))

	rc, err := storage.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, storage.Delete(ctx, key))
	// 删除不存在的对象不报错
	require.NoError(t, storage.Delete(ctx, key))

	_, err = storage.Get(ctx, key)
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	assert.NoError(t, storage.Health(ctx))
	assert.Equal(t, "local", storage.Name())
}

// TestLocalStorage_CancelledContext 已取消的上下文不写入
func TestLocalStorage_CancelledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = storage.Save(ctx, "a.txt", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsValidStoragePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantValid bool
	}{
		{"simple", "file.txt", true},
		{"nested", "photogram/user_1/qr_codes/x.png", true},
		{"empty", "", false},
		{"dotdot", "..", false},
		{"absolute_unix", "/etc/passwd", false},
		{"traversal", "../file.txt", false},
		{"null_byte", "file\x00.txt", false},
		{"newline", "file\n.txt", false},
		{"shell", "file;rm.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantValid, IsValidStoragePath(tt.path), "path: %q", tt.path)
		})
	}
}
