// Package dbtest 为仓库和服务测试提供独立的内存 SQLite 数据库
package dbtest

import (
	"fmt"
	"testing"

	"github.com/anoixa/photogram/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewProvider 创建一个已完成迁移的内存数据库，测试结束时自动关闭
func NewProvider(t *testing.T) database.Provider {
	t.Helper()

	// 每个测试独立命名，避免 cache=shared 时互相污染
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	provider := database.NewGormProviderFromDB(db)
	require.NoError(t, provider.AutoMigrate(database.Models()...))

	t.Cleanup(func() {
		_ = provider.Close()
	})
	return provider
}
