package database

import (
	"context"

	"gorm.io/gorm"
)

// TxFunc 在事务内执行的函数，返回错误时回滚
type TxFunc func(tx *gorm.DB) error

// Provider 仓库层持有的数据库句柄，sqlite 与 postgres 共用一套实现
type Provider interface {
	DB() *gorm.DB
	WithContext(ctx context.Context) *gorm.DB

	// TransactionWithContext 级联删除和标签关联写入都经由此方法
	TransactionWithContext(ctx context.Context, fn TxFunc) error

	AutoMigrate(models ...interface{}) error
	Close() error

	// Name 返回方言名称：sqlite 或 postgres
	Name() string
}
