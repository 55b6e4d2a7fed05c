package database

import (
	"context"
	"fmt"

	"github.com/anoixa/photogram/config"
	"github.com/anoixa/photogram/database/models"
	"github.com/anoixa/photogram/utils/logger"
)

// Factory 数据库工厂，负责创建和管理数据库提供者
type Factory struct {
	provider Provider
}

// NewFactory 创建新的数据库工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}
	return &Factory{provider: provider}, nil
}

// NewFactoryWithProvider 使用现成的提供者创建工厂
func NewFactoryWithProvider(provider Provider) *Factory {
	return &Factory{provider: provider}
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Models 返回需要迁移的全部模型
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tag{},
		&models.Picture{},
		&models.TransformedPicture{},
		&models.Comment{},
		&models.Blacklisted{},
	}
}

// AutoMigrate 自动迁移数据库结构
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}

	log := logger.Named("Database")
	log.Info("running database auto migration")
	if err := f.provider.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	log.Info("database auto migration completed")
	return nil
}

// Ping 执行 SELECT 1 探测数据库可用性
func (f *Factory) Ping(ctx context.Context) error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}
	var one int
	if err := f.provider.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return fmt.Errorf("database is not reachable: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("database is not configured correctly")
	}
	return nil
}

// Close 关闭数据库连接
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}
