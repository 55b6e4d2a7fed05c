// Package base 提供通用的 Repository 基类
package base

import (
	"context"
	"errors"

	"github.com/anoixa/photogram/database"
	"gorm.io/gorm"
)

// Repository 通用仓库基类，按主键读写单表
type Repository[T any] struct {
	db database.Provider
}

// NewRepository 创建新的通用仓库
func NewRepository[T any](db database.Provider) *Repository[T] {
	return &Repository[T]{db: db}
}

// Provider 返回底层数据库提供者
func (r *Repository[T]) Provider() database.Provider {
	return r.db
}

// Create 创建记录
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
}

// GetByID 通过 ID 获取记录，不存在时返回 nil, nil
func (r *Repository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Delete 删除记录，返回是否有行被删除
func (r *Repository[T]) Delete(ctx context.Context, id uint) (bool, error) {
	var deleted int64
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		result := tx.Delete(new(T), id)
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted > 0, err
}

// Exists 检查记录是否存在
func (r *Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Count 获取记录总数
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Count(&count).Error
	return count, err
}

// FirstByCondition 根据条件查询第一条记录
func (r *Repository[T]) FirstByCondition(ctx context.Context, condition string, args ...interface{}) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).Where(condition, args...).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}
