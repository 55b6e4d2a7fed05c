// Package media 封装远端媒体存储，提供原图、变换图和二维码的上传与删除
package media

import (
	"context"

	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/utils/generator"
)

// Asset 远端对象的访问地址和标识
type Asset struct {
	URL      string
	PublicID string
}

// Store 媒体存储
type Store interface {
	// UploadOriginal 上传原图到用户的 kind 目录
	UploadOriginal(ctx context.Context, userID uint, data []byte, kind generator.Kind) (Asset, error)

	// UploadTransformed 对 source 执行变换并保存为新对象
	UploadTransformed(ctx context.Context, userID uint, source Asset, params *imaging.Params) (Asset, error)

	// ApplyTransformInPlace 对已存储对象重新执行变换，远端没有产生新地址时返回空串
	ApplyTransformInPlace(ctx context.Context, publicID string, params *imaging.Params) (string, error)

	// UploadQR 上传二维码图片
	UploadQR(ctx context.Context, userID uint, png []byte) (Asset, error)

	// Delete 删除远端对象
	Delete(ctx context.Context, publicID string) error

	Name() string
}

// IdempotentTransformer 原地变换重复执行结果不变的后端实现此接口，
// 调度器只对这类后端的原地变换做重试
type IdempotentTransformer interface {
	InPlaceTransformIdempotent() bool
}
