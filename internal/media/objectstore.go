package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/storage"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/anoixa/photogram/utils/mime"
)

// ObjectStore 在对象存储之上实现媒体存储，变换由本地渲染器完成
// 对象的公开标识即存储键，访问地址为 <baseURL>/files/<key>
type ObjectStore struct {
	objects  storage.Provider
	renderer imaging.Renderer
	keys     *generator.KeyGenerator
	baseURL  string
	now      func() time.Time
}

var _ Store = (*ObjectStore)(nil)

// NewObjectStore 创建对象存储后端
func NewObjectStore(objects storage.Provider, renderer imaging.Renderer, keys *generator.KeyGenerator, baseURL string) *ObjectStore {
	return &ObjectStore{
		objects:  objects,
		renderer: renderer,
		keys:     keys,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      time.Now,
	}
}

// URL 返回对象的访问地址
func (s *ObjectStore) URL(key string) string {
	return s.baseURL + "/files/" + key
}

// UploadOriginal 校验图片类型，统一转码为 WebP 后保存
func (s *ObjectStore) UploadOriginal(ctx context.Context, userID uint, data []byte, kind generator.Kind) (Asset, error) {
	contentType, err := mime.SniffContentType(bytes.NewReader(data))
	if err != nil {
		return Asset{}, err
	}
	if !mime.IsImage(contentType) {
		return Asset{}, errs.Newf(errs.ErrValidation, "unsupported file type %s", contentType)
	}

	webp, err := s.renderer.Normalize(data)
	if err != nil {
		return Asset{}, err
	}
	return s.put(ctx, s.keys.NewKey(userID, kind, ".webp"), webp, "image/webp")
}

func (s *ObjectStore) UploadTransformed(ctx context.Context, userID uint, source Asset, params *imaging.Params) (Asset, error) {
	src, err := s.read(ctx, source.PublicID)
	if err != nil {
		return Asset{}, err
	}
	out, err := s.renderer.Render(src, params)
	if err != nil {
		return Asset{}, err
	}
	return s.put(ctx, s.keys.NewKey(userID, generator.KindTransformed, ".webp"), out, "image/webp")
}

// ApplyTransformInPlace 覆盖原对象，返回带版本参数的新地址
func (s *ObjectStore) ApplyTransformInPlace(ctx context.Context, publicID string, params *imaging.Params) (string, error) {
	src, err := s.read(ctx, publicID)
	if err != nil {
		return "", err
	}
	out, err := s.renderer.Render(src, params)
	if err != nil {
		return "", err
	}
	if _, err := s.put(ctx, publicID, out, "image/webp"); err != nil {
		return "", err
	}
	return s.URL(publicID) + "?v=" + strconv.FormatInt(s.now().UnixNano(), 10), nil
}

func (s *ObjectStore) UploadQR(ctx context.Context, userID uint, png []byte) (Asset, error) {
	return s.put(ctx, s.keys.NewKey(userID, generator.KindQRCode, ".png"), png, "image/png")
}

func (s *ObjectStore) Delete(ctx context.Context, publicID string) error {
	return s.objects.Delete(ctx, publicID)
}

func (s *ObjectStore) Name() string {
	return s.objects.Name()
}

func (s *ObjectStore) put(ctx context.Context, key string, data []byte, contentType string) (Asset, error) {
	if err := s.objects.Save(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Asset{}, err
	}
	return Asset{URL: s.URL(key), PublicID: key}, nil
}

func (s *ObjectStore) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.objects.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read source object: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
