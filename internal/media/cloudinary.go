package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore 使用 Cloudinary 完成存储和变换
type CloudinaryStore struct {
	cld  *cloudinary.Cloudinary
	keys *generator.KeyGenerator
}

var _ Store = (*CloudinaryStore)(nil)

// NewCloudinaryStore 创建 Cloudinary 后端
func NewCloudinaryStore(cloudName, apiKey, apiSecret string, keys *generator.KeyGenerator) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryStore{cld: cld, keys: keys}, nil
}

func (c *CloudinaryStore) UploadOriginal(ctx context.Context, userID uint, data []byte, kind generator.Kind) (Asset, error) {
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder: c.keys.Folder(userID, kind),
	})
	if err != nil {
		return Asset{}, err
	}
	if resp.Error.Message != "" {
		return Asset{}, errors.New(resp.Error.Message)
	}
	return Asset{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// UploadTransformed 以原图 URL 为源上传，并在上传时应用变换
func (c *CloudinaryStore) UploadTransformed(ctx context.Context, userID uint, source Asset, params *imaging.Params) (Asset, error) {
	resp, err := c.cld.Upload.Upload(ctx, source.URL, uploader.UploadParams{
		Folder:         c.keys.Folder(userID, generator.KindTransformed),
		Transformation: params.Transformation(),
	})
	if err != nil {
		return Asset{}, err
	}
	if resp.Error.Message != "" {
		return Asset{}, errors.New(resp.Error.Message)
	}
	return Asset{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// ApplyTransformInPlace 通过 explicit 接口生成 eager 派生图
func (c *CloudinaryStore) ApplyTransformInPlace(ctx context.Context, publicID string, params *imaging.Params) (string, error) {
	resp, err := c.cld.Upload.Explicit(ctx, uploader.ExplicitParams{
		PublicID: publicID,
		Type:     "upload",
		Eager:    params.Transformation(),
	})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	if len(resp.Eager) == 0 {
		return "", nil
	}
	return resp.Eager[0].SecureURL, nil
}

// InPlaceTransformIdempotent eager 派生图总是从原始资源生成
func (c *CloudinaryStore) InPlaceTransformIdempotent() bool {
	return true
}

func (c *CloudinaryStore) UploadQR(ctx context.Context, userID uint, png []byte) (Asset, error) {
	return c.UploadOriginal(ctx, userID, png, generator.KindQRCode)
}

// Delete 删除对象，对象已不存在视为成功
func (c *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	if resp.Error.Message != "" {
		return errors.New(resp.Error.Message)
	}
	switch resp.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("destroy %s: %s", publicID, resp.Result)
	}
}

func (c *CloudinaryStore) Name() string {
	return "cloudinary"
}
