package imaging

import (
	"fmt"
	"sync"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/davidbyttow/govips/v2/vips"
)

// DefaultQuality 未指定质量时的 WebP 导出质量
const DefaultQuality = 80

// Renderer 在本地执行变换，供不具备远端变换能力的对象存储后端使用
type Renderer interface {
	// Render 对原始字节执行变换，返回 WebP 编码结果
	Render(src []byte, p *Params) ([]byte, error)
	// Normalize 将上传的原图统一转码为 WebP
	Normalize(src []byte) ([]byte, error)
}

var startupOnce sync.Once

// Startup 启动 libvips，可重复调用
func Startup() {
	startupOnce.Do(func() {
		vips.LoggingSettings(nil, vips.LogLevelWarning)
		vips.Startup(nil)
	})
}

// Shutdown 释放 libvips
func Shutdown() {
	vips.Shutdown()
}

// VipsRenderer 基于 libvips 的渲染器
type VipsRenderer struct{}

// NewVipsRenderer 创建渲染器并确保 libvips 已启动
func NewVipsRenderer() *VipsRenderer {
	Startup()
	return &VipsRenderer{}
}

// Normalize 将原图转码为 WebP
func (r *VipsRenderer) Normalize(src []byte) ([]byte, error) {
	img, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return nil, errs.Wrap(errs.ErrValidation, err, "unsupported image data")
	}
	defer img.Close()

	return exportWebp(img, DefaultQuality)
}

// Render 按参数依次执行缩放、特效、旋转、镜像和边框
func (r *VipsRenderer) Render(src []byte, p *Params) ([]byte, error) {
	if p.Angle != nil && *p.Angle%90 != 0 {
		return nil, errs.New(errs.ErrValidation, "angle must be a multiple of 90 for this storage backend")
	}

	img, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return nil, errs.Wrap(errs.ErrValidation, err, "unsupported image data")
	}
	defer img.Close()

	if err := resize(img, p); err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	if err := applyEffect(img, p.Effect); err != nil {
		return nil, fmt.Errorf("effect %s: %w", p.Effect, err)
	}
	if p.Angle != nil {
		if err := img.Rotate(rightAngle(*p.Angle)); err != nil {
			return nil, fmt.Errorf("rotate: %w", err)
		}
	}
	if p.Mirror != nil && *p.Mirror {
		if err := img.Flip(vips.DirectionHorizontal); err != nil {
			return nil, fmt.Errorf("flip: %w", err)
		}
	}
	if p.Border != nil {
		w := p.Border.Width
		extend := vips.ExtendBlack
		if p.Border.Color == "white" || p.Border.Color == "#ffffff" || p.Border.Color == "ffffff" {
			extend = vips.ExtendWhite
		}
		if err := img.Embed(w, w, img.Width()+2*w, img.Height()+2*w, extend); err != nil {
			return nil, fmt.Errorf("border: %w", err)
		}
	}

	quality := DefaultQuality
	if p.Quality != nil {
		quality = *p.Quality
	}
	return exportWebp(img, quality)
}

func resize(img *vips.ImageRef, p *Params) error {
	if p.Width == nil && p.Height == nil {
		return nil
	}

	srcW, srcH := img.Width(), img.Height()
	w, h := srcW, srcH
	switch {
	case p.Width != nil && p.Height != nil:
		w, h = *p.Width, *p.Height
	case p.Width != nil:
		w = *p.Width
		h = srcH * w / srcW
	default:
		h = *p.Height
		w = srcW * h / srcH
	}

	switch p.Crop {
	case "fill", "crop", "thumb":
		return img.Thumbnail(w, h, vips.InterestingCentre)
	case "scale":
		return img.ThumbnailWithSize(w, h, vips.InterestingNone, vips.SizeForce)
	case "limit":
		return img.ThumbnailWithSize(w, h, vips.InterestingNone, vips.SizeDown)
	case "pad":
		if err := img.ThumbnailWithSize(w, h, vips.InterestingNone, vips.SizeBoth); err != nil {
			return err
		}
		left := (w - img.Width()) / 2
		top := (h - img.Height()) / 2
		return img.Embed(left, top, w, h, vips.ExtendBlack)
	default:
		// fit 以及未指定裁剪方式时，保持比例缩放到框内
		return img.ThumbnailWithSize(w, h, vips.InterestingNone, vips.SizeBoth)
	}
}

func applyEffect(img *vips.ImageRef, effect string) error {
	switch effect {
	case "":
		return nil
	case "grayscale":
		return img.ToColorSpace(vips.InterpretationBW)
	case "sepia":
		if err := img.ToColorSpace(vips.InterpretationSRGB); err != nil {
			return err
		}
		return img.Modulate(1.0, 0.35, 30)
	case "blur":
		return img.GaussianBlur(2.0)
	case "sharpen":
		return img.Sharpen(1.0, 2.0, 10.0)
	case "negate":
		return img.Invert()
	default:
		return errs.Newf(errs.ErrValidation, "unsupported effect %q", effect)
	}
}

func rightAngle(angle int) vips.Angle {
	switch angle % 360 {
	case 90:
		return vips.Angle90
	case 180:
		return vips.Angle180
	case 270:
		return vips.Angle270
	default:
		return vips.Angle0
	}
}

func exportWebp(img *vips.ImageRef, quality int) ([]byte, error) {
	out, _, err := img.ExportWebp(&vips.WebpExportParams{
		Quality:         quality,
		Lossless:        false,
		ReductionEffort: 4,
		StripMetadata:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("export webp: %w", err)
	}
	return out, nil
}
