// Package imaging 定义图片变换参数，并负责渲染为远端变换串或本地处理
package imaging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/mitchellh/mapstructure"
	"gorm.io/datatypes"
)

// 取值范围
const (
	MinDimension   = 100
	MaxDimension   = 2000
	MinQuality     = 1
	MaxQuality     = 100
	MaxAngle       = 360
	MinBorderWidth = 1
	MaxBorderWidth = 50
)

var (
	cropModes = map[string]bool{"fill": true, "fit": true, "scale": true, "crop": true, "thumb": true, "pad": true, "limit": true}
	effects   = map[string]bool{"grayscale": true, "sepia": true, "blur": true, "sharpen": true, "negate": true}

	hexColor   = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)
	namedColor = regexp.MustCompile(`^[a-z]{3,20}$`)
)

// Border 边框
type Border struct {
	Width int    `mapstructure:"width" json:"width"`
	Color string `mapstructure:"color" json:"color"`
}

// Params 经过校验的变换参数，未设置的字段为 nil 或空串
type Params struct {
	Width   *int    `mapstructure:"width"`
	Height  *int    `mapstructure:"height"`
	Crop    string  `mapstructure:"crop"`
	Quality *int    `mapstructure:"quality"`
	Effect  string  `mapstructure:"effect"`
	Angle   *int    `mapstructure:"angle"`
	Mirror  *bool   `mapstructure:"mirror"`
	Border  *Border `mapstructure:"border"`
}

// Parse 解析并校验客户端提交的参数，未知键和空参数都会被拒绝
func Parse(raw map[string]interface{}) (*Params, error) {
	if len(raw) == 0 {
		return nil, errs.New(errs.ErrValidation, "at least one transformation parameter is required")
	}

	var p Params
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errs.Wrap(errs.ErrValidation, err, "invalid transformation parameters")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate 检查每个字段的取值范围
func (p *Params) Validate() error {
	if p.IsEmpty() {
		return errs.New(errs.ErrValidation, "at least one transformation parameter is required")
	}
	if p.Width != nil && (*p.Width < MinDimension || *p.Width > MaxDimension) {
		return errs.Newf(errs.ErrValidation, "width must be between %d and %d", MinDimension, MaxDimension)
	}
	if p.Height != nil && (*p.Height < MinDimension || *p.Height > MaxDimension) {
		return errs.Newf(errs.ErrValidation, "height must be between %d and %d", MinDimension, MaxDimension)
	}
	if p.Crop != "" && !cropModes[p.Crop] {
		return errs.Newf(errs.ErrValidation, "unsupported crop mode %q, expected one of %s", p.Crop, keys(cropModes))
	}
	if p.Quality != nil && (*p.Quality < MinQuality || *p.Quality > MaxQuality) {
		return errs.Newf(errs.ErrValidation, "quality must be between %d and %d", MinQuality, MaxQuality)
	}
	if p.Effect != "" && !effects[p.Effect] {
		return errs.Newf(errs.ErrValidation, "unsupported effect %q, expected one of %s", p.Effect, keys(effects))
	}
	if p.Angle != nil && (*p.Angle < 0 || *p.Angle > MaxAngle) {
		return errs.Newf(errs.ErrValidation, "angle must be between 0 and %d", MaxAngle)
	}
	if p.Border != nil {
		if p.Border.Width < MinBorderWidth || p.Border.Width > MaxBorderWidth {
			return errs.Newf(errs.ErrValidation, "border width must be between %d and %d", MinBorderWidth, MaxBorderWidth)
		}
		if p.Border.Color == "" {
			p.Border.Color = "black"
		}
		if !hexColor.MatchString(p.Border.Color) && !namedColor.MatchString(p.Border.Color) {
			return errs.Newf(errs.ErrValidation, "invalid border color %q", p.Border.Color)
		}
	}
	return nil
}

// IsEmpty 没有任何参数被设置
func (p *Params) IsEmpty() bool {
	return p.Width == nil && p.Height == nil && p.Crop == "" && p.Quality == nil &&
		p.Effect == "" && p.Angle == nil && p.Mirror == nil && p.Border == nil
}

// ToMap 转为可持久化的 JSON 对象，只包含已设置的键
func (p *Params) ToMap() datatypes.JSONMap {
	m := datatypes.JSONMap{}
	if p.Width != nil {
		m["width"] = *p.Width
	}
	if p.Height != nil {
		m["height"] = *p.Height
	}
	if p.Crop != "" {
		m["crop"] = p.Crop
	}
	if p.Quality != nil {
		m["quality"] = *p.Quality
	}
	if p.Effect != "" {
		m["effect"] = p.Effect
	}
	if p.Angle != nil {
		m["angle"] = *p.Angle
	}
	if p.Mirror != nil {
		m["mirror"] = *p.Mirror
	}
	if p.Border != nil {
		m["border"] = map[string]interface{}{"width": p.Border.Width, "color": p.Border.Color}
	}
	return m
}

// Transformation 渲染为 Cloudinary 的链式变换串，如 w_800,h_600,c_fill/q_70/e_sepia
func (p *Params) Transformation() string {
	var chain []string

	var size []string
	if p.Width != nil {
		size = append(size, fmt.Sprintf("w_%d", *p.Width))
	}
	if p.Height != nil {
		size = append(size, fmt.Sprintf("h_%d", *p.Height))
	}
	if p.Crop != "" {
		size = append(size, "c_"+p.Crop)
	}
	if len(size) > 0 {
		chain = append(chain, strings.Join(size, ","))
	}

	if p.Quality != nil {
		chain = append(chain, fmt.Sprintf("q_%d", *p.Quality))
	}
	if p.Effect != "" {
		chain = append(chain, "e_"+p.Effect)
	}
	if p.Angle != nil && *p.Angle%360 != 0 {
		chain = append(chain, fmt.Sprintf("a_%d", *p.Angle))
	}
	if p.Mirror != nil && *p.Mirror {
		chain = append(chain, "a_hflip")
	}
	if p.Border != nil {
		chain = append(chain, fmt.Sprintf("bo_%dpx_solid_%s", p.Border.Width, cloudinaryColor(p.Border.Color)))
	}

	return strings.Join(chain, "/")
}

func cloudinaryColor(c string) string {
	if hexColor.MatchString(c) {
		return "rgb:" + strings.ToLower(strings.TrimPrefix(c, "#"))
	}
	return c
}

func keys(m map[string]bool) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}
