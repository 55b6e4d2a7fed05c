package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/anoixa/photogram/internal/errs"
	"github.com/anoixa/photogram/internal/imaging"
	"github.com/anoixa/photogram/storage"
	"github.com/anoixa/photogram/utils/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 最小的合法 PNG 文件头，足以通过类型嗅探
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// prefixRenderer 在数据前追加变换串，便于断言
type prefixRenderer struct{}

func (prefixRenderer) Render(src []byte, p *imaging.Params) ([]byte, error) {
	return append([]byte(p.Transformation()+"|"), src...), nil
}

func (prefixRenderer) Normalize(src []byte) ([]byte, error) {
	return append([]byte("webp|"), src...), nil
}

func newObjectStore(t *testing.T) (*ObjectStore, storage.Provider) {
	t.Helper()
	objects, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	s := NewObjectStore(objects, prefixRenderer{}, generator.NewKeyGenerator("photogram"), "http://localhost:8000/")
	s.now = func() time.Time { return time.Unix(0, 42) }
	return s, objects
}

func readObject(t *testing.T, objects storage.Provider, key string) string {
	t.Helper()
	rc, err := objects.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestObjectStore_Lifecycle(t *testing.T) {
	s, objects := newObjectStore(t)
	ctx := context.Background()

	original, err := s.UploadOriginal(ctx, 7, pngHeader, generator.KindOriginal)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(original.PublicID, "photogram/user_7/original_images/"))
	assert.True(t, strings.HasSuffix(original.PublicID, ".webp"))
	assert.Equal(t, "http://localhost:8000/files/"+original.PublicID, original.URL)

	width := 300
	params := &imaging.Params{Width: &width}
	transformed, err := s.UploadTransformed(ctx, 7, original, params)
	require.NoError(t, err)
	assert.Contains(t, transformed.PublicID, "/transformed_images/")
	assert.True(t, strings.HasPrefix(readObject(t, objects, transformed.PublicID), "w_300|webp|"))

	url, err := s.ApplyTransformInPlace(ctx, transformed.PublicID, params)
	require.NoError(t, err)
	assert.Equal(t, transformed.URL+"?v=42", url)
	assert.True(t, strings.HasPrefix(readObject(t, objects, transformed.PublicID), "w_300|w_300|"))

	qr, err := s.UploadQR(ctx, 7, []byte("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(qr.PublicID, ".png"))

	require.NoError(t, s.Delete(ctx, transformed.PublicID))
	exists, err := objects.Exists(ctx, transformed.PublicID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestObjectStore_RejectsNonImage(t *testing.T) {
	s, _ := newObjectStore(t)

	_, err := s.UploadOriginal(context.Background(), 1, []byte("just some text"), generator.KindOriginal)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestObjectStore_MissingSource(t *testing.T) {
	s, _ := newObjectStore(t)

	_, err := s.UploadTransformed(context.Background(), 1, Asset{PublicID: "photogram/user_1/original_images/missing.webp"}, &imaging.Params{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrObjectNotFound))
}

func TestEncodeQR(t *testing.T) {
	png, err := EncodeQR("https://cdn/t.webp")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = EncodeQR("")
	assert.Error(t, err)
}
