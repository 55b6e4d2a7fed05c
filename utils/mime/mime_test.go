package mime

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestSniffContentType_ResetsStream(t *testing.T) {
	r := bytes.NewReader(pngHeader)
	ct, err := SniffContentType(r)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, rest)
}

func TestIsImageAndExtension(t *testing.T) {
	assert.True(t, IsImage("image/jpeg"))
	assert.True(t, IsImage("IMAGE/PNG; charset=binary"))
	assert.False(t, IsImage("text/plain; charset=utf-8"))

	assert.Equal(t, ".webp", ExtensionFor("image/webp"))
	assert.Equal(t, ".bin", ExtensionFor("application/pdf"))
}
