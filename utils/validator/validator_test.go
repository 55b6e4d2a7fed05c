package validator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		valid    bool
		mimeType string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}, true, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, true, "image/png"},
		{"gif", []byte("GIF89a"), true, "image/gif"},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00WEBPVP"), make([]byte, 8)...), true, "image/webp"},
		{"text", []byte("hello world"), false, "text/plain; charset=utf-8"},
		{"pdf", []byte("%PDF-1.4"), false, "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, mimeType := IsImage(tt.data)
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.mimeType, mimeType)
		})
	}
}

func TestIsImage_LargeInput(t *testing.T) {
	data := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 4096)...)
	valid, mimeType := IsImage(data)
	assert.True(t, valid)
	assert.Equal(t, "image/png", mimeType)
}
