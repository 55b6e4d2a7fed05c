package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:    "0123456789abcdef0123456789abcdef",
		JWTAlgorithm: "HS256",
		MediaBackend: "local",
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	short := validConfig()
	short.JWTSecret = "too-short"
	assert.Error(t, short.Validate())

	alg := validConfig()
	alg.JWTAlgorithm = "RS256"
	assert.Error(t, alg.Validate())

	cld := validConfig()
	cld.MediaBackend = "cloudinary"
	assert.Error(t, cld.Validate())
	cld.CloudinaryName, cld.CloudinaryAPIKey, cld.CloudinaryAPISecret = "demo", "key", "secret"
	assert.NoError(t, cld.Validate())
}

func TestAddrAndBaseURL(t *testing.T) {
	cfg := &Config{ServerHost: "0.0.0.0", ServerPort: 9000}
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL())

	cfg.ServerDomain = "https://photos.example.com"
	assert.Equal(t, "https://photos.example.com", cfg.BaseURL())

	empty := &Config{}
	assert.Equal(t, "0.0.0.0:8000", empty.Addr())
}
