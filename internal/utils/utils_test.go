package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRealIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"X-Real-IP public", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"Forwarded first public hop", map[string]string{"X-Forwarded-For": "10.0.0.2, 198.51.100.4, 10.0.0.1"}, "198.51.100.4"},
		{"Forwarded all private", map[string]string{"X-Forwarded-For": "192.168.1.10, 10.0.0.1"}, "192.168.1.10"},
		{"No headers", nil, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			assert.Equal(t, tt.expected, GetRealIP(c))
		})
	}
}

func TestParseUserAgent(t *testing.T) {
	t.Run("Unknown", func(t *testing.T) {
		info := ParseUserAgent("")
		assert.Equal(t, "unknown", info.DeviceType)
	})

	t.Run("Android Phone", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36")
		assert.Equal(t, "mobile", info.DeviceType)
		assert.Equal(t, "Chrome", info.Browser)
		assert.False(t, info.IsBot)
	})

	t.Run("Desktop", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36")
		assert.Equal(t, "desktop", info.DeviceType)
	})
}

func TestGenerateJWTSecrets(t *testing.T) {
	access, refresh, err := GenerateJWTSecrets()
	require.NoError(t, err)
	assert.Len(t, access, 64)
	assert.Len(t, refresh, 64)
	assert.NotEqual(t, access, refresh)
}
