package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"jars/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initCookieTestConfig(mode string) {
	config.GlobalConfig = &config.Config{Server: config.ServerConfig{Mode: mode}}
}

func TestGetCookieOptions(t *testing.T) {
	defer func() { config.GlobalConfig = nil }()

	initCookieTestConfig("debug")
	secure, sameSite := getCookieOptions()
	assert.False(t, secure)
	assert.Equal(t, http.SameSiteLaxMode, sameSite)

	initCookieTestConfig("release")
	secure, _ = getCookieOptions()
	assert.True(t, secure)

	config.GlobalConfig = nil
	secure, _ = getCookieOptions()
	assert.False(t, secure)
}

func TestSetStateCookie(t *testing.T) {
	initCookieTestConfig("release")
	defer func() { config.GlobalConfig = nil }()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setStateCookie(c, "abc", stateMaxAge)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, oauthStateCookie, cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.Equal(t, stateMaxAge, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)

	// 清除
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	setStateCookie(c, "", -1)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}
