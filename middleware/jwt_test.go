package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jars/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJWTTestConfig() {
	_ = InitJWT(&config.Config{JWT: config.JWTConfig{Secret: "test-jwt-secret-key"}})
}

func TestInitJWT_RejectsDefaultSecretInRelease(t *testing.T) {
	defer initJWTTestConfig()

	for _, secret := range []string{"", DefaultJWTSecret} {
		cfg := &config.Config{
			Server: config.ServerConfig{Mode: gin.ReleaseMode},
			JWT:    config.JWTConfig{Secret: secret},
		}
		assert.Error(t, InitJWT(cfg), "secret=%q", secret)

		cfg.Server.Mode = gin.DebugMode
		assert.NoError(t, InitJWT(cfg), "secret=%q", secret)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.ReleaseMode},
		JWT:    config.JWTConfig{Secret: "a-real-secret"},
	}
	require.NoError(t, InitJWT(cfg))
	token, err := GenerateToken(1, "a@example.com", time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
}

func TestGenerateToken(t *testing.T) {
	initJWTTestConfig()

	token, err := GenerateToken(1, "alice@example.com", 24*time.Hour)
	require.NoError(t, err)
	assert.Greater(t, len(token), 20)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "1", claims.Subject)
}

func TestParseToken(t *testing.T) {
	initJWTTestConfig()

	_, err := ParseToken("")
	assert.Error(t, err)
	_, err = ParseToken("not.a.valid.jwt")
	assert.Error(t, err)

	// 已过期
	expired, err := GenerateToken(5, "old@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	// 其他密钥签发
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 5}).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = ParseToken(forged)
	assert.Error(t, err)

	// 缺少用户 ID
	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("test-jwt-secret-key"))
	require.NoError(t, err)
	_, err = ParseToken(anonymous)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	initJWTTestConfig()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.String(200, "id:%d", GetCurrentUserID(c))
	})

	do := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/protected", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "401")

	assert.Equal(t, http.StatusUnauthorized, do("Basic xyz").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	token, _ := GenerateToken(42, "u42@example.com", time.Hour)
	w = do("Bearer " + token)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "id:42", w.Body.String())
}

func TestGetCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentUserID(c))

	c.Set("userID", uint(99))
	assert.Equal(t, uint(99), GetCurrentUserID(c))
}
