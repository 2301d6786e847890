package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jars/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ContextUserID gin 上下文中当前用户 ID 的键
const ContextUserID = "userID"

var jwtSecret []byte

// Claims JWT 载荷
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// DefaultJWTSecret 默认配置文件中的占位密钥
const DefaultJWTSecret = "change-me"

// InitJWT 初始化签名密钥
// release 模式下密钥为空或仍是占位值时返回错误，debug 模式只告警
func InitJWT(cfg *config.Config) error {
	secret := cfg.JWT.Secret
	if secret == "" || secret == DefaultJWTSecret {
		if cfg.Server.Mode == gin.ReleaseMode {
			return errors.New("release 模式下必须设置 jwt.secret（不能为空或默认值）")
		}
		log.Warn().Msg("JWT secret 为空或为默认值，请在配置中设置 jwt.secret")
	}
	jwtSecret = []byte(secret)
	return nil
}

// GenerateToken 签发 token
func GenerateToken(userID uint, email string, expire time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
			Issuer:    "jars",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// ParseToken 校验签名和过期时间
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token 为空")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, errors.New("无效的 token")
	}
	return claims, nil
}

// JWTAuth 校验 Authorization: Bearer <token>
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "未登录或 token 格式错误")
			return
		}

		claims, err := ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c, "token 无效或已过期")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// GetCurrentUserID 当前登录用户 ID，未登录时为 0
func GetCurrentUserID(c *gin.Context) uint {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(401, gin.H{"code": 401, "message": message})
}
