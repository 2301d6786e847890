package api

import (
	"net/http"

	"jars/config"

	"github.com/gin-gonic/gin"
)

// 授权码登录时保存 state 的 Cookie
const oauthStateCookie = "jars_oauth_state"

// getCookieOptions 根据运行模式返回 Cookie 的安全选项
// release 模式下启用 Secure（仅 HTTPS 传输），并设置 SameSite 以防止 CSRF
func getCookieOptions() (secure bool, sameSite http.SameSite) {
	cfg := config.GetConfig()
	if cfg != nil && cfg.Server.Mode == "release" {
		secure = true
	}
	// SameSite=Lax: 身份提供方重定向回来属于顶级导航，Cookie 仍会携带
	sameSite = http.SameSiteLaxMode
	return
}

func setStateCookie(c *gin.Context, value string, maxAge int) {
	secure, sameSite := getCookieOptions()
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}
