package api

import (
	"crypto/subtle"

	"jars/config"
	"jars/middleware"
	"jars/models"
	"jars/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// state Cookie 有效期（秒）
const stateMaxAge = 600

// AuthHandler 外部身份提供方登录
type AuthHandler struct {
	cfg      *config.Config
	identity *service.IdentityService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, identity *service.IdentityService) *AuthHandler {
	return &AuthHandler{cfg: cfg, identity: identity}
}

// LoginURLResponse 授权地址
type LoginURLResponse struct {
	URL   string `json:"url" example:"https://idp.example.com/authorize?client_id=..."`
	State string `json:"state" example:"6f1c..."`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token    string      `json:"token"`
	UserInfo models.User `json:"user_info"`
}

// LoginURL 获取授权地址
// @Summary 获取登录地址
// @Description 返回身份提供方的授权地址，同时在 Cookie 中写入 state
// @Tags 认证
// @Produce json
// @Success 200 {object} Response{data=LoginURLResponse} "获取成功"
// @Failure 503 {object} Response "未配置身份提供方"
// @Router /api/v1/auth/login-url [get]
func (h *AuthHandler) LoginURL(c *gin.Context) {
	if !h.identity.Enabled() {
		ServiceUnavailable(c, "未配置身份提供方")
		return
	}
	state := uuid.NewString()
	setStateCookie(c, state, stateMaxAge)
	Success(c, LoginURLResponse{URL: h.identity.AuthCodeURL(state), State: state})
}

// Callback 授权回调
// @Summary 登录回调
// @Description 用授权码换取身份，首次登录自动创建用户并开通六个罐子，返回 JWT
// @Tags 认证
// @Produce json
// @Param code query string true "授权码"
// @Param state query string true "登录地址返回的 state"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "state 校验失败"
// @Failure 401 {object} Response "身份验证失败"
// @Router /api/v1/auth/callback [get]
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	saved, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(saved), []byte(state)) != 1 {
		BadRequest(c, "state 校验失败，请重新登录")
		return
	}
	setStateCookie(c, "", -1)

	user, err := h.identity.Login(c.Request.Context(), c.Query("code"))
	if err != nil {
		if service.IsValidation(err) {
			respondError(c, err, "登录失败")
			return
		}
		Unauthorized(c, SafeErrorMessage(err, "身份验证失败"))
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "生成 token 失败"))
		return
	}
	SuccessWithMessage(c, "登录成功", LoginResponse{Token: token, UserInfo: *user})
}
