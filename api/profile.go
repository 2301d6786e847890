package api

import (
	"jars/middleware"
	"jars/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 用户资料
type ProfileHandler struct {
	users *service.UserService
}

func NewProfileHandler(users *service.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// UpdateProfileRequest 修改资料请求
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required,max=100" example:"Nguyen Van A"`
}

// Get 获取当前用户资料
// @Summary 获取个人资料
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Failure 404 {object} Response "用户不存在"
// @Router /api/v1/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		respondError(c, err, "获取用户信息失败")
		return
	}
	Success(c, user)
}

// Update 修改显示名
// @Summary 修改个人资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "资料"
// @Success 200 {object} Response{data=models.User} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}
	user, err := h.users.UpdateName(c.Request.Context(), middleware.GetCurrentUserID(c), req.Name)
	if err != nil {
		respondError(c, err, "更新失败")
		return
	}
	SuccessWithMessage(c, "更新成功", user)
}
