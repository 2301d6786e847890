package api

import (
	"encoding/json"
	"errors"
	"io"

	"jars/assistant"
	"jars/middleware"

	"github.com/gin-gonic/gin"
)

// 工具参数最大字节数
const maxToolArgsBytes = 64 << 10

// AssistantHandler 聊天助手工具
type AssistantHandler struct {
	registry *assistant.Registry
}

func NewAssistantHandler(registry *assistant.Registry) *AssistantHandler {
	return &AssistantHandler{registry: registry}
}

// Tools 工具声明列表
// @Summary 助手工具列表
// @Tags 助手
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]assistant.Declaration} "获取成功"
// @Router /api/v1/assistant/tools [get]
func (h *AssistantHandler) Tools(c *gin.Context) {
	Success(c, h.registry.Declarations())
}

// Execute 执行工具
// @Summary 执行助手工具
// @Description 请求体为工具参数（JSON 对象），结果为 {success, message, data}
// @Tags 助手
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "工具名"
// @Param request body object true "工具参数"
// @Success 200 {object} Response{data=assistant.Result} "执行完成"
// @Failure 400 {object} Response "参数不是合法 JSON"
// @Failure 404 {object} Response "工具不存在"
// @Router /api/v1/assistant/tools/{name} [post]
func (h *AssistantHandler) Execute(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxToolArgsBytes))
	if err != nil {
		BadRequest(c, "读取请求失败")
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		BadRequest(c, "参数不是合法的 JSON")
		return
	}

	res, err := h.registry.Execute(c.Request.Context(), c.Param("name"), middleware.GetCurrentUserID(c), body)
	if err != nil {
		if errors.Is(err, assistant.ErrUnknownTool) {
			NotFound(c, "工具不存在: "+c.Param("name"))
			return
		}
		InternalError(c, SafeErrorMessage(err, "执行失败"))
		return
	}
	Success(c, res)
}
