package api

import (
	"context"
	"time"

	"jars/repository"

	"github.com/gin-gonic/gin"
)

// HealthHandler 健康检查
type HealthHandler struct {
	store *repository.Store
}

func NewHealthHandler(store *repository.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} Response "服务正常"
// @Failure 503 {object} Response "数据库不可用"
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		ServiceUnavailable(c, SafeErrorMessage(err, "数据库不可用"))
		return
	}
	Success(c, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
