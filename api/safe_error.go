package api

import (
	"errors"

	"jars/config"
	"jars/logger"
	"jars/service"

	"github.com/gin-gonic/gin"
)

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}

// respondError 按业务错误类型返回对应状态码
// 校验错误 400，资源不存在 404，其他 500
func respondError(c *gin.Context, err error, fallback string) {
	var ve *service.ValidationError
	var nf *service.NotFoundError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Message)
	case errors.As(err, &nf):
		NotFound(c, nf.Error())
	default:
		l := logger.FromContext(c.Request.Context())
		l.Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
		InternalError(c, SafeErrorMessage(err, fallback))
	}
}
