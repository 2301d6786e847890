package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// GinLogger 请求日志中间件
// 为每个请求生成 request id，并把带 request id 的 logger 注入 request context
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		l := log.Logger.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), l))

		c.Next()

		status := c.Writer.Status()
		evt := l.Info()
		if status >= 500 {
			evt = l.Error()
		} else if status >= 400 {
			evt = l.Warn()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}
