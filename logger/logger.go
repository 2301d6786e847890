package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey struct{}

// Setup 初始化全局日志
// debug 模式输出彩色控制台格式，release 模式输出 JSON
func Setup(mode string) zerolog.Logger {
	var l zerolog.Logger
	if mode == "release" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		l = NewWithWriter(os.Stdout)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		l = New()
	}
	log.Logger = l
	return l
}

// New 控制台日志
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// NewWithWriter 使用自定义 writer 创建日志，测试中常用
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// WithContext 把 logger 放入 context
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext 取出 context 中的 logger，没有则返回全局 logger
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return log.Logger
}

// WithFields 追加结构化字段
func WithFields(l zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	c := l.With()
	for k, v := range fields {
		c = c.Interface(k, v)
	}
	return c.Logger()
}
