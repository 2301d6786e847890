// Package assistant 聊天助手可调用的工具。自然语言路由在上游完成，
// 这里只负责按名称执行已解析出参数的工具调用。
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"jars/config"
	"jars/logger"
	"jars/service"
)

// ErrUnknownTool 未注册的工具名
var ErrUnknownTool = errors.New("unknown tool")

// Result 工具执行结果，原样返回给助手
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Property 参数说明
type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Items       *Property   `json:"items,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// Schema 参数结构，JSON Schema 的子集
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Declaration 提供给模型的工具声明
type Declaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Tool 一个可执行的工具
type Tool interface {
	Declaration() Declaration
	Execute(ctx context.Context, userID uint, args json.RawMessage) Result
}

// Registry 按名称保存工具
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register 同名工具后注册的覆盖先注册的
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Declaration().Name] = t
}

// Declarations 全部工具声明，按名称排序
func (r *Registry) Declarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Declaration, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Declaration())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute 执行指定工具，工具不存在时返回 ErrUnknownTool
func (r *Registry) Execute(ctx context.Context, name string, userID uint, args json.RawMessage) (Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	l := logger.FromContext(ctx)
	res := t.Execute(ctx, userID, args)
	l.Info().Str("tool", name).Uint("user_id", userID).Bool("success", res.Success).Msg("助手工具调用")
	return res, nil
}

// decodeArgs 空参数视为 {}
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.UseNumber()
	return dec.Decode(v)
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}

// failureFromError 校验和不存在错误直接给出原因，其他错误按运行模式隐藏细节
func failureFromError(ctx context.Context, err error, fallback string) Result {
	var ve *service.ValidationError
	var nf *service.NotFoundError
	switch {
	case errors.As(err, &ve):
		return failure(ve.Message)
	case errors.As(err, &nf):
		return failure(nf.Error())
	}
	l := logger.FromContext(ctx)
	l.Error().Err(err).Msg(fallback)
	return failure(config.SafeErrorMessage(err, fallback))
}
