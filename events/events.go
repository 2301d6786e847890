package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 事件类型，同时作为 AMQP routing key
const (
	TypeIncomeAllocated    = "income.allocated"
	TypeTransactionCreated = "transaction.created"
	TypeTransactionDeleted = "transaction.deleted"
	TypeSavingTargetSet    = "saving_target.set"
	TypeUserDataDeleted    = "user.data_deleted"
)

// Event 领域事件
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	UserID     uint        `json:"user_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// New 创建事件
func New(eventType string, userID uint, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Encode 序列化为 JSON
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher 事件发布者
// 发布失败只应记录日志，不影响主流程
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoopPublisher 未配置消息队列时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// MemoryPublisher 把事件保存在内存中，用于测试和本地调试
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *MemoryPublisher) Publish(_ context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events 返回已发布事件的副本
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
