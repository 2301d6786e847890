package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AMQPPublisher 通过 RabbitMQ direct exchange 发布事件
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// NewAMQPPublisher 连接 broker 并声明 exchange、queue 和各事件类型的绑定
func NewAMQPPublisher(url, exchange, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接 AMQP 失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("打开 AMQP channel 失败: %w", err)
	}

	p := &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		queue:    queue,
	}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) setup() error {
	if err := p.channel.ExchangeDeclare(
		p.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("声明 exchange 失败: %w", err)
	}

	if _, err := p.channel.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("声明 queue 失败: %w", err)
	}

	for _, key := range []string{
		TypeIncomeAllocated,
		TypeTransactionCreated,
		TypeTransactionDeleted,
		TypeSavingTargetSet,
		TypeUserDataDeleted,
	} {
		if err := p.channel.QueueBind(p.queue, key, p.exchange, false, nil); err != nil {
			return fmt.Errorf("绑定 queue 失败: %w", err)
		}
	}
	return nil
}

// Publish 发布事件，routing key 为事件类型
func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := evt.Encode()
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channel 不是并发安全的
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		evt.Type,   // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.ID,
			Timestamp:    evt.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}

	log.Debug().Str("event", evt.Type).Str("id", evt.ID).Uint("user_id", evt.UserID).Msg("已发布事件")
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
