package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDrop — обработчик сигнализирует, что сообщение не может быть
// обработано никогда (битый payload, run удалён). Consumer отправляет
// его в DLQ вместо возврата в очередь.
var ErrDrop = errors.New("drop message")

// Handler — функция обработки сообщения.
//
// nil — сообщение подтверждается (ack). Ошибка, обёрнутая в ErrDrop, —
// сообщение уходит в DLQ. Любая другая ошибка — сообщение возвращается
// в очередь; при повторной неудаче того же сообщения оно тоже уходит
// в DLQ, потому что зависшие runs восстанавливает polling по БД, а не
// бесконечный requeue.
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет сообщения run-очереди.
type Consumer struct {
	conn    *Connection
	logger  *slog.Logger
	queue   string
	types   map[MessageType]bool
	handler Handler

	// prefetch ограничивает количество невыполненных runs на инстанс.
	// Run занимает runner на всё время выполнения графа (HTTP-узлы
	// могут работать минутами), поэтому дефолт — одно сообщение.
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Types — допустимые типы сообщений. Сообщение с типом вне списка
	// уходит в DLQ. Пустой список отключает фильтр.
	Types []MessageType

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений в обработке одновременно
	// (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	var types map[MessageType]bool
	if len(cfg.Types) > 0 {
		types = make(map[MessageType]bool, len(cfg.Types))
		for _, t := range cfg.Types {
			types[t] = true
		}
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		types:    types,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start запускает потребление и блокируется до отмены контекста.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.openStream()
		if err != nil {
			c.logger.Error("failed to open delivery stream", "queue", c.queue, "error", err)
			if err := c.awaitRestore(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started", "queue", c.queue, "prefetch", c.prefetch)

		if err := c.drain(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("delivery stream closed", "queue", c.queue)
			if err := c.awaitRestore(ctx); err != nil {
				return err
			}
		}
	}
}

// awaitRestore ждёт восстановления соединения либо отмены контекста.
func (c *Consumer) awaitRestore(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("connection restored, resuming consumer", "queue", c.queue)
		return nil
	}
}

// openStream выставляет prefetch и начинает потребление очереди.
func (c *Consumer) openStream() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (ack вручную после обработки)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// drain обрабатывает сообщения до закрытия стрима или отмены контекста.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery stream closed")
			}

			c.dispatch(ctx, raw)
		}
	}
}

// dispatch разбирает одно сообщение и решает его судьбу: ack, requeue
// или DLQ.
func (c *Consumer) dispatch(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("malformed message",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		raw.Nack(false, false)
		return
	}

	if c.types != nil && !c.types[msg.Type] {
		c.logger.Warn("unexpected message type",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		raw.Nack(false, false)
		return
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	err := c.handler(ctx, &msg)
	if err == nil {
		raw.Ack(false)
		return
	}

	c.logger.Error("handler failed",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
		"redelivered", raw.Redelivered,
		"error", err,
	)

	if errors.Is(err, ErrDrop) || raw.Redelivered {
		// Вторая неудача или заведомо необрабатываемое сообщение:
		// в DLQ. Сам run останется PENDING в БД и его подберёт polling.
		raw.Nack(false, false)
		return
	}

	raw.Nack(false, true)
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload может быть уже распарсен как map или быть raw json
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
