package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAcker фиксирует решение consumer по сообщению.
type fakeAcker struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runPendingBody(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(Message{
		ID:   "m-1",
		Type: MessageTypeRunPending,
	})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return data
}

func TestDispatchAckNackPolicy(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		handlerErr  error
		wantAck     bool
		wantNack    bool
		wantRequeue bool
	}{
		{
			name:    "успешная обработка подтверждается",
			wantAck: true,
		},
		{
			name:        "временная ошибка возвращает сообщение в очередь",
			handlerErr:  errors.New("db unavailable"),
			wantNack:    true,
			wantRequeue: true,
		},
		{
			name:        "повторная неудача уходит в DLQ",
			handlerErr:  errors.New("db unavailable"),
			redelivered: true,
			wantNack:    true,
		},
		{
			name:       "ErrDrop уходит в DLQ сразу",
			handlerErr: fmt.Errorf("%w: run deleted", ErrDrop),
			wantNack:   true,
		},
		{
			name:     "битый JSON уходит в DLQ",
			body:     []byte("{not json"),
			wantNack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsumer(nil, quietLogger(), ConsumerConfig{
				Queue: string(QueueRunsPending),
				Types: []MessageType{MessageTypeRunPending},
				Handler: func(ctx context.Context, msg *Message) error {
					return tt.handlerErr
				},
			})

			body := tt.body
			if body == nil {
				body = runPendingBody(t)
			}

			acker := &fakeAcker{}
			c.dispatch(context.Background(), amqp.Delivery{
				Acknowledger: acker,
				Body:         body,
				Redelivered:  tt.redelivered,
			})

			if acker.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", acker.acked, tt.wantAck)
			}
			if acker.nacked != tt.wantNack {
				t.Errorf("nacked = %v, want %v", acker.nacked, tt.wantNack)
			}
			if acker.nacked && acker.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", acker.requeue, tt.wantRequeue)
			}
		})
	}
}

func TestDispatchRejectsForeignType(t *testing.T) {
	handled := false
	c := NewConsumer(nil, quietLogger(), ConsumerConfig{
		Queue: string(QueueRunsPending),
		Types: []MessageType{MessageTypeRunPending},
		Handler: func(ctx context.Context, msg *Message) error {
			handled = true
			return nil
		},
	})

	data, err := json.Marshal(Message{ID: "m-2", Type: MessageTypeRunFinished})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}

	acker := &fakeAcker{}
	c.dispatch(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         data,
	})

	if handled {
		t.Error("handler invoked for foreign message type")
	}
	if !acker.nacked || acker.requeue {
		t.Errorf("foreign type: nacked=%v requeue=%v, want DLQ nack", acker.nacked, acker.requeue)
	}
}
