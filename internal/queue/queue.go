// Package queue is the at-least-once event queue between the maintenance
// service and the report worker.
//
// A received message stays invisible to other receivers for the visibility
// timeout. If it is not acknowledged within that window it is delivered again,
// so consumers must tolerate duplicates.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownReceipt is returned when acknowledging with a receipt that was
	// never issued, was already used, or belongs to an expired delivery.
	ErrUnknownReceipt = errors.New("queue: unknown or expired receipt")

	// ErrClosed is returned by operations on a closed queue.
	ErrClosed = errors.New("queue: closed")
)

// Message is one delivery of a published event.
type Message struct {
	ID         string
	Body       []byte
	Deliveries int
	Receipt    string
}

// Queue is implemented by every queue driver.
type Queue interface {
	// Publish enqueues body and returns the message id.
	Publish(ctx context.Context, body []byte) (string, error)
	// Receive waits up to wait for one visible message. It returns nil, nil
	// when nothing arrived in time.
	Receive(ctx context.Context, wait time.Duration) (*Message, error)
	// Acknowledge permanently removes the delivery identified by receipt.
	Acknowledge(ctx context.Context, receipt string) error
	// DeadLetter moves msg to the dead-letter destination with a reason.
	DeadLetter(ctx context.Context, msg *Message, reason string) error
	Close()
}

// BatchHandler processes a batch of deliveries and returns the ids of the
// messages that failed. Messages not listed are acknowledged by the caller.
type BatchHandler func(ctx context.Context, msgs []Message) []string

// Subscriber is implemented by drivers that can push batches to a handler.
type Subscriber interface {
	// Subscribe delivers batches of at most batchSize messages to handler
	// until ctx is cancelled.
	Subscribe(ctx context.Context, batchSize int, handler BatchHandler) error
}

func failedSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// consume drives handler from any Queue by receiving up to batchSize messages
// per round. It blocks until ctx is cancelled.
func consume(ctx context.Context, q Queue, batchSize int, wait time.Duration, handler BatchHandler) error {
	if batchSize < 1 {
		batchSize = 1
	}
	for {
		first, err := q.Receive(ctx, wait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if first == nil {
			continue
		}
		batch := []Message{*first}
		for len(batch) < batchSize {
			next, err := q.Receive(ctx, 0)
			if err != nil || next == nil {
				break
			}
			batch = append(batch, *next)
		}

		failed := failedSet(handler(ctx, batch))
		for _, msg := range batch {
			if _, ok := failed[msg.ID]; ok {
				continue
			}
			if err := q.Acknowledge(ctx, msg.Receipt); err != nil && !errors.Is(err, ErrUnknownReceipt) {
				return err
			}
		}
	}
}
