package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ukydev/vehicle-maintenance/internal/errs"
)

// pollInterval bounds how long a waiting Receive sleeps before rechecking
// for deliveries whose visibility timeout has expired.
const pollInterval = 50 * time.Millisecond

type memoryEntry struct {
	id             string
	body           []byte
	enqueuedAt     time.Time
	deliveries     int
	receipt        string
	invisibleUntil time.Time
}

// DeadLetterEntry is a message moved aside by DeadLetter.
type DeadLetterEntry struct {
	Message Message
	Reason  string
}

// Memory is an in-process queue with visibility timeout and retention. It is
// used when the API and the worker share a process, and in tests.
type Memory struct {
	// Now is the clock used for visibility and retention.
	Now func() time.Time

	visibility time.Duration
	retention  time.Duration

	mu          sync.Mutex
	entries     []*memoryEntry
	deadLetters []DeadLetterEntry
	notify      chan struct{}
	closed      bool
}

// NewMemory returns an empty queue.
func NewMemory(visibility, retention time.Duration) *Memory {
	return &Memory{
		Now:        time.Now,
		visibility: visibility,
		retention:  retention,
		notify:     make(chan struct{}),
	}
}

// Publish implements Queue.
func (m *Memory) Publish(_ context.Context, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", fmt.Errorf("%w: %w", errs.ErrPublish, ErrClosed)
	}
	id := uuid.NewString()
	m.entries = append(m.entries, &memoryEntry{
		id:         id,
		body:       append([]byte(nil), body...),
		enqueuedAt: m.Now(),
	})
	close(m.notify)
	m.notify = make(chan struct{})
	return id, nil
}

// Receive implements Queue.
func (m *Memory) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}
	for {
		msg, notify, err := m.next()
		if msg != nil || err != nil {
			return msg, err
		}
		if wait <= 0 {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, nil
		case <-notify:
		case <-time.After(pollInterval):
		}
	}
}

func (m *Memory) next() (*Message, <-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, nil, ErrClosed
	}
	now := m.Now()
	m.expire(now)
	for _, e := range m.entries {
		if now.Before(e.invisibleUntil) {
			continue
		}
		e.deliveries++
		e.receipt = uuid.NewString()
		e.invisibleUntil = now.Add(m.visibility)
		return &Message{
			ID:         e.id,
			Body:       append([]byte(nil), e.body...),
			Deliveries: e.deliveries,
			Receipt:    e.receipt,
		}, nil, nil
	}
	return nil, m.notify, nil
}

// expire drops entries older than the retention period. Caller holds mu.
func (m *Memory) expire(now time.Time) {
	if m.retention <= 0 {
		return
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if now.Sub(e.enqueuedAt) < m.retention {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = nil
	}
	m.entries = kept
}

// Acknowledge implements Queue. Only the most recent receipt of a message is
// valid.
func (m *Memory) Acknowledge(_ context.Context, receipt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.remove(receipt); !ok {
		return ErrUnknownReceipt
	}
	return nil
}

// DeadLetter implements Queue.
func (m *Memory) DeadLetter(_ context.Context, msg *Message, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.remove(msg.Receipt); !ok {
		return ErrUnknownReceipt
	}
	m.deadLetters = append(m.deadLetters, DeadLetterEntry{Message: *msg, Reason: reason})
	return nil
}

func (m *Memory) remove(receipt string) (*memoryEntry, bool) {
	if receipt == "" {
		return nil, false
	}
	for i, e := range m.entries {
		if e.receipt == receipt {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return e, true
		}
	}
	return nil, false
}

// Subscribe implements Subscriber by polling Receive.
func (m *Memory) Subscribe(ctx context.Context, batchSize int, handler BatchHandler) error {
	return consume(ctx, m, batchSize, time.Second, handler)
}

// Len returns the number of messages not yet acknowledged, visible or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// DeadLetters returns a copy of the dead-lettered messages.
func (m *Memory) DeadLetters() []DeadLetterEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeadLetterEntry(nil), m.deadLetters...)
}

// Close implements Queue. Waiting receivers return ErrClosed.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.notify)
}
