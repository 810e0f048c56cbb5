package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/ukydev/vehicle-maintenance/internal/errs"
)

const (
	StreamName           = "MAINTENANCE"
	Subject              = "maintenance.events"
	DeadLetterStreamName = "MAINTENANCE_DLQ"
	DeadLetterSubject    = "maintenance.deadletter"
	ConsumerName         = "report-worker"

	// Headers set on dead-lettered messages.
	HeaderDeadLetterReason = "Dead-Letter-Reason"
	HeaderOriginalMsgID    = "Original-Msg-Id"
	HeaderDeliveries       = "Deliveries"
)

// JetStreamConfig configures the NATS JetStream driver.
type JetStreamConfig struct {
	URL               string
	VisibilityTimeout time.Duration
	Retention         time.Duration
}

type inflight struct {
	msg        *nats.Msg
	receivedAt time.Time
}

// JetStream is the Queue driver backed by a NATS JetStream work-queue stream
// and a durable pull consumer. The consumer's AckWait is the visibility timeout
// and the stream's MaxAge is the retention period.
type JetStream struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	sub  *nats.Subscription
	cfg  JetStreamConfig

	mu       sync.Mutex
	inflight map[string]inflight
}

// ConnectJetStream dials NATS, ensures the streams and the consumer exist and
// binds a pull subscription to the consumer.
func ConnectJetStream(cfg JetStreamConfig) (*JetStream, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("vehicle-maintenance"))
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := EnsureStreams(js, cfg); err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	sub, err := js.PullSubscribe(Subject, ConsumerName, nats.Bind(StreamName, ConsumerName))
	if err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, fmt.Errorf("bind consumer %s: %w", ConsumerName, err)
	}
	return &JetStream{
		conn:     conn,
		js:       js,
		sub:      sub,
		cfg:      cfg,
		inflight: make(map[string]inflight),
	}, nil
}

// ConnectJetStreamWithRetry retries ConnectJetStream until it succeeds or the
// timeout elapses. NATS is commonly still starting when the binaries boot.
func ConnectJetStreamWithRetry(cfg JetStreamConfig, timeout time.Duration) (*JetStream, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		q, err := ConnectJetStream(cfg)
		if err == nil {
			return q, nil
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("connect jetstream timeout after %s: %w", timeout, lastErr)
}

// EnsureStreams creates the event stream, the dead-letter stream and the
// durable consumer when they do not exist yet.
func EnsureStreams(js nats.JetStreamContext, cfg JetStreamConfig) error {
	streams := []*nats.StreamConfig{
		{
			Name:      StreamName,
			Subjects:  []string{Subject},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    cfg.Retention,
			Storage:   nats.FileStorage,
			Replicas:  1,
		},
		{
			Name:      DeadLetterStreamName,
			Subjects:  []string{DeadLetterSubject},
			Retention: nats.LimitsPolicy,
			Storage:   nats.FileStorage,
			Replicas:  1,
		},
	}
	for _, sc := range streams {
		if _, err := js.StreamInfo(sc.Name); err != nil {
			if !errors.Is(err, nats.ErrStreamNotFound) {
				return err
			}
			if _, err := js.AddStream(sc); err != nil {
				return fmt.Errorf("add stream %s: %w", sc.Name, err)
			}
		}
	}

	if _, err := js.ConsumerInfo(StreamName, ConsumerName); err != nil {
		if !errors.Is(err, nats.ErrConsumerNotFound) {
			return err
		}
		if _, err := js.AddConsumer(StreamName, &nats.ConsumerConfig{
			Durable:       ConsumerName,
			AckPolicy:     nats.AckExplicitPolicy,
			AckWait:       cfg.VisibilityTimeout,
			MaxDeliver:    -1,
			FilterSubject: Subject,
		}); err != nil {
			return fmt.Errorf("add consumer %s: %w", ConsumerName, err)
		}
	}
	return nil
}

// Publish implements Queue. The returned id is also set as the Nats-Msg-Id
// header so a duplicate publish inside the stream's dedupe window is dropped.
func (q *JetStream) Publish(ctx context.Context, body []byte) (string, error) {
	id := uuid.NewString()
	msg := nats.NewMsg(Subject)
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, id)
	if _, err := q.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrPublish, err)
	}
	return id, nil
}

// Receive implements Queue.
func (q *JetStream) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	msgs, err := q.fetch(ctx, 1, wait)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

func (q *JetStream) fetch(ctx context.Context, batch int, wait time.Duration) ([]Message, error) {
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	raw, err := q.sub.Fetch(batch, nats.Context(fetchCtx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	msgs := make([]Message, 0, len(raw))
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prune(now)
	for _, m := range raw {
		deliveries := 1
		if meta, err := m.Metadata(); err == nil {
			deliveries = int(meta.NumDelivered)
		}
		q.inflight[m.Reply] = inflight{msg: m, receivedAt: now}
		msgs = append(msgs, Message{
			ID:         m.Header.Get(nats.MsgIdHdr),
			Body:       m.Data,
			Deliveries: deliveries,
			Receipt:    m.Reply,
		})
	}
	return msgs, nil
}

// prune forgets deliveries whose ack window has passed; the server has
// already made them visible again. Caller holds mu.
func (q *JetStream) prune(now time.Time) {
	for receipt, f := range q.inflight {
		if now.Sub(f.receivedAt) > q.cfg.VisibilityTimeout {
			delete(q.inflight, receipt)
		}
	}
}

func (q *JetStream) take(receipt string) (*nats.Msg, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	f, ok := q.inflight[receipt]
	if ok {
		delete(q.inflight, receipt)
	}
	return f.msg, ok
}

// Acknowledge implements Queue.
func (q *JetStream) Acknowledge(ctx context.Context, receipt string) error {
	msg, ok := q.take(receipt)
	if !ok {
		return ErrUnknownReceipt
	}
	if err := msg.AckSync(nats.Context(ctx)); err != nil {
		return fmt.Errorf("ack %s: %w", receipt, err)
	}
	return nil
}

// DeadLetter implements Queue by copying the message to the dead-letter
// stream and terminating the original delivery.
func (q *JetStream) DeadLetter(ctx context.Context, msg *Message, reason string) error {
	orig, ok := q.take(msg.Receipt)
	if !ok {
		return ErrUnknownReceipt
	}
	dl := nats.NewMsg(DeadLetterSubject)
	dl.Data = msg.Body
	dl.Header.Set(nats.MsgIdHdr, "dlq-"+msg.ID)
	dl.Header.Set(HeaderOriginalMsgID, msg.ID)
	dl.Header.Set(HeaderDeadLetterReason, reason)
	dl.Header.Set(HeaderDeliveries, fmt.Sprint(msg.Deliveries))
	if _, err := q.js.PublishMsg(dl, nats.Context(ctx)); err != nil {
		_ = orig.Nak()
		return fmt.Errorf("%w: dead letter: %w", errs.ErrPublish, err)
	}
	return orig.Term()
}

// Subscribe implements Subscriber. Each round fetches up to batchSize
// messages from the durable consumer, hands them to handler and acknowledges
// the ones handler did not report as failed. Failed messages are left to
// reappear once the visibility timeout expires.
func (q *JetStream) Subscribe(ctx context.Context, batchSize int, handler BatchHandler) error {
	if batchSize < 1 {
		batchSize = 1
	}
	for {
		batch, err := q.fetch(ctx, batchSize, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(batch) == 0 {
			continue
		}

		failed := failedSet(handler(ctx, batch))
		for _, msg := range batch {
			if _, ok := failed[msg.ID]; ok {
				q.take(msg.Receipt)
				continue
			}
			if err := q.Acknowledge(ctx, msg.Receipt); err != nil && !errors.Is(err, ErrUnknownReceipt) {
				return err
			}
		}
	}
}

// Close drains the connection.
func (q *JetStream) Close() {
	if q == nil || q.conn == nil {
		return
	}
	_ = q.conn.Drain()
	q.conn.Close()
}
