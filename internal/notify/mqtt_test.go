package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes. Methods other than Publish and Disconnect
// are not used by the notifier.
type fakeClient struct {
	mqtt.Client
	token        *fakeToken
	published    []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTT_ReportReady(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, true)}
	n := NewMQTT(client, "vehicle-maintenance/reports")
	n.now = func() time.Time { return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC) }

	err := n.ReportReady(context.Background(), "u1", "reports/u1_maintenance_report_20240115103000")
	require.NoError(t, err)

	require.Len(t, client.published, 1)
	p := client.published[0]
	assert.Equal(t, "vehicle-maintenance/reports/u1", p.topic)
	assert.Equal(t, byte(1), p.qos)

	var msg ReportReadyMessage
	require.NoError(t, json.Unmarshal(p.payload, &msg))
	assert.Equal(t, "u1", msg.OwnerID)
	assert.Equal(t, "reports/u1_maintenance_report_20240115103000", msg.Key)
	assert.True(t, msg.GeneratedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))

	n.Close()
	assert.True(t, client.disconnected)
}

func TestMQTT_ReportReadyError(t *testing.T) {
	client := &fakeClient{token: newFakeToken(errors.New("not connected"), true)}
	n := NewMQTT(client, "prefix")

	err := n.ReportReady(context.Background(), "u1", "k")
	assert.EqualError(t, err, "not connected")
}

func TestMQTT_ReportReadyCancelled(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, false)}
	n := NewMQTT(client, "prefix")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.ReportReady(ctx, "u1", "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.ReportReady(context.Background(), "u1", "k"))
}
