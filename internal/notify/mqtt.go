// Package notify announces stored reports to interested clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// ReportReadyMessage is the payload published for every stored report.
type ReportReadyMessage struct {
	OwnerID     string    `json:"owner_id"`
	Key         string    `json:"key"`
	GeneratedAt time.Time `json:"generated_at"`
}

// MQTT publishes report-ready messages to {prefix}/{owner_id} with QoS 1.
type MQTT struct {
	client      mqtt.Client
	topicPrefix string
	now         func() time.Time
}

// ConnectMQTT connects to broker and returns a notifier publishing under topicPrefix.
func ConnectMQTT(broker, clientID, topicPrefix string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return NewMQTT(client, topicPrefix), nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client mqtt.Client, topicPrefix string) *MQTT {
	return &MQTT{
		client:      client,
		topicPrefix: topicPrefix,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Topic returns the topic an owner's notifications are published on.
func (m *MQTT) Topic(ownerID string) string {
	return m.topicPrefix + "/" + ownerID
}

// ReportReady publishes one notification and waits for the broker's PUBACK.
func (m *MQTT) ReportReady(ctx context.Context, ownerID, key string) error {
	payload, err := json.Marshal(ReportReadyMessage{
		OwnerID:     ownerID,
		Key:         key,
		GeneratedAt: m.now(),
	})
	if err != nil {
		return err
	}

	token := m.client.Publish(m.Topic(ownerID), 1, false, payload)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("mqtt publish to %s: timeout", m.Topic(ownerID))
	}
}

// Close disconnects, allowing in-flight work a short grace period.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

// Noop discards notifications. It is used when no broker is configured.
type Noop struct{}

// ReportReady implements the worker's Notifier.
func (Noop) ReportReady(context.Context, string, string) error { return nil }
