package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// TopicPrefix roots every MQTT event topic.
const TopicPrefix = "scene-engine/games/"

const publishTimeout = 10 * time.Second

// mqttClient is the part of paho.Client the broadcaster uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// MQTTBroadcaster publishes events to an MQTT broker, one topic per game.
type MQTTBroadcaster struct {
	client mqttClient
	logger *slog.Logger
}

var _ Publisher = (*MQTTBroadcaster)(nil)

// ConnectMQTT connects to brokerURL and returns a broadcaster on it.
func ConnectMQTT(brokerURL, clientID string, logger *slog.Logger) (*MQTTBroadcaster, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout: %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	logger.Info("Connected to MQTT broker", "url", brokerURL)
	return NewMQTTBroadcaster(client, logger), nil
}

// NewMQTTBroadcaster wraps a connected client.
func NewMQTTBroadcaster(client mqttClient, logger *slog.Logger) *MQTTBroadcaster {
	return &MQTTBroadcaster{client: client, logger: logger}
}

// Topic is the MQTT topic carrying a game's events.
func Topic(gameID uuid.UUID) string {
	return TopicPrefix + gameID.String() + "/events"
}

func (b *MQTTBroadcaster) Publish(ctx context.Context, gameID uuid.UUID, event Event) error {
	topic := Topic(gameID)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := b.client.Publish(topic, 1, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s cancelled: %w", topic, ctx.Err())
	case <-time.After(publishTimeout):
		return fmt.Errorf("mqtt publish timeout: %s", topic)
	}
	if err := token.Error(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "topic", topic)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "topic", topic, "event_type", event.Type)
	return nil
}

// Close disconnects from the broker.
func (b *MQTTBroadcaster) Close() error {
	b.client.Disconnect(1000)
	return nil
}
