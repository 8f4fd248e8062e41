// Package publish forwards recognition status to MQTT subscribers.
package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/signify/internal/logging"
	"github.com/ayusman/signify/internal/recognizer"
)

// SessionPlaceholder is replaced by the session id in topic patterns.
const SessionPlaceholder = "{session_id}"

// Config holds MQTT connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the status topic pattern, e.g. "signify/{session_id}/status".
	Topic string
	QoS   byte
}

// Message is the JSON payload published for each status change.
type Message struct {
	SessionID  string           `json:"session_id"`
	State      recognizer.State `json:"state"`
	Text       string           `json:"text"`
	Label      string           `json:"label,omitempty"`
	Confidence float32          `json:"confidence,omitempty"`
	LowSignal  bool             `json:"low_signal"`
	Timestamp  int64            `json:"timestamp"`
}

// NewMessage builds the payload for st.
func NewMessage(sessionID string, st recognizer.Status, at time.Time) Message {
	m := Message{
		SessionID: sessionID,
		State:     st.State,
		Text:      st.Text,
		LowSignal: st.LowSignal,
		Timestamp: at.UnixMilli(),
	}
	if p := st.Prediction; p != nil && p.Certain {
		m.Label = p.Label
		m.Confidence = p.Confidence
	}
	return m
}

// Publisher publishes status changes. Repeats of the same text are
// suppressed so a steady prediction is sent once.
type Publisher struct {
	client   mqtt.Client
	topic    string
	qos      byte
	mu       sync.Mutex
	lastText string
	now      func() time.Time
}

// Connect dials the broker and returns a Publisher using it.
func Connect(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logging.Info(logging.Fields{"broker": cfg.Broker}, "mqtt connection established")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn(logging.Fields{"broker": cfg.Broker, "error": err.Error()}, "mqtt connection lost")
	})
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return New(client, cfg), nil
}

// New wraps an already connected client.
func New(client mqtt.Client, cfg Config) *Publisher {
	return &Publisher{
		client: client,
		topic:  cfg.Topic,
		qos:    cfg.QoS,
		now:    time.Now,
	}
}

// Publish sends st for sessionID unless its text equals the last one sent.
func (p *Publisher) Publish(sessionID string, st recognizer.Status) error {
	p.mu.Lock()
	if st.Text == p.lastText {
		p.mu.Unlock()
		return nil
	}
	p.lastText = st.Text
	p.mu.Unlock()

	payload, err := json.Marshal(NewMessage(sessionID, st, p.now()))
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	topic := FormatTopic(p.topic, sessionID)
	token := p.client.Publish(topic, p.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish status to %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	logging.Info(nil, "mqtt client disconnected")
	return nil
}

// FormatTopic replaces the session placeholder in pattern.
func FormatTopic(pattern, sessionID string) string {
	return strings.ReplaceAll(pattern, SessionPlaceholder, sessionID)
}
