package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signify/internal/recognizer"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes. Unused mqtt.Client methods panic through
// the nil embedded interface.
type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	messages     []published
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

func TestFormatTopic(t *testing.T) {
	assert.Equal(t, "signify/abc/status", FormatTopic("signify/{session_id}/status", "abc"))
	assert.Equal(t, "fixed", FormatTopic("fixed", "abc"))
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := New(client, Config{Topic: "signify/{session_id}/status", QoS: 1})
	p.now = func() time.Time { return time.UnixMilli(1234) }

	st := recognizer.Status{
		State: recognizer.Ready,
		Text:  "Hello (0.90)",
		Prediction: &recognizer.Prediction{
			Index: 0, Label: "Hello", Confidence: 0.9, Certain: true,
		},
	}
	require.NoError(t, p.Publish("s1", st))

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "signify/s1/status", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var got Message
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "Hello", got.Label)
	assert.Equal(t, float32(0.9), got.Confidence)
	assert.Equal(t, int64(1234), got.Timestamp)
	assert.Contains(t, string(msg.payload), `"state":"ready"`)
}

func TestPublisher_SuppressesRepeats(t *testing.T) {
	client := &fakeClient{}
	p := New(client, Config{Topic: "t"})

	low := recognizer.Status{State: recognizer.Suppressed, Text: recognizer.TextLowSignal, LowSignal: true}
	require.NoError(t, p.Publish("s", low))
	require.NoError(t, p.Publish("s", low))
	require.NoError(t, p.Publish("s", recognizer.Status{State: recognizer.Gathering, Text: "gathering (1/30)"}))
	require.NoError(t, p.Publish("s", low))

	assert.Len(t, client.messages, 3)
}

func TestPublisher_Error(t *testing.T) {
	client := &fakeClient{err: errors.New("broker gone")}
	p := New(client, Config{Topic: "t"})

	err := p.Publish("s", recognizer.Status{Text: "uncertain"})
	assert.ErrorContains(t, err, "broker gone")
}

func TestPublisher_Close(t *testing.T) {
	client := &fakeClient{}
	p := New(client, Config{Topic: "t"})

	require.NoError(t, p.Close())
	assert.True(t, client.disconnected)
}

func TestNewMessage_Uncertain(t *testing.T) {
	st := recognizer.Status{
		State:      recognizer.Ready,
		Text:       recognizer.TextUncertain,
		Prediction: &recognizer.Prediction{Index: 1, Confidence: 0.5},
	}

	m := NewMessage("s", st, time.UnixMilli(0))

	assert.Empty(t, m.Label)
	assert.Zero(t, m.Confidence)
}
