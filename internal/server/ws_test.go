package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signify/internal/recognizer"
)

func dialHub(t *testing.T, hub *StatusHub) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(hub)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) StatusMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg StatusMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestStatusHub_Broadcast(t *testing.T) {
	hub := NewStatusHub()
	conn := dialHub(t, hub)

	require.NoError(t, hub.Publish("s1", recognizer.Status{
		State:    recognizer.Gathering,
		Text:     "gathering (3/30)",
		Frames:   3,
		Capacity: 30,
	}))

	msg := readStatus(t, conn)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, recognizer.Gathering, msg.Status.State)
	assert.Equal(t, "gathering (3/30)", msg.Status.Text)
	assert.Equal(t, 3, msg.Status.Frames)
	assert.NotZero(t, msg.Timestamp)
}

func TestStatusHub_ReplaysLast(t *testing.T) {
	hub := NewStatusHub()
	require.NoError(t, hub.Publish("s1", recognizer.Status{
		State:     recognizer.Suppressed,
		Text:      recognizer.TextLowSignal,
		LowSignal: true,
	}))

	conn := dialHub(t, hub)

	msg := readStatus(t, conn)
	assert.Equal(t, recognizer.TextLowSignal, msg.Status.Text)
	assert.True(t, msg.Status.LowSignal)
}

func TestStatusHub_Disconnect(t *testing.T) {
	hub := NewStatusHub()
	conn := dialHub(t, hub)

	conn.Close()

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, hub.Publish("s1", recognizer.Status{Text: "uncertain"}))
}
