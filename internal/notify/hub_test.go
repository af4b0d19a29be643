package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-score/internal/domain"
	"wallet-score/internal/watchlist"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers() == n }, time.Second, 5*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastsChanges(t *testing.T) {
	hub := NewHub(nil, nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	a := dial(t, server)
	b := dial(t, server)
	waitForSubscribers(t, hub, 2)

	event := domain.ChangeEvent{ID: "evt-1", Account: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", OldScore: 50, NewScore: 62, Delta: 12}
	hub.NotifyChange(event)

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeChange, msg.Type)
		require.NotNil(t, msg.Change)
		assert.Equal(t, "evt-1", msg.Change.ID)
		assert.Equal(t, 12, msg.Change.Delta)
	}
}

func TestHub_PublishAlert(t *testing.T) {
	hub := NewHub(nil, nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	assert.Zero(t, hub.PublishAlert(nil))

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	alert := watchlist.BuildAlert([]domain.ChangeEvent{{Account: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", OldScore: 40, NewScore: 30, Delta: -10}})
	assert.Equal(t, 1, hub.PublishAlert(alert))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeAlert, msg.Type)
	require.NotNil(t, msg.Alert)
	assert.Equal(t, alert.Title, msg.Alert.Title)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil, nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	conn.Close()
	waitForSubscribers(t, hub, 0)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil, nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	require.NoError(t, hub.Close())
	assert.Zero(t, hub.Subscribers())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)

	require.NoError(t, hub.Close(), "second close is a no-op")
}
