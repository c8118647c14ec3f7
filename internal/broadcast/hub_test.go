package broadcast

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/matchwatch/internal/notifications"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil, nil, quietLogger())
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestBroadcastMatches(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	raw := []json.RawMessage{json.RawMessage(`{"Team1":"A","Team2":"B","Extra":1}`)}
	hub.BroadcastMatches(raw)

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeMatchesUpdated, msg.Type)
		require.Len(t, msg.Matches, 1)
		assert.JSONEq(t, `{"Team1":"A","Team2":"B","Extra":1}`, string(msg.Matches[0]))
	}
}

func TestBroadcastEmptyListKeepsMatchesKey(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastMatches(nil)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"MATCHES_UPDATED","matches":[]}`, string(frame))
}

func TestSendNotification(t *testing.T) {
	hub, url := startHub(t)

	err := hub.Send(context.Background(), notifications.Notification{Title: "x"})
	assert.ErrorIs(t, err, ErrNoViews)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Send(context.Background(), notifications.Notification{Title: "🔴 LIVE NOW!", Tag: "k"}))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeShowNotification, msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "🔴 LIVE NOW!", msg.Notification.Title)
	assert.Equal(t, "k", msg.Notification.Tag)
}

func TestControlMessages(t *testing.T) {
	hub, url := startHub(t)

	var mu sync.Mutex
	var got []string
	hub.OnControl(func(_ context.Context, msgType string) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msgType)
		return nil
	})

	conn := dial(t, url)
	for _, typ := range []string{TypeStartScheduler, "UNKNOWN", TypeSync, TypeStopScheduler} {
		require.NoError(t, conn.WriteJSON(Message{Type: typ}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{TypeStartScheduler, TypeSync, TypeStopScheduler}, got)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
	assert.True(t, originChecker(nil)(req))
}
