package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rankmaster/internal/clock"
	"github.com/lox/rankmaster/internal/display"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := New("", log.New(nil))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = s.Stop() })
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	s := New("", log.New(nil))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Stop()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBroadcastReachesAllScreens(t *testing.T) {
	t.Parallel()

	s, url := startTestServer(t)
	a := dial(t, url)
	b := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	s.BroadcastDisplay(display.Packet{PlayersRemaining: 4, TotalPlayers: 9})

	for _, ws := range []*websocket.Conn{a, b} {
		msg := readMessage(t, ws)
		assert.Equal(t, MessageTypeDisplay, msg.Type)
		var packet display.Packet
		require.NoError(t, json.Unmarshal(msg.Data, &packet))
		assert.Equal(t, 4, packet.PlayersRemaining)
	}
}

func TestLateJoinerGetsCurrentState(t *testing.T) {
	t.Parallel()

	s, url := startTestServer(t)
	s.BroadcastDisplay(display.Packet{PlayersRemaining: 3})
	s.BroadcastClock(clock.Snapshot{LevelIndex: 2, SecondsRemaining: 90, IsRunning: true})

	ws := dial(t, url)

	got := map[string]Message{}
	for i := 0; i < 2; i++ {
		msg := readMessage(t, ws)
		got[msg.Type] = msg
	}

	require.Contains(t, got, MessageTypeDisplay)
	require.Contains(t, got, MessageTypeClock)

	var snap clock.Snapshot
	require.NoError(t, json.Unmarshal(got[MessageTypeClock].Data, &snap))
	assert.Equal(t, 2, snap.LevelIndex)
	assert.Equal(t, 90, snap.SecondsRemaining)
	assert.True(t, snap.IsRunning)
}

func TestPublishDisplayAdapter(t *testing.T) {
	t.Parallel()

	s, url := startTestServer(t)
	ws := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, s.PublishDisplay(t.Context(), display.Packet{TotalPrize: 324}))

	msg := readMessage(t, ws)
	var packet display.Packet
	require.NoError(t, json.Unmarshal(msg.Data, &packet))
	assert.InDelta(t, 324.0, packet.TotalPrize, 1e-9)
}
