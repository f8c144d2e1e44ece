package ws

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/guesswho-services/internal/comm"
	"github.com/avvvet/guesswho-services/internal/gamesvc/registry"
)

type publishedEvent struct {
	Event    string
	SocketId string
	RoomCode string
}

// recordingPublisher captures relay traffic so tests can assert on
// outbound events without a broker.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) ToRoom(event string, roomCode string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Event: event, RoomCode: roomCode})
}

func (p *recordingPublisher) ToSocket(event string, socketId string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Event: event, SocketId: socketId})
}

func (p *recordingPublisher) snapshot() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func dialTestSocket(t *testing.T) (*recordingPublisher, *websocket.Conn) {
	t.Helper()

	pub := &recordingPublisher{}
	wsvc := NewWs(registry.NewRegistry(), nil, pub, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(wsvc).HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return pub, conn
}

// A malformed frame is reported through the relay, never written to
// the connection from the read loop: the broker goroutine is the only
// writer once a socket is registered.
func TestMalformedFrameErrorGoesThroughRelay(t *testing.T) {
	pub, conn := dialTestSocket(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	require.Eventually(t, func() bool {
		for _, e := range pub.snapshot() {
			if e.Event == comm.EventError && e.SocketId != "" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond, "error event published for the socket")

	// nothing arrives directly on the wire; there is no broker here
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, os.IsTimeout(err), "expected read timeout, got: %v", err)
}
