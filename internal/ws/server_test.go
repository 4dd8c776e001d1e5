package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pookieplum/chat-app/internal/protocol"
)

type fakeSessions struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (f *fakeSessions) Create(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, id)
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// pipeConn returns a server-side Connection and the client end of the pipe.
func pipeConn(t *testing.T, id string) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return NewConnection(id, server), client
}

func readServerText(t *testing.T, client net.Conn) map[string]any {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	data, op, err := wsutil.ReadServerData(client)
	require.NoError(t, err)
	require.Equal(t, ws.OpText, op)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestConnectionManager(t *testing.T) {
	cm := NewConnectionManager()
	a, _ := pipeConn(t, "a")
	b, _ := pipeConn(t, "b")

	cm.Add(a)
	cm.Add(b)
	assert.Equal(t, 2, cm.Count())
	assert.Same(t, a, cm.Get("a"))
	assert.Len(t, cm.All(), 2)

	assert.True(t, cm.Remove("a"))
	assert.False(t, cm.Remove("a"), "second removal is a no-op")
	assert.Nil(t, cm.Get("a"))
	assert.Equal(t, 1, cm.Count())
}

func TestConnection_Touch(t *testing.T) {
	c, _ := pipeConn(t, "a")
	before := c.LastActive()
	time.Sleep(2 * time.Millisecond)
	c.Touch()
	assert.True(t, c.LastActive().After(before))
	assert.Equal(t, -1, c.Fd)
}

func TestHandleConn_DeliversTextFrame(t *testing.T) {
	got := make(chan []byte, 1)
	s := NewServer(ServerConfig{WorkerPoolSize: 1}, nil, func(_ *Connection, data []byte) {
		got <- data
	}, quietLogger())

	c, client := pipeConn(t, "a")
	s.conns.Add(c)

	go wsutil.WriteClientMessage(client, ws.OpText, []byte(`{"type":"ping"}`))
	s.handleConn(c)

	select {
	case data := <-got:
		assert.JSONEq(t, `{"type":"ping"}`, string(data))
	case <-time.After(time.Second):
		t.Fatal("frame not delivered")
	}
	assert.Equal(t, 1, s.conns.Count())
}

func TestHandleConn_CloseFrameRemoves(t *testing.T) {
	sessions := &fakeSessions{}
	var disconnected string
	s := NewServer(ServerConfig{WorkerPoolSize: 1}, sessions, nil, quietLogger())
	s.SetOnDisconnect(func(id string) { disconnected = id })

	c, client := pipeConn(t, "a")
	s.conns.Add(c)

	go ws.WriteFrame(client, ws.MaskFrame(ws.NewCloseFrame(nil)))
	s.handleConn(c)

	assert.Equal(t, 0, s.conns.Count())
	assert.Equal(t, "a", disconnected)
	assert.Equal(t, []string{"a"}, sessions.deleted)
}

func TestDispatcher_PingAndRouting(t *testing.T) {
	d := NewMessageDispatcher(quietLogger())
	var joined protocol.JoinMsg
	d.Register(protocol.TypeJoin, func(_ *Connection, msg interface{}) {
		joined = msg.(protocol.JoinMsg)
	})

	c, client := pipeConn(t, "a")

	go d.Dispatch(c, []byte(`{"type":"ping"}`))
	assert.Equal(t, protocol.TypePong, readServerText(t, client)["type"])

	d.Dispatch(c, []byte(`{"type":"join","user_id":"alice","couple_id":"c1"}`))
	assert.Equal(t, "alice", joined.UserID)
	assert.Equal(t, "c1", joined.CoupleID)

	go d.Dispatch(c, []byte(`not json`))
	reply := readServerText(t, client)
	assert.Equal(t, protocol.TypeError, reply["type"])
	assert.Equal(t, protocol.CodeInvalidMessage, reply["code"])

	go d.Dispatch(c, []byte(`{"type":"typing","is_typing":true}`))
	assert.Equal(t, protocol.TypeError, readServerText(t, client)["type"], "unregistered types are rejected")
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	s := NewServer(DefaultServerConfig(), nil, nil, quietLogger())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp3.StatusCode, "no upgrades before Start")
}
