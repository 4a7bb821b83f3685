package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/wordgame/config"
	"github.com/wfunc/wordgame/monitor"
	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/room"
	"github.com/wfunc/wordgame/session"
	"github.com/wfunc/wordgame/state"
	"github.com/wfunc/wordgame/words"
)

type recorded struct {
	ID   uint16
	Data []byte
}

// MockConnection records every frame and replays scripted inbound packets.
type MockConnection struct {
	mu      sync.Mutex
	msgs    []recorded
	inbound []*network.Packet
	closed  bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, recorded{ID: msgID, Data: data})
	return nil
}
func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockConnection) ReadPacket() (*network.Packet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbound) == 0 {
		return nil, io.EOF
	}
	p := m.inbound[0]
	m.inbound = m.inbound[1:]
	return p, nil
}

func (m *MockConnection) Messages(msgID uint16) []recorded {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recorded
	for _, msg := range m.msgs {
		if msg.ID == msgID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *MockConnection) lastError(t *testing.T) string {
	t.Helper()
	errs := m.Messages(network.MsgTypeError)
	require.NotEmpty(t, errs, "expected an error reply")
	return decode[network.ErrorBody](t, errs[len(errs)-1].Data).Code
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

type stubPicker struct{}

func (stubPicker) Next(ctx context.Context) (words.Round, error) {
	return words.Round{Fragment: "ING", Candidates: map[string]struct{}{"RING": {}, "KING": {}}}, nil
}

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	settings := room.DefaultSettings()
	settings.SelectDelay = 0
	settings.RevealDelay = 0
	settings.AnswerWindow = time.Minute

	s, err := NewGameServer(config.ServerConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		OutboxSize:     16,
	}, room.NewManager(settings, stubPicker{}, room.NopObserver{}), nil, monitor.NewMonitor("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

type client struct {
	*session.Session
	conn *MockConnection
}

func (s *GameServer) newClient() client {
	conn := &MockConnection{}
	return client{Session: s.sessionManager.Create(conn), conn: conn}
}

func (s *GameServer) send(c client, msgID uint16, body interface{}) {
	var data []byte
	if body != nil {
		data = network.Marshal(body)
	}
	s.dispatch(c.Session, &network.Packet{MsgID: msgID, Data: data})
}

func (s *GameServer) namedClient(t *testing.T, name string) client {
	t.Helper()
	c := s.newClient()
	s.send(c, network.MsgTypeSetName, network.NameBody{Name: name})
	require.Len(t, c.conn.Messages(network.MsgTypeNameSet), 1)
	return c
}

func TestDispatch_Ping(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient()

	s.send(c, network.MsgTypePing, nil)
	assert.Len(t, c.conn.Messages(network.MsgTypePong), 1)
}

func TestDispatch_SetName(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient()

	s.send(c, network.MsgTypeSetName, network.NameBody{Name: "bob"})
	assert.Equal(t, CodePlayerNameLength, c.conn.lastError(t))
	assert.False(t, c.HasName())

	s.send(c, network.MsgTypeSetName, network.NameBody{Name: "  alice  "})
	names := c.conn.Messages(network.MsgTypeNameSet)
	require.Len(t, names, 1)
	assert.Equal(t, "alice", decode[network.NameBody](t, names[0].Data).Name)
	assert.Equal(t, "alice", c.Name())

	s.send(c, network.MsgTypeSetName, nil)
	assert.Equal(t, CodeMalformedMessage, c.conn.lastError(t))
}

func TestDispatch_CreateJoinLeave(t *testing.T) {
	s := newTestServer(t)
	alice := s.namedClient(t, "alice")
	bobby := s.namedClient(t, "bobby")

	anon := s.newClient()
	s.send(anon, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})
	assert.Equal(t, CodeNoNameSet, anon.conn.lastError(t))

	s.send(alice, network.MsgTypeCreateRoom, network.CodeBody{Code: "short"})
	assert.Equal(t, CodeRoomCodeLength, alice.conn.lastError(t))

	s.send(alice, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})
	require.Len(t, alice.conn.Messages(network.MsgTypeRoomEntered), 1)
	assert.Equal(t, 1, s.roomManager.Count())

	s.send(bobby, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})
	assert.Equal(t, CodeRoomAlreadyExists, bobby.conn.lastError(t))

	s.send(bobby, network.MsgTypeJoinRoom, network.CodeBody{Code: "otherroom"})
	assert.Equal(t, CodeRoomNotFound, bobby.conn.lastError(t))

	s.send(bobby, network.MsgTypeJoinRoom, network.CodeBody{Code: "gameroom"})
	require.Len(t, bobby.conn.Messages(network.MsgTypeRoomEntered), 1)
	assert.Len(t, alice.conn.Messages(network.MsgTypePlayerJoined), 1)

	s.send(bobby, network.MsgTypeJoinRoom, network.CodeBody{Code: "gameroom"})
	assert.Equal(t, CodeAlreadyInRoom, bobby.conn.lastError(t))

	s.send(bobby, network.MsgTypeSetName, network.NameBody{Name: "robert"})
	assert.Equal(t, CodeAlreadyInRoom, bobby.conn.lastError(t))

	s.send(bobby, network.MsgTypeLeaveRoom, nil)
	left := bobby.conn.Messages(network.MsgTypeLeftRoom)
	require.Len(t, left, 1)
	assert.Equal(t, "gameroom", decode[network.RoomEnteredBody](t, left[0].Data).Code)
	assert.Len(t, alice.conn.Messages(network.MsgTypePlayerLeft), 1)

	s.send(bobby, network.MsgTypeLeaveRoom, nil)
	assert.Equal(t, CodeNotInRoom, bobby.conn.lastError(t))

	s.send(alice, network.MsgTypeLeaveRoom, nil)
	assert.Equal(t, 0, s.roomManager.Count())
}

func TestDispatch_ListRooms(t *testing.T) {
	s := newTestServer(t)
	alice := s.namedClient(t, "alice")
	s.send(alice, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})

	s.send(alice, network.MsgTypeListRooms, nil)
	lists := alice.conn.Messages(network.MsgTypeRoomList)
	require.Len(t, lists, 1)
	body := decode[network.RoomListBody](t, lists[0].Data)
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, "gameroom", body.Rooms[0].Code)
	assert.Equal(t, []string{"alice"}, body.Rooms[0].Players)
}

func TestDispatch_Chat(t *testing.T) {
	s := newTestServer(t)
	alice := s.namedClient(t, "alice")
	bobby := s.namedClient(t, "bobby")

	s.send(alice, network.MsgTypeRoomChat, network.TextBody{Text: "hello"})
	assert.Equal(t, CodeNotInRoom, alice.conn.lastError(t))

	s.send(alice, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})
	s.send(bobby, network.MsgTypeJoinRoom, network.CodeBody{Code: "gameroom"})

	s.send(alice, network.MsgTypeRoomChat, network.TextBody{Text: "   "})
	s.send(alice, network.MsgTypeRoomChat, network.TextBody{Text: " hi bobby "})

	chats := bobby.conn.Messages(network.MsgTypeChat)
	require.Len(t, chats, 1)
	assert.Equal(t, network.ChatBody{From: "alice", Text: "hi bobby"}, decode[network.ChatBody](t, chats[0].Data))
	assert.Empty(t, alice.conn.Messages(network.MsgTypeChat))
}

func TestDispatch_StartMatch(t *testing.T) {
	s := newTestServer(t)
	alice := s.namedClient(t, "alice")
	bobby := s.namedClient(t, "bobby")

	s.send(alice, network.MsgTypeStartMatch, nil)
	assert.Equal(t, CodeNotInRoom, alice.conn.lastError(t))

	s.send(alice, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})
	s.send(alice, network.MsgTypeStartMatch, nil)
	assert.Equal(t, CodeNotEnoughPlayers, alice.conn.lastError(t))

	s.send(bobby, network.MsgTypeJoinRoom, network.CodeBody{Code: "gameroom"})
	s.send(bobby, network.MsgTypeStartMatch, nil)

	r, ok := s.roomManager.FindByCode("gameroom")
	require.True(t, ok)
	done := r.Done()
	require.NotNil(t, done)

	require.Eventually(t, func() bool {
		return len(alice.conn.Messages(network.MsgTypeFragment)) == 1
	}, time.Second, 5*time.Millisecond)

	s.send(alice, network.MsgTypeStartMatch, nil)
	assert.Equal(t, CodeMatchInProgress, alice.conn.lastError(t))

	s.send(alice, network.MsgTypeQueryState, nil)
	states := alice.conn.Messages(network.MsgTypeGameState)
	last := decode[network.GameStateBody](t, states[len(states)-1].Data)
	assert.Equal(t, int(state.PlayerChosen), last.State)

	// shutdown cancels running matches
	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("match did not stop on shutdown")
	}
	assert.Equal(t, state.Idle, r.State().ID)
}

func TestDispatch_EntriesRequireRoom(t *testing.T) {
	s := newTestServer(t)
	alice := s.namedClient(t, "alice")

	s.send(alice, network.MsgTypeAnswer, network.TextBody{Text: "ring"})
	assert.Equal(t, CodeNotInRoom, alice.conn.lastError(t))

	s.send(alice, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})
	errsBefore := len(alice.conn.Messages(network.MsgTypeError))

	// discarded while idle, no error
	s.send(alice, network.MsgTypeTyping, network.TextBody{Text: "ri"})
	assert.Len(t, alice.conn.Messages(network.MsgTypeError), errsBefore)

	s.send(alice, network.MsgTypeTyping, nil)
	assert.Equal(t, CodeMalformedMessage, alice.conn.lastError(t))
}

func TestDispatch_ErrorTableAndUnknown(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient()

	s.send(c, network.MsgTypeErrorTable, nil)
	tables := c.conn.Messages(network.MsgTypeErrorCodes)
	require.Len(t, tables, 1)
	body := decode[network.ErrorCodesBody](t, tables[0].Data)
	assert.Len(t, body.Codes, 12)
	assert.Equal(t, "room not found", body.Codes[CodeRoomNotFound])

	s.send(c, 999, nil)
	assert.Equal(t, CodeUnknown, c.conn.lastError(t))
}

func TestCodeFor(t *testing.T) {
	assert.Equal(t, CodeRoomNotFound, codeFor(room.ErrRoomNotFound))
	assert.Equal(t, CodePlayerNameLength, codeFor(session.ErrNameLength))
	assert.Equal(t, CodeUnknown, codeFor(io.ErrUnexpectedEOF))
}

func TestHandleConnection_CleansUpOnDisconnect(t *testing.T) {
	s := newTestServer(t)
	conn := &MockConnection{inbound: []*network.Packet{
		{MsgID: network.MsgTypeSetName, Data: network.Marshal(network.NameBody{Name: "alice"})},
		{MsgID: network.MsgTypeCreateRoom, Data: network.Marshal(network.CodeBody{Code: "gameroom"})},
	}}

	s.handleConnection(conn)

	assert.Equal(t, 0, s.sessionManager.Count())
	assert.Equal(t, 0, s.roomManager.Count())
}

func TestHousekeeping(t *testing.T) {
	s := newTestServer(t)
	s.cfg.IdleTimeout = 20 * time.Millisecond

	quiet := s.newClient()
	_, err := s.roomManager.CreateRoom("emptyroom")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	busy := s.newClient()

	s.housekeeping()

	assert.True(t, quiet.conn.Closed())
	assert.False(t, busy.conn.Closed())
	assert.Equal(t, 0, s.roomManager.Count())
}

type pongConnection struct {
	MockConnection
	onPong func()
}

func (p *pongConnection) OnPong(fn func()) { p.onPong = fn }

func TestHandleConnection_PongsCountAsActivity(t *testing.T) {
	s := newTestServer(t)
	conn := &pongConnection{}

	s.handleConnection(conn)

	require.NotNil(t, conn.onPong)
	assert.NotPanics(t, conn.onPong)
}

func TestNewLimiter(t *testing.T) {
	unlimited := newLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow())
	}

	limited := newLimiter(1, 2)
	assert.True(t, limited.Allow())
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())
}

func TestHTTPEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice := s.namedClient(t, "alice")
	s.send(alice, network.MsgTypeCreateRoom, network.CodeBody{Code: "gameroom"})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(1), health["players"])
	assert.Equal(t, float64(1), health["rooms"])

	resp, err = http.Get(ts.URL + "/rooms")
	require.NoError(t, err)
	var list network.RoomListBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "gameroom", list.Rooms[0].Code)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, s.checkOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, s.checkOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, s.checkOrigin(req))
}
