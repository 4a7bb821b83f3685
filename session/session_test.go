package session

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/wordgame/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestManager_CreateAssignsMonotonicIDs(t *testing.T) {
	manager := NewManager()

	first := manager.Create(&MockConnection{})
	second := manager.Create(&MockConnection{})

	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(2), second.ID)
	assert.Equal(t, 2, manager.Count())
}

func TestManager_IDsNotReusedAfterRemove(t *testing.T) {
	manager := NewManager()

	first := manager.Create(&MockConnection{})
	manager.Remove(first.ID)
	second := manager.Create(&MockConnection{})

	assert.Greater(t, second.ID, first.ID)
}

func TestManager_Create_Get_Remove(t *testing.T) {
	manager := NewManager()
	sess := manager.Create(&MockConnection{})

	got, exists := manager.Get(sess.ID)
	require.True(t, exists)
	assert.Same(t, sess, got)

	manager.Remove(sess.ID)
	_, exists = manager.Get(sess.ID)
	assert.False(t, exists)
	assert.Equal(t, 0, manager.Count())
}

func TestManager_ConcurrentCreate(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	ids := make(chan uint64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- manager.Create(&MockConnection{}).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}

func TestValidateName(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"abc", false},
		{"abcd", true},
		{"abcdefghij", true},
		{"abcdefghijk", false},
		{"  abcd  ", true},
		{"", false},
		{"ção1", true},
	}

	for _, tc := range cases {
		got, err := ValidateName(tc.name)
		if tc.valid {
			assert.NoError(t, err, tc.name)
			assert.NotEmpty(t, got)
		} else {
			assert.ErrorIs(t, err, ErrNameLength, tc.name)
		}
	}
}

func TestSession_NameAndRoom(t *testing.T) {
	sess := NewSession(7, &MockConnection{})

	assert.False(t, sess.HasName())
	assert.Equal(t, uint64(0), sess.RoomID())

	sess.SetName("alice")
	sess.SetRoomID(3)

	assert.True(t, sess.HasName())
	assert.Equal(t, "alice", sess.Name())
	assert.Equal(t, uint64(3), sess.RoomID())
}

func TestManager_IdleSince(t *testing.T) {
	manager := NewManager()
	quiet := manager.Create(&MockConnection{})
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	busy := manager.Create(&MockConnection{})
	busy.Touch()

	idle := manager.IdleSince(cutoff)
	require.Len(t, idle, 1)
	assert.Same(t, quiet, idle[0])
}
