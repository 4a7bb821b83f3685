package room

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(DefaultSettings(), fixedPicker{round: ingRound}, nil)
}

func TestManager_CreateRoom_ValidatesCode(t *testing.T) {
	manager := newTestManager()

	_, err := manager.CreateRoom("short")
	assert.ErrorIs(t, err, ErrRoomCodeLength)
	_, err = manager.CreateRoom("abcdefghijklmnopqrstu")
	assert.ErrorIs(t, err, ErrRoomCodeLength)

	first, err := manager.CreateRoom("abcdefgh")
	require.NoError(t, err)
	second, err := manager.CreateRoom("abcdefghijklmnopqrst")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	_, err = manager.CreateRoom("abcdefgh")
	assert.ErrorIs(t, err, ErrRoomExists)

	// codes are case-sensitive
	_, err = manager.CreateRoom("ABCDEFGH")
	assert.NoError(t, err)
}

func TestManager_FindByCodeAndRemoveIfEmpty(t *testing.T) {
	manager := newTestManager()
	r, err := manager.CreateRoom("lobby-one")
	require.NoError(t, err)

	found, ok := manager.FindByCode("lobby-one")
	require.True(t, ok)
	assert.Same(t, r, found)

	assert.True(t, manager.RemoveIfEmpty(r.ID))
	assert.False(t, manager.RemoveIfEmpty(r.ID))

	_, ok = manager.FindByCode("lobby-one")
	assert.False(t, ok)
	assert.Equal(t, 0, manager.Count())

	// the code is free again
	_, err = manager.CreateRoom("lobby-one")
	assert.NoError(t, err)
}

func TestManager_RemoveIfEmptyKeepsOccupiedRoom(t *testing.T) {
	manager := newTestManager()
	alice := newPlayer("alice")
	r, err := manager.Create("lobby-two", alice.Session)
	require.NoError(t, err)

	assert.False(t, manager.RemoveIfEmpty(r.ID))
	_, ok := manager.Get(r.ID)
	assert.True(t, ok)
}

func TestManager_CreateJoinLeave(t *testing.T) {
	manager := newTestManager()
	alice, bob := newPlayer("alice"), newPlayer("bobby")

	r, err := manager.Create("gameroom", alice.Session)
	require.NoError(t, err)
	assert.Equal(t, r.ID, alice.RoomID())

	_, err = manager.Create("otherroom", alice.Session)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	_, err = manager.Join("nosuchroom", bob.Session)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	joined, err := manager.Join("gameroom", bob.Session)
	require.NoError(t, err)
	assert.Same(t, r, joined)
	assert.Equal(t, 2, r.MemberCount())

	_, err = manager.Join("gameroom", bob.Session)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	left, removed, err := manager.Leave(alice.Session)
	require.NoError(t, err)
	assert.Same(t, r, left)
	assert.False(t, removed)

	_, _, err = manager.Leave(alice.Session)
	assert.ErrorIs(t, err, ErrNotInRoom)

	_, removed, err = manager.Leave(bob.Session)
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok := manager.FindByCode("gameroom")
	assert.False(t, ok)
}

func TestManager_ListOrderedByID(t *testing.T) {
	manager := newTestManager()
	for _, code := range []string{"room-ccc", "room-aaa", "room-bbb"} {
		_, err := manager.Create(code, newPlayer("player").Session)
		require.NoError(t, err)
	}

	rooms := manager.List()
	require.Len(t, rooms, 3)
	assert.Equal(t, "room-ccc", rooms[0].Code)
	assert.Equal(t, "room-bbb", rooms[2].Code)
	assert.Equal(t, []string{"player"}, rooms[1].Info().Players)
}

func TestManager_ConcurrentJoinAndLeave(t *testing.T) {
	manager := newTestManager()
	owner := newPlayer("owner")
	_, err := manager.Create("busyroom", owner.Session)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		p := newPlayer("guest")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Join("busyroom", p.Session); err != nil {
				return
			}
			_, _, _ = manager.Leave(p.Session)
		}()
	}
	wg.Wait()

	r, ok := manager.FindByCode("busyroom")
	require.True(t, ok)
	assert.Equal(t, 1, r.MemberCount())
}
