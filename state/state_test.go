package state

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_InitialState(t *testing.T) {
	sm := NewMachine()
	assert.Equal(t, State{ID: Idle}, sm.Current())
	assert.True(t, sm.IsIdle())
}

func TestMachine_FullRound(t *testing.T) {
	sm := NewMachine()

	require.True(t, sm.TryStart())
	require.NoError(t, sm.ChangeState(State{ID: SelectingPlayer}))
	require.NoError(t, sm.ChangeState(State{ID: PlayerChosen, Player: 42}))
	assert.Equal(t, State{ID: PlayerChosen, Player: 42}, sm.Current())

	require.NoError(t, sm.ChangeState(State{ID: Loading}))
	assert.Equal(t, uint64(0), sm.Current().Player)

	require.NoError(t, sm.ChangeState(State{ID: Idle}))
	assert.True(t, sm.IsIdle())
}

func TestMachine_RejectsSkippedPhases(t *testing.T) {
	sm := NewMachine()

	err := sm.ChangeState(State{ID: PlayerChosen, Player: 1})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.True(t, sm.IsIdle())

	require.True(t, sm.TryStart())
	err = sm.ChangeState(State{ID: PlayerChosen, Player: 1})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.Equal(t, Loading, sm.Current().ID)
}

func TestMachine_PlayerOnlyKeptForPlayerChosen(t *testing.T) {
	sm := NewMachine()
	require.True(t, sm.TryStart())
	require.NoError(t, sm.ChangeState(State{ID: SelectingPlayer, Player: 9}))
	assert.Equal(t, uint64(0), sm.Current().Player)
}

func TestMachine_TryStartOnlyOnce(t *testing.T) {
	sm := NewMachine()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sm.TryStart() {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, Loading, sm.Current().ID)
}

func TestMachine_ConditionBlocksTransition(t *testing.T) {
	sm := NewEmptyMachine()
	allowed := false
	sm.AddTransition(Idle, Loading, func() bool { return allowed })

	assert.ErrorIs(t, sm.ChangeState(State{ID: Loading}), ErrTransitionNotAllowed)

	allowed = true
	assert.NoError(t, sm.ChangeState(State{ID: Loading}))
}

func TestID_String(t *testing.T) {
	assert.Equal(t, "player_chosen", PlayerChosen.String())
	assert.Equal(t, "state(9)", ID(9).String())
}
