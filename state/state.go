package state

import (
	"errors"
	"fmt"
	"sync"
)

// ID is the game phase of a room. The numeric values are part of the wire protocol.
type ID int

const (
	Idle ID = iota
	Loading
	SelectingPlayer
	PlayerChosen
)

func (id ID) String() string {
	switch id {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case SelectingPlayer:
		return "selecting_player"
	case PlayerChosen:
		return "player_chosen"
	default:
		return fmt.Sprintf("state(%d)", int(id))
	}
}

// State is a phase plus, for PlayerChosen, the active player.
type State struct {
	ID     ID
	Player uint64
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// Machine holds the current game state of one room. Only registered transitions are allowed;
// a registered transition may carry a condition that must hold at change time.
type Machine struct {
	current     State
	transitions map[ID]map[ID]func() bool // fromState -> toState -> condition
	mutex       sync.RWMutex
}

// NewMachine returns a machine in Idle with the game's transition table:
// Idle -> Loading -> SelectingPlayer -> PlayerChosen -> Loading ..., and any state -> Idle.
func NewMachine() *Machine {
	m := NewEmptyMachine()
	m.AddTransition(Idle, Loading, nil)
	m.AddTransition(Loading, SelectingPlayer, nil)
	m.AddTransition(SelectingPlayer, PlayerChosen, nil)
	m.AddTransition(PlayerChosen, Loading, nil)
	for _, from := range []ID{Loading, SelectingPlayer, PlayerChosen} {
		m.AddTransition(from, Idle, nil)
	}
	return m
}

// NewEmptyMachine returns an Idle machine with no transitions registered.
func NewEmptyMachine() *Machine {
	return &Machine{
		current:     State{ID: Idle},
		transitions: make(map[ID]map[ID]func() bool),
	}
}

func (sm *Machine) AddTransition(from, to ID, condition func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[ID]func() bool)
	}
	sm.transitions[from][to] = condition
}

func (sm *Machine) ChangeState(next State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	return sm.changeLocked(next)
}

func (sm *Machine) changeLocked(next State) error {
	conditions, exists := sm.transitions[sm.current.ID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	condition, exists := conditions[next.ID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	if condition != nil && !condition() {
		return ErrTransitionNotAllowed
	}
	if next.ID != PlayerChosen {
		next.Player = 0
	}
	sm.current = next
	return nil
}

// TryStart moves Idle -> Loading. It reports false, leaving the state untouched, when
// the machine is not Idle, so concurrent callers get exactly one winner.
func (sm *Machine) TryStart() bool {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.current.ID != Idle {
		return false
	}
	return sm.changeLocked(State{ID: Loading}) == nil
}

func (sm *Machine) Current() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.current
}

func (sm *Machine) IsIdle() bool {
	return sm.Current().ID == Idle
}
