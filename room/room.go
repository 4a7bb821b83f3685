// room/room.go
package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/wordgame/broadcast"
	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/network"
	"github.com/wfunc/wordgame/session"
	"github.com/wfunc/wordgame/state"
)

// EntryKind tags text a player sent during a match.
type EntryKind int

const (
	EntryTyping EntryKind = iota
	EntryAnswer
)

// Entry is one item of a room mailbox.
type Entry struct {
	PlayerID uint64
	Kind     EntryKind
	Text     string
}

// Stats is one participant's progress in the running match.
type Stats struct {
	RoundsPlayed int
	Points       int
}

// Settings controls match length and pacing.
type Settings struct {
	RoundsPerPlayer int
	AnswerWindow    time.Duration
	SelectDelay     time.Duration
	RevealDelay     time.Duration
	MailboxSize     int
}

func DefaultSettings() Settings {
	return Settings{
		RoundsPerPlayer: 3,
		AnswerWindow:    10 * time.Second,
		SelectDelay:     2 * time.Second,
		RevealDelay:     3 * time.Second,
		MailboxSize:     256,
	}
}

// Room 是游戏房间的核心结构
type Room struct {
	ID        uint64
	Code      string
	CreatedAt time.Time

	settings Settings
	picker   Picker
	observer Observer

	mu       sync.Mutex
	members  []*session.Session // join order
	machine  *state.Machine
	mailbox  chan Entry
	departed chan uint64

	// match state, guarded by mu
	matchID    string
	startedAt  time.Time
	stats      map[uint64]*Stats // frozen roster
	names      map[uint64]string
	rrIndex    int
	active     uint64
	fragment   string
	revealed   bool
	candidates map[string]struct{}
	used       map[string]struct{}
	usedOrder  []string
	done       chan struct{}
}

func NewRoom(id uint64, code string, settings Settings, picker Picker, observer Observer) *Room {
	if settings.MailboxSize < 1 {
		settings.MailboxSize = DefaultSettings().MailboxSize
	}
	if settings.RoundsPerPlayer < 1 {
		settings.RoundsPerPlayer = 1
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Room{
		ID:        id,
		Code:      code,
		CreatedAt: time.Now(),
		settings:  settings,
		picker:    picker,
		observer:  observer,
		machine:   state.NewMachine(),
		mailbox:   make(chan Entry, settings.MailboxSize),
		departed:  make(chan uint64, 1),
	}
}

// AddPlayer appends p to the member list. The joiner receives RoomEntered and the member
// list, everyone else a PlayerJoined. Adding a current member is a no-op.
func (r *Room) AddPlayer(p *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(p.ID) >= 0 {
		return
	}
	r.members = append(r.members, p)
	p.SetRoomID(r.ID)

	send(p, network.MsgTypeRoomEntered, network.RoomEnteredBody{RoomID: r.ID, Code: r.Code})
	send(p, network.MsgTypeMembers, network.MembersBody{Players: r.playersLocked()})
	if st := r.machine.Current(); st.ID != state.Idle {
		send(p, network.MsgTypeGameState, network.GameStateBody{State: int(st.ID), Player: st.Player})
		if st.ID == state.PlayerChosen && r.revealed {
			send(p, network.MsgTypeFragment, network.FragmentBody{Fragment: r.fragment})
		}
	}
	r.broadcastLocked(network.MsgTypePlayerJoined, network.PlayerInfo{ID: p.ID, Name: p.Name()}, p.ID)

	logger.Log.Infow("player joined room", "room", r.ID, "code", r.Code, "player", p.ID)
}

// RemovePlayer drops the member with id and reports whether the room is now empty.
// If the player is taking the current turn, the turn is forfeited.
func (r *Room) RemovePlayer(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return len(r.members) == 0
	}
	p := r.members[idx]

	if pos := r.participantIndexLocked(id); pos >= 0 && pos < r.rrIndex {
		// keep the rotation pointing at the same next player
		r.rrIndex--
	}

	r.members = append(r.members[:idx], r.members[idx+1:]...)
	p.SetRoomID(0)
	r.broadcastLocked(network.MsgTypePlayerLeft, network.PlayerInfo{ID: p.ID, Name: p.Name()})

	// wake the engine if the active player left or too few participants remain
	if st := r.machine.Current(); st.ID != state.Idle {
		if st.Player == id || len(r.participantsLocked()) < 2 {
			select {
			case r.departed <- id:
			default:
			}
		}
	}

	logger.Log.Infow("player left room", "room", r.ID, "code", r.Code, "player", id, "remaining", len(r.members))
	return len(r.members) == 0
}

// Broadcast delivers a message to every member except the excluded ids.
func (r *Room) Broadcast(msgID uint16, body interface{}, exclude ...uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(msgID, body, exclude...)
}

// Chat relays text from a member to the other members.
func (r *Room) Chat(from *session.Session, text string) {
	r.Broadcast(network.MsgTypeChat, network.ChatBody{From: from.Name(), Text: text}, from.ID)
}

// Enqueue hands typing or answer text to the turn engine. Entries are discarded while no match
// runs. It never blocks; a full mailbox yields ErrMailboxFull.
func (r *Room) Enqueue(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.IsIdle() {
		return nil
	}
	select {
	case r.mailbox <- e:
		return nil
	default:
		logger.Log.Warnw("mailbox full, entry dropped", "room", r.ID, "player", e.PlayerID)
		return ErrMailboxFull
	}
}

// StartMatch freezes the current members as the roster and runs the match on its own goroutine.
// ctx bounds the match; cancelling it ends the match at the next wait.
func (r *Room) StartMatch(ctx context.Context) error {
	r.mu.Lock()
	if !r.machine.IsIdle() {
		r.mu.Unlock()
		return ErrMatchInProgress
	}
	if len(r.members) < 2 {
		r.mu.Unlock()
		return ErrNotEnoughPlayers
	}
	if !r.machine.TryStart() {
		r.mu.Unlock()
		return ErrMatchInProgress
	}

	r.matchID = uuid.NewString()
	r.startedAt = time.Now()
	r.stats = make(map[uint64]*Stats, len(r.members))
	r.names = make(map[uint64]string, len(r.members))
	for _, m := range r.members {
		r.stats[m.ID] = &Stats{}
		r.names[m.ID] = m.Name()
	}
	r.rrIndex = 0
	r.active = 0
	r.used = make(map[string]struct{})
	r.usedOrder = nil
	r.done = make(chan struct{})
	started := r.summaryLocked()
	done := r.done
	r.mu.Unlock()

	logger.Log.Infow("match started", "room", r.ID, "code", r.Code, "match", started.MatchID, "players", len(started.Scores))
	r.observer.MatchStarted(started)

	go r.run(ctx, done)
	return nil
}

// Done returns a channel closed when the current (or last) match ends, or nil if none has started.
func (r *Room) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *Room) State() state.State {
	return r.machine.Current()
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) Members() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*session.Session(nil), r.members...)
}

// PlayerStats returns a copy of a participant's match stats.
func (r *Room) PlayerStats(id uint64) (Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[id]
	if !ok {
		return Stats{}, false
	}
	return *st, true
}

// Info is the room-list view of the room.
func (r *Room) Info() network.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.Name())
	}
	return network.RoomInfo{
		ID:      r.ID,
		Code:    r.Code,
		State:   int(r.machine.Current().ID),
		Players: names,
	}
}

func (r *Room) indexLocked(id uint64) int {
	for i, m := range r.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// participantsLocked returns current members that belong to the match roster, in join order.
func (r *Room) participantsLocked() []*session.Session {
	ps := make([]*session.Session, 0, len(r.members))
	for _, m := range r.members {
		if _, ok := r.stats[m.ID]; ok {
			ps = append(ps, m)
		}
	}
	return ps
}

func (r *Room) participantIndexLocked(id uint64) int {
	for i, p := range r.participantsLocked() {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) playersLocked() []network.PlayerInfo {
	players := make([]network.PlayerInfo, 0, len(r.members))
	for _, m := range r.members {
		players = append(players, network.PlayerInfo{ID: m.ID, Name: m.Name()})
	}
	return players
}

func (r *Room) broadcastLocked(msgID uint16, body interface{}, exclude ...uint64) {
	broadcast.Fanout(r.members, msgID, network.Marshal(body), exclude...)
}

func send(p *session.Session, msgID uint16, body interface{}) {
	if err := p.Send(msgID, network.Marshal(body)); err != nil {
		logger.Log.Debugw("send failed", "player", p.ID, "msg", msgID, "error", err)
	}
}
