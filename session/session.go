// session/session.go
package session

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/wfunc/wordgame/network"
)

const (
	MinNameLength = 4
	MaxNameLength = 10
)

var ErrNameLength = errors.New("player name length out of range")

// Session is the server side record of a connected player.
type Session struct {
	ID        uint64
	Conn      network.Connection
	CreatedAt time.Time

	name       string
	roomID     uint64
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id uint64, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// ValidateName trims the name and checks its length in characters.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return "", ErrNameLength
	}
	return name, nil
}

func (s *Session) Send(msgID uint16, data []byte) error {
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() uint64 {
	return s.ID
}

func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.name
}

func (s *Session) SetName(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.name = name
}

func (s *Session) HasName() bool {
	return s.Name() != ""
}

// RoomID is 0 when the player is not in a room.
func (s *Session) RoomID() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

// SetRoomID is only called by room membership operations.
func (s *Session) SetRoomID(id uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = id
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager is the player registry: connection identity -> Session.
type Manager struct {
	sessions map[uint64]*Session
	nextID   uint64
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uint64]*Session),
	}
}

// Create allocates the next player id and registers a session for conn.
func (m *Manager) Create(conn network.Connection) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.nextID++
	s := NewSession(m.nextID, conn)
	m.sessions[s.ID] = s
	return s
}

func (m *Manager) Remove(id uint64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Get(id uint64) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, exists := m.sessions[id]
	return s, exists
}

// IdleSince returns the sessions whose last activity is before t.
func (m *Manager) IdleSince(t time.Time) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var idle []*Session
	for _, s := range m.sessions {
		if s.LastActive().Before(t) {
			idle = append(idle, s)
		}
	}
	return idle
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
