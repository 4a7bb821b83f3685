package room

import (
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/wfunc/wordgame/logger"
	"github.com/wfunc/wordgame/session"
)

const (
	MinCodeLength = 8
	MaxCodeLength = 20
)

// --- 房间管理器 ---

// Manager is the room registry. A room is registered exactly while it has members; the
// compound operations below hold the registry lock across lookup and membership change.
// Lock order is registry then room.
type Manager struct {
	rooms    map[uint64]*Room
	byCode   map[string]*Room
	nextID   uint64
	settings Settings
	picker   Picker
	observer Observer
	mutex    sync.RWMutex
}

func NewManager(settings Settings, picker Picker, observer Observer) *Manager {
	return &Manager{
		rooms:    make(map[uint64]*Room),
		byCode:   make(map[string]*Room),
		settings: settings,
		picker:   picker,
		observer: observer,
	}
}

// ValidateCode checks the code length in characters. Codes are case-sensitive and not trimmed.
func ValidateCode(code string) error {
	n := utf8.RuneCountInString(code)
	if n < MinCodeLength || n > MaxCodeLength {
		return ErrRoomCodeLength
	}
	return nil
}

// CreateRoom registers a new, empty room. Callers must add a member or call RemoveIfEmpty.
func (m *Manager) CreateRoom(code string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.createLocked(code)
}

func (m *Manager) createLocked(code string) (*Room, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if _, exists := m.byCode[code]; exists {
		return nil, ErrRoomExists
	}
	m.nextID++
	r := NewRoom(m.nextID, code, m.settings, m.picker, m.observer)
	m.rooms[r.ID] = r
	m.byCode[code] = r
	logger.Log.Infow("room created", "room", r.ID, "code", code)
	return r, nil
}

// Create registers a room with code and makes p its first member.
func (m *Manager) Create(code string, p *session.Session) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if p.RoomID() != 0 {
		return nil, ErrAlreadyInRoom
	}
	r, err := m.createLocked(code)
	if err != nil {
		return nil, err
	}
	r.AddPlayer(p)
	return r, nil
}

// Join adds p to the live room with code.
func (m *Manager) Join(code string, p *session.Session) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if p.RoomID() != 0 {
		return nil, ErrAlreadyInRoom
	}
	r, exists := m.byCode[code]
	if !exists {
		return nil, ErrRoomNotFound
	}
	r.AddPlayer(p)
	return r, nil
}

// Leave removes p from its room and drops the room if that emptied it.
func (m *Manager) Leave(p *session.Session) (r *Room, removed bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := p.RoomID()
	if id == 0 {
		return nil, false, ErrNotInRoom
	}
	r, exists := m.rooms[id]
	if !exists {
		p.SetRoomID(0)
		return nil, false, ErrRoomNotFound
	}
	if r.RemovePlayer(p.ID) {
		m.removeLocked(r)
		removed = true
	}
	return r, removed, nil
}

// RemoveIfEmpty drops the room if it has no members. Unknown ids are ignored.
func (m *Manager) RemoveIfEmpty(id uint64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, exists := m.rooms[id]
	if !exists || r.MemberCount() > 0 {
		return false
	}
	m.removeLocked(r)
	return true
}

func (m *Manager) removeLocked(r *Room) {
	delete(m.rooms, r.ID)
	delete(m.byCode, r.Code)
	logger.Log.Infow("room removed", "room", r.ID, "code", r.Code)
}

func (m *Manager) FindByCode(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.byCode[code]
	return r, exists
}

func (m *Manager) Get(id uint64) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

// List returns the live rooms ordered by id.
func (m *Manager) List() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
