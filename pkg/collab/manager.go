package collab

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/wire"
)

// DefaultRoomIdleTimeout is how long an empty room is held before its
// document log is discarded. A short hold lets a briefly-dropped member
// rejoin without losing the session.
const DefaultRoomIdleTimeout = 30 * time.Second

// Manager tracks live collaboration rooms by shopper id. Rooms are
// created lazily on first join and torn down after sitting empty past the
// idle timeout.
type Manager struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func NewManager(idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultRoomIdleTimeout
	}
	return &Manager{rooms: map[string]*Room{}, idleTimeout: idleTimeout}
}

// GetOrCreate returns the room for the shopper, creating it if absent.
func (m *Manager) GetOrCreate(shopperID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[shopperID]; ok {
		return room
	}
	pool := wire.NewPool("collab:"+shopperID, m.idleTimeout, func() {
		m.drop(shopperID)
	})
	room := newRoom(shopperID, pool)
	m.rooms[shopperID] = room
	log.Info().Str("component", "collab").Str("shopper_id", shopperID).Msg("collaboration room created")
	return room
}

// Get returns the room if it exists.
func (m *Manager) Get(shopperID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[shopperID]
	return room, ok
}

// Close tears a room down immediately, closing any remaining members.
func (m *Manager) Close(shopperID string) {
	m.mu.Lock()
	room, ok := m.rooms[shopperID]
	delete(m.rooms, shopperID)
	m.mu.Unlock()
	if ok {
		room.pool.CloseAll()
		log.Info().Str("component", "collab").Str("shopper_id", shopperID).Msg("collaboration room closed")
	}
}

func (m *Manager) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

func (m *Manager) drop(shopperID string) {
	m.mu.Lock()
	room, ok := m.rooms[shopperID]
	if ok && room.MemberCount() == 0 {
		delete(m.rooms, shopperID)
	} else {
		ok = false
	}
	m.mu.Unlock()
	if ok {
		log.Info().Str("component", "collab").Str("shopper_id", shopperID).Msg("idle collaboration room dropped")
	}
}
