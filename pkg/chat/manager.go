package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Thread is one chat conversation. Threads live for the process lifetime
// only; restarts start everyone fresh.
type Thread struct {
	ID         string
	Messages   []Message
	GuidedMode bool
}

// Manager keeps conversation threads keyed by id.
type Manager struct {
	mu      sync.Mutex
	threads map[string]*Thread
}

func NewManager() *Manager {
	return &Manager{threads: map[string]*Thread{}}
}

// GetOrCreate returns the thread with the given id, or a fresh one with a
// generated id when the id is empty or unknown.
func (m *Manager) GetOrCreate(id string) *Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if t, ok := m.threads[id]; ok {
			return t
		}
	}
	t := &Thread{ID: uuid.NewString()}
	m.threads[t.ID] = t
	return t
}

// Append records a turn on the thread.
func (m *Manager) Append(id string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.threads[id]; ok {
		t.Messages = append(t.Messages, msg)
	}
}

// History returns a copy of the thread's messages.
func (m *Manager) History(id string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		return nil
	}
	out := make([]Message, len(t.Messages))
	copy(out, t.Messages)
	return out
}

// SetGuidedMode flips the guided flag on a thread.
func (m *Manager) SetGuidedMode(id string, guided bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.threads[id]; ok {
		t.GuidedMode = guided
	}
}

func (m *Manager) ThreadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads)
}
