package sse

import (
	"sync"
)

// Manager fans progress events out to connected clients, keyed by user.
// A user with no open stream simply drops events on the floor.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[chan []byte]struct{}
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe registers a new stream for a user and returns its channel plus
// an unsubscribe function. The channel is buffered so a slow reader does not
// stall the sync worker; overflowing events are dropped.
func (m *Manager) Subscribe(userID string) (<-chan []byte, func()) {
	ch := make(chan []byte, 64)

	m.mu.Lock()
	if m.clients[userID] == nil {
		m.clients[userID] = make(map[chan []byte]struct{})
	}
	m.clients[userID][ch] = struct{}{}
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		if subs, ok := m.clients[userID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(m.clients, userID)
			}
		}
		m.mu.Unlock()
		close(ch)
	}

	return ch, unsubscribe
}

// Publish delivers a payload to every open stream for the user.
func (m *Manager) Publish(userID string, payload []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for ch := range m.clients[userID] {
		select {
		case ch <- payload:
		default:
		}
	}
}

// ClientCount reports how many streams a user has open.
func (m *Manager) ClientCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}
