// Package connectivity tracks whether the remote API is believed reachable.
package connectivity

import (
	"sync"
)

// Monitor holds the online belief. Subscribers are called synchronously, in
// subscription order, on every transition and only on transitions.
// Transitions reach subscribers in the order they were applied, so a
// subscriber must not call SetOnline itself.
type Monitor struct {
	deliver sync.Mutex // held from the change until every handler returned

	mu     sync.Mutex
	online bool
	subs   map[int]func(online bool)
	order  []int
	nextID int
}

// NewMonitor starts with the given belief.
func NewMonitor(online bool) *Monitor {
	return &Monitor{
		online: online,
		subs:   make(map[int]func(bool)),
	}
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a runtime notification and reports whether it changed
// the belief.
func (m *Monitor) SetOnline(online bool) bool {
	m.deliver.Lock()
	defer m.deliver.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	handlers := make([]func(bool), 0, len(m.order))
	for _, id := range m.order {
		handlers = append(handlers, m.subs[id])
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(online)
	}
	return true
}

// MarkOffline is called when a request failed at the transport level.
func (m *Monitor) MarkOffline() bool {
	return m.SetOnline(false)
}

// Subscribe registers fn for transitions and returns its cancel func.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.order = append(m.order, id)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; !ok {
			return
		}
		delete(m.subs, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}
