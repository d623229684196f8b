// Package connectivity reports whether the remote service is reachable and
// whether the application came to the foreground. The sync manager listens
// to these events to start a pass as soon as delivery can succeed.
package connectivity

import (
	"sync"
)

//go:generate moq -out signals_mock.go . Signals

// Event сигнал платформы
type Event int

const (
	WentOnline Event = iota + 1
	WentOffline
	Foregrounded
)

func (e Event) String() string {
	switch e {
	case WentOnline:
		return "online"
	case WentOffline:
		return "offline"
	case Foregrounded:
		return "foreground"
	}
	return "unknown"
}

// Signals is a source of connectivity and visibility events.
type Signals interface {
	// Online returns the last known connectivity state.
	Online() bool

	// Subscribe returns a channel of events and a function that cancels the
	// subscription. Events are dropped for a subscriber that falls behind.
	Subscribe() (<-chan Event, func())
}

// subscriberBuffer емкость канала одного подписчика
const subscriberBuffer = 8

// hub рассылает события подписчикам без блокировки
type hub struct {
	subs map[int]chan Event
	mu   sync.Mutex
	next int
}

func (h *hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]chan Event)
	}
	id := h.next
	h.next++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			// подписчик не успевает, событие теряется
		}
	}
}

// Manual is a Signals source driven by the caller, e.g. by platform hooks
// or by a CLI flag that forces the online state.
type Manual struct {
	hub
	state  sync.RWMutex
	online bool
}

var _ Signals = (*Manual)(nil)

// NewManual returns a Manual source in the given initial state.
func NewManual(online bool) *Manual {
	return &Manual{online: online}
}

// Online implements Signals.
func (m *Manual) Online() bool {
	m.state.RLock()
	defer m.state.RUnlock()
	return m.online
}

// SetOnline changes the state and publishes WentOnline or WentOffline.
// Setting the current state again publishes nothing.
func (m *Manual) SetOnline(online bool) {
	m.state.Lock()
	defer m.state.Unlock()

	if m.online == online {
		return
	}
	m.online = online
	// публикуем под блокировкой: порядок событий совпадает с порядком смены состояния
	if online {
		m.publish(WentOnline)
	} else {
		m.publish(WentOffline)
	}
}

// Foreground publishes Foregrounded.
func (m *Manual) Foreground() {
	m.publish(Foregrounded)
}
