package telemetry

import (
	"sync"
	"sync/atomic"
)

// Observer receives a telemetry value. The concrete type depends on the key,
// see the table in status.go.
type Observer func(key Key, value any)

// ObserverID identifies one registration so it can be removed later.
type ObserverID uint64

// RawDataObservable is the subscription surface consumed by the position
// monitor and the drone controller.
type RawDataObservable interface {
	Register(key Key, obs Observer) ObserverID
	Unregister(key Key, id ObserverID)
}

type registration struct {
	id  ObserverID
	obs Observer
}

// Hub fans telemetry values out to registered observers. Observers run on the
// publishing goroutine and must guard their own state.
type Hub struct {
	mu        sync.RWMutex
	observers map[Key][]registration
	nextID    atomic.Uint64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{observers: make(map[Key][]registration)}
}

// Register adds obs for key and returns its handle.
func (h *Hub) Register(key Key, obs Observer) ObserverID {
	id := ObserverID(h.nextID.Add(1))
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers[key] = append(h.observers[key], registration{id: id, obs: obs})
	return id
}

// Unregister removes the registration. Unknown ids are ignored.
func (h *Hub) Unregister(key Key, id ObserverID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	regs := h.observers[key]
	for i, r := range regs {
		if r.id == id {
			h.observers[key] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(h.observers[key]) == 0 {
		delete(h.observers, key)
	}
}

// ObserverCount returns the number of observers registered for key.
func (h *Hub) ObserverCount(key Key) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers[key])
}

// Notify delivers value to every observer of key.
func (h *Hub) Notify(key Key, value any) {
	h.mu.RLock()
	regs := append([]registration(nil), h.observers[key]...)
	h.mu.RUnlock()

	for _, r := range regs {
		r.obs(key, value)
	}
}
