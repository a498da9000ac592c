package memory

import (
	"encoding/json"
	"log"
	"sync"

	"quiz-live-service/internal/domain"
)

// DefaultOutboundBuffer is the per-connection queue length.
const DefaultOutboundBuffer = 64

// Hub is an in-process implementation of app.Room. Every registered
// connection owns a buffered outbound queue of encoded events; rooms are named
// sets of handles. Sends never block: a full queue drops the message.
type Hub struct {
	buffer int

	mu      sync.RWMutex
	conns   map[domain.ConnectionHandle]chan []byte
	rooms   map[string]map[domain.ConnectionHandle]struct{}
	joined  map[domain.ConnectionHandle]map[string]struct{}
	dropped int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultOutboundBuffer
	}
	return &Hub{
		buffer: buffer,
		conns:  make(map[domain.ConnectionHandle]chan []byte),
		rooms:  make(map[string]map[domain.ConnectionHandle]struct{}),
		joined: make(map[domain.ConnectionHandle]map[string]struct{}),
	}
}

// Register creates the outbound queue for a connection. The channel is closed by Unregister.
func (h *Hub) Register(handle domain.ConnectionHandle) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.conns[handle]; ok {
		return ch
	}
	ch := make(chan []byte, h.buffer)
	h.conns[handle] = ch
	return ch
}

// Unregister removes a connection from every room and closes its queue.
func (h *Hub) Unregister(handle domain.ConnectionHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.joined[handle] {
		members := h.rooms[room]
		delete(members, handle)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.joined, handle)
	if ch, ok := h.conns[handle]; ok {
		delete(h.conns, handle)
		close(ch)
	}
}

func (h *Hub) Join(room string, handle domain.ConnectionHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[handle]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[domain.ConnectionHandle]struct{})
	}
	h.rooms[room][handle] = struct{}{}
	if h.joined[handle] == nil {
		h.joined[handle] = make(map[string]struct{})
	}
	h.joined[handle][room] = struct{}{}
}

func (h *Hub) Send(room string, event domain.Event) {
	data, ok := encode(event)
	if !ok {
		return
	}
	h.deliver(room, data)
}

func (h *Hub) SendTo(handle domain.ConnectionHandle, event domain.Event) {
	data, ok := encode(event)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.conns[handle]; ok {
		h.offerLocked(handle, ch, data)
	}
}

// deliver fans an already encoded event out to the members of room.
func (h *Hub) deliver(room string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for handle := range h.rooms[room] {
		if ch, ok := h.conns[handle]; ok {
			h.offerLocked(handle, ch, data)
		}
	}
}

// Members reports how many local connections are in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Dropped reports how many messages were discarded for slow connections.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) offerLocked(handle domain.ConnectionHandle, ch chan []byte, data []byte) {
	select {
	case ch <- data:
	default:
		h.dropped++
		log.Printf("room: outbound queue full for %s, dropping message", handle)
	}
}

func encode(event domain.Event) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("room: marshal %s: %v", event.Type, err)
		return nil, false
	}
	return data, true
}
