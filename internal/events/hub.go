package events

import "sync"

const defaultSubscriberBuffer = 64

// Hub fans frames out to websocket subscribers. A subscriber whose buffer is
// full is evicted and its channel closed; the client reconnects and resyncs.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	buffer  int
}

func NewHub() *Hub {
	return NewHubSize(defaultSubscriberBuffer)
}

func NewHubSize(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{clients: make(map[chan []byte]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe is safe to call after the hub already evicted ch.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Publish returns the number of subscribers evicted for being slow.
func (h *Hub) Publish(msg []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	evicted := 0
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			delete(h.clients, ch)
			close(ch)
			evicted++
		}
	}
	return evicted
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}
