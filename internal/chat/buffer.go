package chat

import "sync"

// DefaultBufferSize is the number of recent messages retained per couple
// when no size is configured.
const DefaultBufferSize = 50

// MessageBuffer stores the last N messages per couple in memory. It backs
// history replay when Redis is unreachable.
// It is goroutine-safe and uses a ring buffer internally.
type MessageBuffer struct {
	size    int
	mu      sync.RWMutex
	buffers map[string]*ringBuffer // coupleID -> ring buffer
}

type ringBuffer struct {
	items []Message
	pos   int
	count int
}

// NewMessageBuffer creates an empty buffer keeping size messages per couple.
// A non-positive size means DefaultBufferSize.
func NewMessageBuffer(size int) *MessageBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &MessageBuffer{
		size:    size,
		buffers: make(map[string]*ringBuffer),
	}
}

// Add appends a message to the couple's ring buffer, overwriting the oldest
// entry when full.
func (mb *MessageBuffer) Add(coupleID string, msg Message) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	rb, ok := mb.buffers[coupleID]
	if !ok {
		rb = &ringBuffer{items: make([]Message, mb.size)}
		mb.buffers[coupleID] = rb
	}

	rb.items[rb.pos] = msg
	rb.pos = (rb.pos + 1) % mb.size
	if rb.count < mb.size {
		rb.count++
	}
}

// Get returns the buffered messages for a couple, oldest first. It returns
// an empty slice when nothing is buffered.
func (mb *MessageBuffer) Get(coupleID string) []Message {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	rb, ok := mb.buffers[coupleID]
	if !ok {
		return []Message{}
	}

	result := make([]Message, rb.count)
	start := (rb.pos - rb.count + mb.size) % mb.size
	for i := 0; i < rb.count; i++ {
		result[i] = rb.items[(start+i)%mb.size]
	}
	return result
}

// Remove drops the buffer for a couple.
func (mb *MessageBuffer) Remove(coupleID string) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	delete(mb.buffers, coupleID)
}
