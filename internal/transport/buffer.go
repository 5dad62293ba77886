package transport

import "sync"

const defaultBufferSize = 100

// OutboundMessage is one buffered send, queued while the transport is
// not CONNECTED.
type OutboundMessage struct {
	Recipient string
	Text      string
}

// OutboundBuffer is a bounded FIFO. When full, Push drops the oldest
// entry to make room (spec.md §4.6) rather than rejecting the new one.
type OutboundBuffer struct {
	mu        sync.Mutex
	cap       int
	queue     []OutboundMessage
	onDropped func(OutboundMessage)
}

// NewOutboundBuffer constructs a buffer with the given capacity
// (defaultBufferSize if size <= 0). onDropped, if non-nil, is invoked
// synchronously under lock whenever a push displaces the oldest entry —
// callers use it to log a warning.
func NewOutboundBuffer(size int, onDropped func(OutboundMessage)) *OutboundBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &OutboundBuffer{cap: size, onDropped: onDropped}
}

// Push enqueues a message, dropping the oldest if the buffer is full.
func (b *OutboundBuffer) Push(msg OutboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) >= b.cap {
		dropped := b.queue[0]
		b.queue = b.queue[1:]
		if b.onDropped != nil {
			b.onDropped(dropped)
		}
	}
	b.queue = append(b.queue, msg)
}

// Drain removes and returns every buffered message, FIFO order.
func (b *OutboundBuffer) Drain() []OutboundMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.queue
	b.queue = nil
	return drained
}

// Len reports the number of currently buffered messages.
func (b *OutboundBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
