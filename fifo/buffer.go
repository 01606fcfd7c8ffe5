package fifo

import "fmt"

// RingBuffer is a fixed-capacity byte FIFO. Readable bytes always occupy
// one contiguous region at the front of the storage and the free space one
// contiguous region behind it, so both can be handed to a single read or
// write syscall.
//
// When notifications are enabled, observers registered with OnReadable are
// told when the buffer goes from empty to non-empty (true) and back (false);
// OnWritable observers are told when it goes from full to non-full (true)
// and back (false). Nothing fires without a transition.
//
// A RingBuffer is not safe for concurrent use.
type RingBuffer struct {
	readable edge
	writable edge
	buf      []byte
	used     int
	notify   bool
}

// New returns a buffer of the given capacity with notifications enabled.
func New(capacity int) *RingBuffer {
	return NewNotifying(capacity, true)
}

// NewNotifying returns a buffer of the given capacity. With notify false no
// observer is ever invoked.
func NewNotifying(capacity int, notify bool) *RingBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &RingBuffer{
		buf:    make([]byte, capacity),
		notify: notify,
	}
}

// OnReadable registers fn for empty/non-empty transitions.
func (b *RingBuffer) OnReadable(fn func(readable bool)) Subscription {
	return b.readable.add(fn)
}

// OnWritable registers fn for full/non-full transitions.
func (b *RingBuffer) OnWritable(fn func(writable bool)) Subscription {
	return b.writable.add(fn)
}

// Write copies as much of p as fits and returns the number of bytes taken.
func (b *RingBuffer) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	before := b.used
	n := copy(b.buf[b.used:], p)
	b.used += n
	b.emit(before)
	return n
}

// Read moves up to len(p) bytes out of the buffer into p.
func (b *RingBuffer) Read(p []byte) int {
	n := b.Peek(p)
	b.Drain(n)
	return n
}

// Peek copies up to len(p) readable bytes into p without consuming them.
func (b *RingBuffer) Peek(p []byte) int {
	return copy(p, b.buf[:b.used])
}

// Readable returns the readable region. It stays valid until the next
// mutating call.
func (b *RingBuffer) Readable() []byte {
	return b.buf[:b.used:b.used]
}

// Writable returns the free region. Bytes written into it become readable
// after Advance.
func (b *RingBuffer) Writable() []byte {
	return b.buf[b.used:]
}

// Advance commits n bytes written directly into the free region.
func (b *RingBuffer) Advance(n int) {
	if n <= 0 {
		return
	}
	if n > b.Available() {
		panic(fmt.Sprintf("fifo: advance %d exceeds free space %d", n, b.Available()))
	}
	before := b.used
	b.used += n
	b.emit(before)
}

// Drain discards up to n readable bytes and returns how many were dropped.
func (b *RingBuffer) Drain(n int) int {
	if n <= 0 || b.used == 0 {
		return 0
	}
	if n > b.used {
		n = b.used
	}
	before := b.used
	copy(b.buf, b.buf[n:b.used])
	b.used -= n
	b.emit(before)
	return n
}

// Clear discards all readable bytes.
func (b *RingBuffer) Clear() {
	b.Drain(b.used)
}

// Byte returns the i-th readable byte. It panics if i is out of range.
func (b *RingBuffer) Byte(i int) byte {
	if i < 0 || i >= b.used {
		panic(fmt.Sprintf("fifo: index %d out of range [0:%d]", i, b.used))
	}
	return b.buf[i]
}

// Used returns the number of readable bytes.
func (b *RingBuffer) Used() int { return b.used }

// Available returns the free space in bytes.
func (b *RingBuffer) Available() int { return len(b.buf) - b.used }

// Cap returns the fixed capacity.
func (b *RingBuffer) Cap() int { return len(b.buf) }

func (b *RingBuffer) IsEmpty() bool { return b.used == 0 }
func (b *RingBuffer) IsFull() bool  { return b.used == len(b.buf) }

// Notifying reports whether observers are invoked.
func (b *RingBuffer) Notifying() bool { return b.notify }

// SetNotify enables or disables observer notifications.
func (b *RingBuffer) SetNotify(notify bool) { b.notify = notify }

func (b *RingBuffer) String() string {
	return fmt.Sprintf("fifo(%d/%d)", b.used, len(b.buf))
}

// emit fires the transitions between before and the current fill level,
// readable channel first.
func (b *RingBuffer) emit(before int) {
	if !b.notify {
		return
	}
	after, capacity := b.used, len(b.buf)

	switch {
	case before == 0 && after > 0:
		b.readable.fire(true)
	case before > 0 && after == 0:
		b.readable.fire(false)
	}

	switch {
	case before == capacity && after < capacity:
		b.writable.fire(true)
	case before < capacity && after == capacity:
		b.writable.fire(false)
	}
}
