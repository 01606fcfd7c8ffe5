package fifo

import (
	"bytes"
	"testing"
)

type edgeCounter struct {
	notToReadable int
	readableToNot int
	notToWritable int
	writableToNot int
}

func (c *edgeCounter) attach(b *RingBuffer) (Subscription, Subscription) {
	r := b.OnReadable(func(readable bool) {
		if readable {
			c.notToReadable++
		} else {
			c.readableToNot++
		}
	})
	w := b.OnWritable(func(writable bool) {
		if writable {
			c.notToWritable++
		} else {
			c.writableToNot++
		}
	})
	return r, w
}

func TestRingBuffer_WriteRead(t *testing.T) {
	b := New(8)

	if n := b.Write([]byte("hello world")); n != 8 {
		t.Fatalf("Write() = %d, want 8", n)
	}
	if !b.IsFull() || b.Available() != 0 {
		t.Fatalf("buffer should be full: %v", b)
	}

	p := make([]byte, 5)
	if n := b.Read(p); n != 5 || string(p) != "hello" {
		t.Fatalf("Read() = %d %q", n, p)
	}
	if b.Used() != 3 || b.Byte(0) != ' ' || b.Byte(2) != 'o' {
		t.Fatalf("unexpected residue: %q", b.Readable())
	}

	b.Write([]byte("12345"))
	if got := string(b.Readable()); got != " wo12345" {
		t.Fatalf("Readable() = %q", got)
	}
}

func TestRingBuffer_Peek(t *testing.T) {
	b := New(4)
	b.Write([]byte("abc"))

	p := make([]byte, 2)
	if n := b.Peek(p); n != 2 || string(p) != "ab" {
		t.Fatalf("Peek() = %d %q", n, p)
	}
	if b.Used() != 3 {
		t.Fatal("Peek must not consume")
	}
}

func TestRingBuffer_RegionsAndAdvance(t *testing.T) {
	b := New(6)
	b.Write([]byte("ab"))

	free := b.Writable()
	if len(free) != 4 {
		t.Fatalf("len(Writable()) = %d, want 4", len(free))
	}
	copy(free, "cd")
	b.Advance(2)

	if !bytes.Equal(b.Readable(), []byte("abcd")) {
		t.Fatalf("Readable() = %q", b.Readable())
	}
	if n := b.Drain(10); n != 4 {
		t.Fatalf("Drain() = %d, want 4", n)
	}
	if !b.IsEmpty() {
		t.Fatal("buffer should be empty")
	}
}

func TestRingBuffer_AdvancePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Advance past capacity should panic")
		}
	}()
	b := New(2)
	b.Advance(3)
}

func TestRingBuffer_BytePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Byte out of range should panic")
		}
	}()
	b := New(2)
	b.Write([]byte("x"))
	b.Byte(1)
}

func TestRingBuffer_Edges(t *testing.T) {
	b := New(5)
	var c edgeCounter
	c.attach(b)

	b.Write([]byte("12345"))
	if c.notToReadable != 1 || c.writableToNot != 1 {
		t.Fatalf("after fill: %+v", c)
	}
	if c.readableToNot != 0 || c.notToWritable != 0 {
		t.Fatalf("after fill: %+v", c)
	}

	// No transition, no notification
	b.Write([]byte("6"))
	if c != (edgeCounter{notToReadable: 1, writableToNot: 1}) {
		t.Fatalf("write to full buffer fired: %+v", c)
	}

	p := make([]byte, 5)
	b.Read(p)
	if c.readableToNot != 1 || c.notToWritable != 1 {
		t.Fatalf("after drain: %+v", c)
	}

	b.Write([]byte("12345"))
	if c.notToReadable != 2 || c.writableToNot != 2 {
		t.Fatalf("after refill: %+v", c)
	}
}

func TestRingBuffer_PartialTransitions(t *testing.T) {
	tests := []struct {
		name string
		ops  func(b *RingBuffer)
		want edgeCounter
	}{
		{
			name: "partial write",
			ops:  func(b *RingBuffer) { b.Write([]byte("ab")) },
			want: edgeCounter{notToReadable: 1},
		},
		{
			name: "partial write then partial read",
			ops: func(b *RingBuffer) {
				b.Write([]byte("abc"))
				b.Read(make([]byte, 1))
			},
			want: edgeCounter{notToReadable: 1},
		},
		{
			name: "full then partial read",
			ops: func(b *RingBuffer) {
				b.Write([]byte("abcd"))
				b.Drain(1)
			},
			want: edgeCounter{notToReadable: 1, writableToNot: 1, notToWritable: 1},
		},
		{
			name: "clear",
			ops: func(b *RingBuffer) {
				b.Write([]byte("ab"))
				b.Clear()
				b.Clear()
			},
			want: edgeCounter{notToReadable: 1, readableToNot: 1},
		},
		{
			name: "empty write and read",
			ops: func(b *RingBuffer) {
				b.Write(nil)
				b.Read(make([]byte, 4))
			},
			want: edgeCounter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(4)
			var c edgeCounter
			c.attach(b)
			tt.ops(b)
			if c != tt.want {
				t.Errorf("edges = %+v, want %+v", c, tt.want)
			}
		})
	}
}

func TestRingBuffer_NotifyDisabled(t *testing.T) {
	b := NewNotifying(2, false)
	var c edgeCounter
	c.attach(b)

	b.Write([]byte("ab"))
	b.Clear()
	if c != (edgeCounter{}) {
		t.Fatalf("notifications fired while disabled: %+v", c)
	}

	b.SetNotify(true)
	b.Write([]byte("a"))
	if c.notToReadable != 1 {
		t.Fatalf("notifications missing after enable: %+v", c)
	}
}

func TestRingBuffer_ObserverOrder(t *testing.T) {
	b := New(1)
	var order []string
	b.OnWritable(func(bool) { order = append(order, "w") })
	b.OnReadable(func(bool) { order = append(order, "r1") })
	b.OnReadable(func(bool) { order = append(order, "r2") })

	b.Write([]byte("x"))

	want := []string{"r1", "r2", "w"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRingBuffer_UnsubscribeDuringNotification(t *testing.T) {
	b := New(4)

	var first, second int
	var sub Subscription
	sub = b.OnReadable(func(bool) {
		first++
		sub.Unsubscribe()
	})
	b.OnReadable(func(bool) { second++ })

	b.Write([]byte("a"))
	if first != 1 || second != 1 {
		t.Fatalf("first=%d second=%d, want 1 1", first, second)
	}

	b.Clear()
	if first != 1 {
		t.Fatalf("unsubscribed observer ran again: %d", first)
	}
	if second != 2 {
		t.Fatalf("remaining observer missed event: %d", second)
	}

	// Double unsubscribe is harmless
	sub.Unsubscribe()
	(Subscription{}).Unsubscribe()
}

func TestRingBuffer_UnsubscribeOther(t *testing.T) {
	b := New(4)

	var calls []string
	var second Subscription
	b.OnReadable(func(bool) {
		calls = append(calls, "a")
		second.Unsubscribe()
	})
	second = b.OnReadable(func(bool) { calls = append(calls, "b") })

	b.Write([]byte("a"))
	// b still runs for the notification in progress
	if len(calls) != 2 {
		t.Fatalf("calls = %v", calls)
	}

	b.Clear()
	if len(calls) != 3 || calls[2] != "a" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRingBuffer_ZeroCapacity(t *testing.T) {
	b := New(0)
	var c edgeCounter
	c.attach(b)

	if n := b.Write([]byte("x")); n != 0 {
		t.Fatalf("Write() = %d, want 0", n)
	}
	if !b.IsEmpty() || !b.IsFull() {
		t.Fatal("zero-capacity buffer is both empty and full")
	}
	if c != (edgeCounter{}) {
		t.Fatalf("unexpected edges: %+v", c)
	}
}
