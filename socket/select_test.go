package socket

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
)

func TestSelect_FiltersInPlace(t *testing.T) {
	f := useFakeSystem(t)

	a, _ := NewStreamSocket(endpoint.IPv4)
	b, _ := NewStreamSocket(endpoint.IPv4)
	c, _ := NewStreamSocket(endpoint.IPv4)
	defer CloseAll(&a.Socket, &b.Socket, &c.Socket)

	var polled []PollFD
	f.pollFn = func(fds []PollFD, timeout time.Duration) (int, error) {
		polled = append([]PollFD(nil), fds...)
		n := 0
		for i := range fds {
			switch fds[i].FD {
			case a.FD():
				fds[i].Revents = PollIn
				n++
			case b.FD():
				fds[i].Revents = PollOut
				n++
			}
		}
		return n, nil
	}

	var null Socket
	read := []Socket{c.Socket, a.Socket, null, b.Socket}
	write := []Socket{b.Socket, c.Socket}
	except := []Socket{a.Socket}

	n, err := Select(&read, &write, &except, time.Second)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if n != 2 {
		t.Fatalf("Select = %d, want 2", n)
	}
	if len(read) != 1 || !read[0].Equal(a.Socket) {
		t.Fatalf("read = %v", read)
	}
	if len(write) != 1 || !write[0].Equal(b.Socket) {
		t.Fatalf("write = %v", write)
	}
	if len(except) != 0 {
		t.Fatalf("except = %v", except)
	}

	// One entry per socket, events merged across lists
	if len(polled) != 3 {
		t.Fatalf("polled %d fds, want 3", len(polled))
	}
	for _, p := range polled {
		if p.FD == b.FD() && p.Events != readEvents|writeEvents {
			t.Fatalf("b events = %#x", p.Events)
		}
		if p.FD == a.FD() && p.Events != readEvents|exceptEvents {
			t.Fatalf("a events = %#x", p.Events)
		}
	}
}

func TestSelect_ReadyInBothLists(t *testing.T) {
	f := useFakeSystem(t)

	s, _ := NewStreamSocket(endpoint.IPv4)
	defer s.Close()

	f.pollFn = func(fds []PollFD, timeout time.Duration) (int, error) {
		fds[0].Revents = PollIn | PollOut
		return 1, nil
	}

	read := []Socket{s.Socket}
	write := []Socket{s.Socket}
	n, err := Select(&read, &write, nil, time.Second)
	if err != nil || n != 2 {
		t.Fatalf("Select = %d, %v; want 2", n, err)
	}
	if len(read) != 1 || len(write) != 1 {
		t.Fatalf("read=%d write=%d", len(read), len(write))
	}
}

func TestSelect_Timeout(t *testing.T) {
	f := useFakeSystem(t)
	f.pollFn = func(fds []PollFD, timeout time.Duration) (int, error) {
		if timeout != 0 {
			t.Errorf("timeout = %v, want 0", timeout)
		}
		return 0, nil
	}

	s, _ := NewStreamSocket(endpoint.IPv4)
	defer s.Close()

	read := []Socket{s.Socket}
	n, err := Select(&read, nil, nil, -time.Second)
	if err != nil || n != 0 || len(read) != 0 {
		t.Fatalf("Select = %d, %v, read=%v", n, err, read)
	}
}

func TestSelect_EmptyLists(t *testing.T) {
	f := useFakeSystem(t)

	var read, write []Socket
	n, err := Select(&read, &write, nil, 0)
	if err != nil || n != 0 {
		t.Fatalf("Select = %d, %v", n, err)
	}
	if f.polls != 0 {
		t.Fatal("empty Select must not poll")
	}

	start := time.Now()
	n, err = Select(&read, nil, nil, 30*time.Millisecond)
	if err != nil || n != 0 {
		t.Fatalf("Select = %d, %v", n, err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("empty Select returned after %v, want full timeout", elapsed)
	}
}

func TestSelect_PollError(t *testing.T) {
	f := useFakeSystem(t)
	f.pollFn = func([]PollFD, time.Duration) (int, error) { return 0, syscall.ENOMEM }

	s, _ := NewStreamSocket(endpoint.IPv4)
	defer s.Close()

	read := []Socket{s.Socket}
	_, err := Select(&read, nil, nil, time.Second)
	var ne *neterrors.Error
	if !errors.As(err, &ne) || ne.Phase != neterrors.PhaseSelect || ne.Errno != syscall.ENOMEM {
		t.Fatalf("Select error = %v", err)
	}
}
