package socket

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/wippyai/netcore/endpoint"
)

// fakeSystem is an in-memory System with hooks for fault injection.
type fakeSystem struct {
	mu       sync.Mutex
	nextFD   int
	open     map[int]bool
	closes   map[int]int
	nonblock map[int]bool
	ints     map[Option]int
	timevals map[Option]time.Duration
	linger   [2]int

	connectErr error
	closeErr   error
	soError    syscall.Errno

	pollFn   func(fds []PollFD, timeout time.Duration) (int, error)
	sendFn   func(fd int, p []byte) (int, error)
	recvFn   func(fd int, p []byte) (int, error)
	acceptFn func(fd int) (int, endpoint.Endpoint, error)

	polls int
	recvs int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		nextFD:   100,
		open:     make(map[int]bool),
		closes:   make(map[int]int),
		nonblock: make(map[int]bool),
		ints:     make(map[Option]int),
		timevals: make(map[Option]time.Duration),
	}
}

// useFakeSystem installs a fake for the duration of the test.
func useFakeSystem(t *testing.T) *fakeSystem {
	t.Helper()
	f := newFakeSystem()
	prev := SetSystem(f)
	t.Cleanup(func() { SetSystem(prev) })
	return f
}

func (f *fakeSystem) Socket(family endpoint.Family) (int, error) {
	if family == endpoint.FamilyUnspec {
		return -1, syscall.EAFNOSUPPORT
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextFD++
	f.open[f.nextFD] = true
	return f.nextFD, nil
}

func (f *fakeSystem) Close(fd int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes[fd]++
	if !f.open[fd] {
		return syscall.EBADF
	}
	delete(f.open, fd)
	return f.closeErr
}

func (f *fakeSystem) closeCount(fd int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes[fd]
}

func (f *fakeSystem) Connect(int, endpoint.Endpoint) error { return f.connectErr }
func (f *fakeSystem) Bind(int, endpoint.Endpoint) error    { return nil }
func (f *fakeSystem) Listen(int, int) error                { return nil }
func (f *fakeSystem) Shutdown(int, ShutdownHow) error      { return nil }
func (f *fakeSystem) Available(int) (int, error)           { return 0, nil }

func (f *fakeSystem) Accept(fd int) (int, endpoint.Endpoint, error) {
	if f.acceptFn != nil {
		return f.acceptFn(fd)
	}
	nfd, err := f.Socket(endpoint.IPv4)
	return nfd, endpoint.Loopback(endpoint.IPv4, 5000), err
}

func (f *fakeSystem) Send(fd int, p []byte) (int, error) {
	if f.sendFn != nil {
		return f.sendFn(fd, p)
	}
	return len(p), nil
}

func (f *fakeSystem) Recv(fd int, p []byte) (int, error) {
	f.recvs++
	if f.recvFn != nil {
		return f.recvFn(fd, p)
	}
	return 0, nil
}

func (f *fakeSystem) Poll(fds []PollFD, timeout time.Duration) (int, error) {
	f.polls++
	if f.pollFn != nil {
		return f.pollFn(fds, timeout)
	}
	for i := range fds {
		fds[i].Revents = fds[i].Events
	}
	return len(fds), nil
}

func (f *fakeSystem) SetNonblock(fd int, nonblocking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonblock[fd] = nonblocking
	return nil
}

func (f *fakeSystem) GetsockoptInt(_ int, opt Option) (int, error) {
	if opt == OptError {
		return int(f.soError), nil
	}
	return f.ints[opt], nil
}

func (f *fakeSystem) SetsockoptInt(_ int, opt Option, value int) error {
	if opt == OptNoDelay && value < 0 {
		return syscall.EINVAL
	}
	f.ints[opt] = value
	return nil
}

func (f *fakeSystem) GetsockoptLinger(int) (bool, int, error) {
	return f.linger[0] != 0, f.linger[1], nil
}

func (f *fakeSystem) SetsockoptLinger(_ int, on bool, seconds int) error {
	f.linger = [2]int{0, seconds}
	if on {
		f.linger[0] = 1
	}
	return nil
}

func (f *fakeSystem) GetsockoptTimeval(_ int, opt Option) (time.Duration, error) {
	return f.timevals[opt], nil
}

func (f *fakeSystem) SetsockoptTimeval(_ int, opt Option, d time.Duration) error {
	f.timevals[opt] = d
	return nil
}

func (f *fakeSystem) Getsockname(int) (endpoint.Endpoint, error) {
	return endpoint.Loopback(endpoint.IPv4, 4000), nil
}

func (f *fakeSystem) Getpeername(int) (endpoint.Endpoint, error) {
	return endpoint.Loopback(endpoint.IPv4, 5000), nil
}
