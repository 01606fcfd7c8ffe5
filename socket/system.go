package socket

import (
	"sync"
	"time"

	"github.com/wippyai/netcore/endpoint"
)

// Poll event bits, as in poll(2).
const (
	PollIn  int16 = 0x0001
	PollPri int16 = 0x0002
	PollOut int16 = 0x0004
	PollErr int16 = 0x0008
	PollHup int16 = 0x0010
)

// PollFD is one entry of a readiness query.
type PollFD struct {
	FD      int
	Events  int16
	Revents int16
}

// Option names a socket option understood by System.
type Option uint8

const (
	OptReuseAddr Option = iota + 1
	OptReusePort
	OptKeepAlive
	OptBroadcast
	OptOOBInline
	OptSendBuffer
	OptRecvBuffer
	OptNoDelay
	OptError
	OptSendTimeout
	OptRecvTimeout
)

var optionNames = map[Option]string{
	OptReuseAddr:   "SO_REUSEADDR",
	OptReusePort:   "SO_REUSEPORT",
	OptKeepAlive:   "SO_KEEPALIVE",
	OptBroadcast:   "SO_BROADCAST",
	OptOOBInline:   "SO_OOBINLINE",
	OptSendBuffer:  "SO_SNDBUF",
	OptRecvBuffer:  "SO_RCVBUF",
	OptNoDelay:     "TCP_NODELAY",
	OptError:       "SO_ERROR",
	OptSendTimeout: "SO_SNDTIMEO",
	OptRecvTimeout: "SO_RCVTIMEO",
}

func (o Option) String() string {
	if s, ok := optionNames[o]; ok {
		return s
	}
	return "unknown"
}

// ShutdownHow selects which direction Shutdown closes.
type ShutdownHow uint8

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)

// System is the OS capability the socket layer runs on. Errors are
// returned as syscall.Errno values so they can be classified.
// A negative Poll timeout waits indefinitely.
type System interface {
	Socket(family endpoint.Family) (int, error)
	Close(fd int) error
	Connect(fd int, ep endpoint.Endpoint) error
	Bind(fd int, ep endpoint.Endpoint) error
	Listen(fd int, backlog int) error
	Accept(fd int) (int, endpoint.Endpoint, error)
	Send(fd int, p []byte) (int, error)
	Recv(fd int, p []byte) (int, error)
	Shutdown(fd int, how ShutdownHow) error
	Poll(fds []PollFD, timeout time.Duration) (int, error)
	SetNonblock(fd int, nonblocking bool) error
	GetsockoptInt(fd int, opt Option) (int, error)
	SetsockoptInt(fd int, opt Option, value int) error
	GetsockoptLinger(fd int) (on bool, seconds int, err error)
	SetsockoptLinger(fd int, on bool, seconds int) error
	GetsockoptTimeval(fd int, opt Option) (time.Duration, error)
	SetsockoptTimeval(fd int, opt Option, d time.Duration) error
	Getsockname(fd int) (endpoint.Endpoint, error)
	Getpeername(fd int) (endpoint.Endpoint, error)
	Available(fd int) (int, error)
}

var (
	system   System = defaultSystem()
	systemMu sync.RWMutex
)

// SetSystem replaces the OS capability used for new sockets and returns the
// previous one. Existing sockets keep the System they were created with.
func SetSystem(s System) System {
	systemMu.Lock()
	defer systemMu.Unlock()
	prev := system
	if s == nil {
		s = defaultSystem()
	}
	system = s
	return prev
}

func currentSystem() System {
	systemMu.RLock()
	defer systemMu.RUnlock()
	return system
}
