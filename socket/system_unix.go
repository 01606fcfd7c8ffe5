//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package socket

import (
	"math"
	"net/netip"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wippyai/netcore/endpoint"
)

type unixSystem struct{}

func defaultSystem() System { return unixSystem{} }

func (unixSystem) Socket(family endpoint.Family) (int, error) {
	var domain int
	switch family {
	case endpoint.IPv4:
		domain = unix.AF_INET
	case endpoint.IPv6:
		domain = unix.AF_INET6
	case endpoint.FamilyLocal:
		domain = unix.AF_UNIX
	default:
		return -1, syscall.EAFNOSUPPORT
	}

	syscall.ForkLock.RLock()
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, err
	}
	return fd, nil
}

func (unixSystem) Close(fd int) error {
	return unix.Close(fd)
}

func (unixSystem) Connect(fd int, ep endpoint.Endpoint) error {
	sa, ok := toSockaddr(ep)
	if !ok {
		return syscall.EAFNOSUPPORT
	}
	return unix.Connect(fd, sa)
}

func (unixSystem) Bind(fd int, ep endpoint.Endpoint) error {
	sa, ok := toSockaddr(ep)
	if !ok {
		return syscall.EAFNOSUPPORT
	}
	return unix.Bind(fd, sa)
}

func (unixSystem) Listen(fd int, backlog int) error {
	return unix.Listen(fd, backlog)
}

func (unixSystem) Accept(fd int) (int, endpoint.Endpoint, error) {
	syscall.ForkLock.RLock()
	nfd, sa, err := unix.Accept(fd)
	if err == nil {
		unix.CloseOnExec(nfd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, endpoint.Endpoint{}, err
	}
	return nfd, fromSockaddr(sa), nil
}

func (unixSystem) Send(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (unixSystem) Recv(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (unixSystem) Shutdown(fd int, how ShutdownHow) error {
	var sysHow int
	switch how {
	case ShutdownRead:
		sysHow = unix.SHUT_RD
	case ShutdownWrite:
		sysHow = unix.SHUT_WR
	default:
		sysHow = unix.SHUT_RDWR
	}
	return unix.Shutdown(fd, sysHow)
}

func (unixSystem) Poll(fds []PollFD, timeout time.Duration) (int, error) {
	pfds := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		pfds[i] = unix.PollFd{Fd: int32(f.FD), Events: f.Events}
	}

	n, err := unix.Poll(pfds, pollMillis(timeout))
	for i := range fds {
		fds[i].Revents = pfds[i].Revents
	}
	return n, err
}

// pollMillis rounds up so a short positive timeout never becomes a
// non-blocking check.
func pollMillis(timeout time.Duration) int {
	switch {
	case timeout < 0:
		return -1
	case timeout == 0:
		return 0
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

func (unixSystem) SetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

func (unixSystem) GetsockoptInt(fd int, opt Option) (int, error) {
	level, name, ok := sockoptName(opt)
	if !ok {
		return 0, syscall.ENOPROTOOPT
	}
	return unix.GetsockoptInt(fd, level, name)
}

func (unixSystem) SetsockoptInt(fd int, opt Option, value int) error {
	level, name, ok := sockoptName(opt)
	if !ok {
		return syscall.ENOPROTOOPT
	}
	return unix.SetsockoptInt(fd, level, name, value)
}

func (unixSystem) GetsockoptLinger(fd int) (bool, int, error) {
	l, err := unix.GetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER)
	if err != nil {
		return false, 0, err
	}
	return l.Onoff != 0, int(l.Linger), nil
}

func (unixSystem) SetsockoptLinger(fd int, on bool, seconds int) error {
	l := unix.Linger{Linger: int32(seconds)}
	if on {
		l.Onoff = 1
	}
	return unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &l)
}

func (unixSystem) GetsockoptTimeval(fd int, opt Option) (time.Duration, error) {
	level, name, ok := sockoptName(opt)
	if !ok {
		return 0, syscall.ENOPROTOOPT
	}
	tv, err := unix.GetsockoptTimeval(fd, level, name)
	if err != nil {
		return 0, err
	}
	return time.Duration(tv.Nano()), nil
}

func (unixSystem) SetsockoptTimeval(fd int, opt Option, d time.Duration) error {
	level, name, ok := sockoptName(opt)
	if !ok {
		return syscall.ENOPROTOOPT
	}
	if d < 0 {
		d = 0
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, level, name, &tv)
}

func (unixSystem) Getsockname(fd int) (endpoint.Endpoint, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	return fromSockaddr(sa), nil
}

func (unixSystem) Getpeername(fd int) (endpoint.Endpoint, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	return fromSockaddr(sa), nil
}

func (unixSystem) Available(fd int) (int, error) {
	return unix.IoctlGetInt(fd, ioctlAvailable)
}

func sockoptName(opt Option) (level, name int, ok bool) {
	switch opt {
	case OptReuseAddr:
		return unix.SOL_SOCKET, unix.SO_REUSEADDR, true
	case OptReusePort:
		return unix.SOL_SOCKET, unix.SO_REUSEPORT, true
	case OptKeepAlive:
		return unix.SOL_SOCKET, unix.SO_KEEPALIVE, true
	case OptBroadcast:
		return unix.SOL_SOCKET, unix.SO_BROADCAST, true
	case OptOOBInline:
		return unix.SOL_SOCKET, unix.SO_OOBINLINE, true
	case OptSendBuffer:
		return unix.SOL_SOCKET, unix.SO_SNDBUF, true
	case OptRecvBuffer:
		return unix.SOL_SOCKET, unix.SO_RCVBUF, true
	case OptNoDelay:
		return unix.IPPROTO_TCP, unix.TCP_NODELAY, true
	case OptError:
		return unix.SOL_SOCKET, unix.SO_ERROR, true
	case OptSendTimeout:
		return unix.SOL_SOCKET, unix.SO_SNDTIMEO, true
	case OptRecvTimeout:
		return unix.SOL_SOCKET, unix.SO_RCVTIMEO, true
	default:
		return 0, 0, false
	}
}

func toSockaddr(ep endpoint.Endpoint) (unix.Sockaddr, bool) {
	switch ep.Family() {
	case endpoint.IPv4:
		return &unix.SockaddrInet4{Port: int(ep.Port()), Addr: ep.Addr().As4()}, true
	case endpoint.IPv6:
		return &unix.SockaddrInet6{Port: int(ep.Port()), Addr: ep.Addr().As16()}, true
	case endpoint.FamilyLocal:
		return &unix.SockaddrUnix{Name: ep.Path()}, true
	default:
		return nil, false
	}
}

func fromSockaddr(sa unix.Sockaddr) endpoint.Endpoint {
	switch t := sa.(type) {
	case *unix.SockaddrInet4:
		return endpoint.New(netip.AddrFrom4(t.Addr), uint16(t.Port))
	case *unix.SockaddrInet6:
		return endpoint.New(netip.AddrFrom16(t.Addr), uint16(t.Port))
	case *unix.SockaddrUnix:
		return endpoint.Local(t.Name)
	default:
		return endpoint.Endpoint{}
	}
}
