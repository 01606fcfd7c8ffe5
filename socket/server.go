package socket

import (
	"syscall"

	"go.uber.org/zap"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
)

// DefaultBacklog is used by Listen when no positive backlog is given.
const DefaultBacklog = 64

// ServerSocket is a listening socket. The zero value is null and acquires
// an OS socket of the right family on the first Bind.
type ServerSocket struct {
	Socket
}

// NewServerSocket creates an unbound server socket.
func NewServerSocket(family endpoint.Family) (ServerSocket, error) {
	h, err := acquire(family, RoleServer, neterrors.PhaseOpen)
	if err != nil {
		return ServerSocket{}, err
	}
	return ServerSocket{Socket{h: h}}, nil
}

// ServerSocketFrom returns a new server holder of s. It fails with
// InvalidConfiguration if s is a stream socket.
func ServerSocketFrom(s Socket) (ServerSocket, error) {
	if err := checkRole(s, RoleServer); err != nil {
		return ServerSocket{}, err
	}
	return ServerSocket{s.Clone()}, nil
}

// Assign makes s a holder of other's socket. It fails with
// InvalidConfiguration if other is a stream socket.
func (s *ServerSocket) Assign(other Socket) error {
	if err := checkRole(other, RoleServer); err != nil {
		return err
	}
	return s.Socket.assign(other)
}

// Move transfers the hold to the returned value and leaves s null.
func (s *ServerSocket) Move() ServerSocket {
	m := ServerSocket{s.Socket}
	s.h = nil
	return m
}

// Bind binds the socket to ep. Port 0 selects an ephemeral port; Address
// reports the one chosen. reuseAddress sets SO_REUSEADDR first on IP
// sockets.
func (s *ServerSocket) Bind(ep endpoint.Endpoint, reuseAddress bool) error {
	if ep.Family() == endpoint.FamilyUnspec {
		return neterrors.InvalidEndpoint(neterrors.PhaseBind, ep.String(), nil)
	}
	if s.h == nil {
		h, err := acquire(ep.Family(), RoleServer, neterrors.PhaseBind)
		if err != nil {
			return err
		}
		s.h = h
	}

	h, err := s.live(neterrors.PhaseBind)
	if err != nil {
		return err
	}
	if h.family != ep.Family() {
		return neterrors.New(neterrors.PhaseBind, neterrors.KindInvalidEndpoint).
			Endpoint(ep).
			Detail("%s endpoint for %s socket", ep.Family(), h.family).
			Build()
	}

	if reuseAddress && ep.Family() != endpoint.FamilyLocal {
		if err := s.SetReuseAddress(true); err != nil {
			return err
		}
	}

	if err := h.sys.Bind(h.fd, ep); err != nil {
		return mapErrno(neterrors.PhaseBind, err, ep)
	}
	Logger().Debug("socket bound", zap.Int("fd", h.fd), zap.Stringer("endpoint", ep))
	return nil
}

// Listen marks the socket as accepting connections. A backlog of zero or
// less uses DefaultBacklog.
func (s *ServerSocket) Listen(backlog int) error {
	h, err := s.live(neterrors.PhaseListen)
	if err != nil {
		return err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := h.sys.Listen(h.fd, backlog); err != nil {
		return mapErrno(neterrors.PhaseListen, err, nil)
	}
	return nil
}

// AcceptConnection returns the next pending connection as a connected
// stream socket with its own holder count. In blocking mode it waits up to
// the receive timeout; in non-blocking mode it returns ErrWouldBlock when
// nothing is pending.
func (s *ServerSocket) AcceptConnection() (StreamSocket, error) {
	h, err := s.live(neterrors.PhaseAccept)
	if err != nil {
		return StreamSocket{}, err
	}

	for {
		fd, peer, err := h.sys.Accept(h.fd)
		switch {
		case err == nil:
			return h.accepted(fd, peer)
		case isErrno(err, syscall.EINTR), isErrno(err, syscall.ECONNABORTED):
			continue
		case wouldBlock(err) && !h.blocking.Load():
			return StreamSocket{}, ErrWouldBlock
		default:
			return StreamSocket{}, mapErrno(neterrors.PhaseAccept, err, nil)
		}
	}
}

func (h *handle) accepted(fd int, peer endpoint.Endpoint) (StreamSocket, error) {
	// BSD accept(2) copies O_NONBLOCK from the listener; new sockets start blocking.
	if err := h.sys.SetNonblock(fd, false); err != nil {
		_ = h.sys.Close(fd)
		return StreamSocket{}, mapErrno(neterrors.PhaseAccept, err, nil)
	}
	h.metrics.accepted()
	conn := StreamSocket{Socket{h: adopt(h.sys, fd, h.family, RoleStream)}}

	Logger().Debug("connection accepted",
		zap.Int("listener", h.fd),
		zap.Int("fd", fd),
		zap.Stringer("peer", peer))

	if opts := h.accept; opts != nil && h.family != endpoint.FamilyLocal {
		if opts.noDelay {
			if err := conn.SetNoDelay(true); err != nil {
				Logger().Debug("set no-delay on accepted socket", zap.Error(err))
			}
		}
		if opts.keepAlive {
			if err := conn.SetKeepAlive(true); err != nil {
				Logger().Debug("set keep-alive on accepted socket", zap.Error(err))
			}
		}
	}
	return conn, nil
}
