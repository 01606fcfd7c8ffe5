package socket

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
)

// SelectMode selects the readiness conditions Poll waits for.
type SelectMode uint8

const (
	SelectRead SelectMode = 1 << iota
	SelectWrite
	SelectError
)

// Socket is a value referring to a shared OS socket. The zero value is a
// null socket. Clone adds a holder; Close removes this value's hold and the
// OS socket is closed when the last holder is gone.
//
// Plain assignment copies the reference without adding a holder, so only
// one of the copies may be closed. Use Clone to hand out independent
// holders.
type Socket struct {
	h *handle
}

// live returns the handle or a ResourceUnavailable error.
func (s *Socket) live(phase neterrors.Phase) (*handle, error) {
	if s.h == nil || s.h.closed.Load() {
		return nil, neterrors.Unavailable(phase)
	}
	return s.h, nil
}

// IsNull reports whether s refers to no socket.
func (s *Socket) IsNull() bool {
	return s.h == nil
}

// IsOpen reports whether s refers to an open socket.
func (s *Socket) IsOpen() bool {
	return s.h != nil && !s.h.closed.Load()
}

// Equal reports whether both values refer to the same OS socket.
func (s *Socket) Equal(other Socket) bool {
	return s.h == other.h
}

// Clone returns a new holder of the same socket. Cloning a null or closed
// socket returns a null socket.
func (s *Socket) Clone() Socket {
	if s.h == nil || !s.h.retain() {
		return Socket{}
	}
	return Socket{h: s.h}
}

// Assign makes s a holder of other's socket and releases the socket s held
// before. Any role is accepted.
func (s *Socket) Assign(other Socket) error {
	return s.assign(other)
}

func (s *Socket) assign(other Socket) error {
	if s.h == other.h {
		return nil
	}
	next := other.Clone()
	if other.h != nil && next.h == nil {
		return neterrors.Unavailable(neterrors.PhaseAssign)
	}
	prev := Socket{h: s.h}
	s.h = next.h
	return prev.Close()
}

func checkRole(s Socket, want Role) error {
	if s.h == nil || s.h.role == want {
		return nil
	}
	return neterrors.InvalidConfiguration(neterrors.PhaseAssign,
		fmt.Sprintf("cannot use %s socket as %s socket", s.h.role, want))
}

// Close releases this value's hold. The OS socket is closed when no other
// holder remains. Close on a null socket is a no-op.
func (s *Socket) Close() error {
	h := s.h
	if h == nil {
		return nil
	}
	s.h = nil
	return h.release()
}

// Family returns the address family, or FamilyUnspec for a null socket.
func (s *Socket) Family() endpoint.Family {
	if s.h == nil {
		return endpoint.FamilyUnspec
	}
	return s.h.family
}

// Role returns the role the socket was created with.
func (s *Socket) Role() Role {
	if s.h == nil {
		return RoleNone
	}
	return s.h.role
}

// FD returns the OS descriptor, or -1 for a null or closed socket.
func (s *Socket) FD() int {
	if !s.IsOpen() {
		return -1
	}
	return s.h.fd
}

// Refs returns the number of holders of the underlying socket.
func (s *Socket) Refs() int {
	if s.h == nil {
		return 0
	}
	return int(s.h.refs())
}

// Poll waits up to timeout for the socket to become ready in mode and
// reports whether it did. A zero or negative timeout checks without
// waiting.
func (s *Socket) Poll(timeout time.Duration, mode SelectMode) (bool, error) {
	h, err := s.live(neterrors.PhasePoll)
	if err != nil {
		return false, err
	}
	if timeout < 0 {
		timeout = 0
	}

	revents, err := h.wait(modeEvents(mode), timeout, neterrors.PhasePoll)
	if err != nil {
		return false, err
	}
	return revents != 0, nil
}

func modeEvents(mode SelectMode) int16 {
	var events int16
	if mode&SelectRead != 0 {
		events |= PollIn
	}
	if mode&SelectWrite != 0 {
		events |= PollOut
	}
	if mode&SelectError != 0 {
		events |= PollPri
	}
	return events
}

// SetBlocking switches between blocking and non-blocking mode.
func (s *Socket) SetBlocking(blocking bool) error {
	h, err := s.live(neterrors.PhaseOption)
	if err != nil {
		return err
	}
	return h.setBlocking(blocking)
}

// GetBlocking reports whether the socket is in blocking mode.
func (s *Socket) GetBlocking() bool {
	if s.h == nil {
		return true
	}
	return s.h.blocking.Load()
}

// Available returns the number of bytes that can be read without blocking.
func (s *Socket) Available() (int, error) {
	h, err := s.live(neterrors.PhaseReceive)
	if err != nil {
		return 0, err
	}
	n, err := h.sys.Available(h.fd)
	if err != nil {
		return 0, mapErrno(neterrors.PhaseReceive, err, nil)
	}
	return n, nil
}

// Address returns the local endpoint the socket is bound to.
func (s *Socket) Address() (endpoint.Endpoint, error) {
	h, err := s.live(neterrors.PhaseAddress)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	ep, err := h.sys.Getsockname(h.fd)
	if err != nil {
		return endpoint.Endpoint{}, mapErrno(neterrors.PhaseAddress, err, nil)
	}
	return ep, nil
}

// PeerAddress returns the remote endpoint of a connected socket.
func (s *Socket) PeerAddress() (endpoint.Endpoint, error) {
	h, err := s.live(neterrors.PhaseAddress)
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	ep, err := h.sys.Getpeername(h.fd)
	if err != nil {
		return endpoint.Endpoint{}, mapErrno(neterrors.PhaseAddress, err, nil)
	}
	return ep, nil
}

func (s *Socket) String() string {
	if s.h == nil {
		return "socket(null)"
	}
	state := "open"
	if s.h.closed.Load() {
		state = "closed"
	}
	return s.h.role.String() + "/" + s.h.family.String() + " " + state
}

// CloseAll closes every socket and combines the errors.
func CloseAll(socks ...*Socket) error {
	var err error
	for _, s := range socks {
		if s != nil {
			err = multierr.Append(err, s.Close())
		}
	}
	return err
}
