package socket

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
	"github.com/wippyai/netcore/resource"
)

// Role distinguishes connected/connectable sockets from listeners.
type Role uint32

const (
	RoleNone Role = iota
	RoleStream
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleStream:
		return "stream"
	case RoleServer:
		return "server"
	default:
		return "none"
	}
}

// handles registers every open OS socket; its refcounts decide when the
// descriptor is closed.
var handles = newHandleTable()

func newHandleTable() *resource.Table {
	t := resource.NewTable()
	t.Subscribe(resource.ObserverFunc(observeHandle))
	return t
}

// observeHandle keeps metrics and the debug log in step with the table.
func observeHandle(e resource.Event) {
	h, ok := e.Value.(*handle)
	if !ok {
		return
	}
	switch e.Type {
	case resource.EventCreated:
		h.metrics.opened()
		Logger().Debug("socket acquired",
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Int("fd", h.fd),
			zap.Stringer("family", h.family),
			zap.Stringer("role", h.role))
	case resource.EventDropped:
		h.metrics.closed()
		Logger().Debug("socket released",
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Int("fd", h.fd),
			zap.Stringer("role", h.role))
	}
}

// LiveHandles returns the number of OS sockets currently held open.
func LiveHandles() int {
	return handles.Len()
}

// OpenSockets describes every OS socket currently held open, one line per
// socket, for leak reports.
func OpenSockets() []string {
	var open []*handle
	handles.Each(func(_ resource.Handle, _ uint32, v any) bool {
		if h, ok := v.(*handle); ok {
			open = append(open, h)
		}
		return true
	})

	lines := make([]string, 0, len(open))
	for _, h := range open {
		lines = append(lines, fmt.Sprintf("fd=%d %s %s refs=%d", h.fd, h.family, h.role, h.refs()))
	}
	return lines
}

// handle is one OS socket shared by every Socket value cloned from the same
// origin. It is open until the last holder releases it.
type handle struct {
	sys      System
	metrics  *Metrics
	accept   *acceptOptions
	id       resource.Handle
	fd       int
	family   endpoint.Family
	role     Role
	blocking atomic.Bool
	closed   atomic.Bool
}

// acceptOptions are applied to connections accepted by a server created
// from a Config.
type acceptOptions struct {
	noDelay   bool
	keepAlive bool
}

func acquire(family endpoint.Family, role Role, phase neterrors.Phase) (*handle, error) {
	sys := currentSystem()
	fd, err := sys.Socket(family)
	if err != nil {
		return nil, mapErrno(phase, err, nil)
	}
	return adopt(sys, fd, family, role), nil
}

// adopt takes ownership of an already open descriptor.
func adopt(sys System, fd int, family endpoint.Family, role Role) *handle {
	h := &handle{
		sys:     sys,
		metrics: currentMetrics(),
		fd:      fd,
		family:  family,
		role:    role,
	}
	h.blocking.Store(true)

	h.id = handles.Insert(uint32(role), h)
	return h
}

// retain adds a holder. It fails once the handle has been dropped.
func (h *handle) retain() bool {
	if h.closed.Load() {
		return false
	}
	return handles.RetainIf(h.id, h)
}

// release removes a holder and closes the descriptor with the last one.
func (h *handle) release() error {
	if h.closed.Load() {
		return nil
	}
	// The table slot may have been reused after an over-release.
	_, err := handles.ReleaseIf(h.id, h)
	if errors.Is(err, resource.ErrStale) {
		return nil
	}
	return err
}

func (h *handle) refs() int32 {
	refs, _ := handles.Refs(h.id)
	return refs
}

// Drop closes the OS socket. Called by the table on the last release.
func (h *handle) Drop() error {
	if h.closed.Swap(true) {
		return nil
	}
	if err := h.sys.Close(h.fd); err != nil {
		Logger().Debug("socket close failed", zap.Int("fd", h.fd), zap.Error(err))
		return mapErrno(neterrors.PhaseClose, err, nil)
	}
	return nil
}

func (h *handle) setBlocking(blocking bool) error {
	if err := h.sys.SetNonblock(h.fd, !blocking); err != nil {
		return mapErrno(neterrors.PhaseOption, err, nil)
	}
	h.blocking.Store(blocking)
	return nil
}

// wait polls the descriptor alone for events.
func (h *handle) wait(events int16, timeout time.Duration, phase neterrors.Phase) (int16, error) {
	fds := []PollFD{{FD: h.fd, Events: events}}
	n, err := pollRetry(h.sys, fds, timeout)
	if err != nil {
		return 0, mapErrno(phase, err, nil)
	}
	if n == 0 {
		return 0, nil
	}
	return fds[0].Revents, nil
}
