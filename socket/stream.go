package socket

import (
	"io"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
	"github.com/wippyai/netcore/fifo"
)

// StreamSocket is a connection-oriented socket. The zero value is null and
// acquires an OS socket of the right family on the first Connect.
type StreamSocket struct {
	Socket
}

var (
	_ io.Reader = (*StreamSocket)(nil)
	_ io.Writer = (*StreamSocket)(nil)
)

// NewStreamSocket creates an unconnected stream socket.
func NewStreamSocket(family endpoint.Family) (StreamSocket, error) {
	h, err := acquire(family, RoleStream, neterrors.PhaseOpen)
	if err != nil {
		return StreamSocket{}, err
	}
	return StreamSocket{Socket{h: h}}, nil
}

// StreamSocketFrom returns a new stream holder of s. It fails with
// InvalidConfiguration if s is a server socket.
func StreamSocketFrom(s Socket) (StreamSocket, error) {
	if err := checkRole(s, RoleStream); err != nil {
		return StreamSocket{}, err
	}
	return StreamSocket{s.Clone()}, nil
}

// Assign makes s a holder of other's socket and releases the socket s held
// before. It fails with InvalidConfiguration if other is a server socket.
func (s *StreamSocket) Assign(other Socket) error {
	if err := checkRole(other, RoleStream); err != nil {
		return err
	}
	return s.Socket.assign(other)
}

// Move transfers the hold to the returned value and leaves s null.
func (s *StreamSocket) Move() StreamSocket {
	m := StreamSocket{s.Socket}
	s.h = nil
	return m
}

// ensure returns the handle for an operation targeting ep, creating the
// OS socket if s is null.
func (s *StreamSocket) ensure(ep endpoint.Endpoint, phase neterrors.Phase) (*handle, error) {
	if ep.Family() == endpoint.FamilyUnspec {
		return nil, neterrors.InvalidEndpoint(phase, ep.String(), nil)
	}
	if s.h == nil {
		h, err := acquire(ep.Family(), RoleStream, phase)
		if err != nil {
			return nil, err
		}
		s.h = h
		return h, nil
	}

	h, err := s.live(phase)
	if err != nil {
		return nil, err
	}
	if h.family != ep.Family() {
		return nil, neterrors.New(phase, neterrors.KindInvalidEndpoint).
			Endpoint(ep).
			Detail("%s endpoint for %s socket", ep.Family(), h.family).
			Build()
	}
	return h, nil
}

// Connect establishes a connection to ep, waiting until it completes even
// when the socket is in non-blocking mode. Use ConnectNB to start a
// connection without waiting.
func (s *StreamSocket) Connect(ep endpoint.Endpoint) error {
	h, err := s.ensure(ep, neterrors.PhaseConnect)
	if err != nil {
		return err
	}

	start := clk.Now()
	err = h.sys.Connect(h.fd, ep)
	switch {
	case err == nil:
	case isErrno(err, syscall.EINTR), isErrno(err, syscall.EINPROGRESS):
		err = h.finishConnect(ep, infinite)
	default:
		err = mapErrno(neterrors.PhaseConnect, err, ep)
	}
	return h.connected(ep, start, err)
}

// ConnectTimeout connects to ep, giving up with TimedOut if the connection
// is not established within timeout. The blocking mode is preserved.
func (s *StreamSocket) ConnectTimeout(ep endpoint.Endpoint, timeout time.Duration) error {
	h, err := s.ensure(ep, neterrors.PhaseConnect)
	if err != nil {
		return err
	}
	if timeout < 0 {
		timeout = 0
	}

	wasBlocking := h.blocking.Load()
	if err := h.setBlocking(false); err != nil {
		return err
	}

	start := clk.Now()
	err = h.sys.Connect(h.fd, ep)
	switch {
	case err == nil:
	case isErrno(err, syscall.EINTR), isErrno(err, syscall.EINPROGRESS):
		err = h.finishConnect(ep, timeout)
	default:
		err = mapErrno(neterrors.PhaseConnect, err, ep)
	}

	if restoreErr := h.setBlocking(wasBlocking); err == nil {
		err = restoreErr
	}
	return h.connected(ep, start, err)
}

// ConnectNB starts connecting to ep and returns without waiting. The socket
// is left in non-blocking mode; completion shows as write readiness.
func (s *StreamSocket) ConnectNB(ep endpoint.Endpoint) error {
	h, err := s.ensure(ep, neterrors.PhaseConnect)
	if err != nil {
		return err
	}
	if err := h.setBlocking(false); err != nil {
		return err
	}

	err = h.sys.Connect(h.fd, ep)
	if err == nil || isErrno(err, syscall.EINPROGRESS) {
		Logger().Debug("connect started", zap.Int("fd", h.fd), zap.Stringer("endpoint", ep))
		return nil
	}
	return h.connected(ep, clk.Now(), mapErrno(neterrors.PhaseConnect, err, ep))
}

// finishConnect waits for an in-progress connect and reports its result.
func (h *handle) finishConnect(ep endpoint.Endpoint, timeout time.Duration) error {
	revents, err := h.wait(PollOut, timeout, neterrors.PhaseConnect)
	if err != nil {
		return err
	}
	if revents == 0 {
		return neterrors.New(neterrors.PhaseConnect, neterrors.KindTimedOut).
			Endpoint(ep).
			Detail("not connected after %s", timeout).
			Build()
	}

	soerr, err := h.sys.GetsockoptInt(h.fd, OptError)
	if err != nil {
		return mapErrno(neterrors.PhaseConnect, err, ep)
	}
	if soerr != 0 {
		return mapErrno(neterrors.PhaseConnect, syscall.Errno(soerr), ep)
	}
	return nil
}

// connected records the outcome of a connect attempt and passes err through.
func (h *handle) connected(ep endpoint.Endpoint, start time.Time, err error) error {
	outcome := outcomeOK
	if err != nil {
		kind, _ := neterrors.KindOf(err)
		switch kind {
		case neterrors.KindConnectionRefused:
			outcome = outcomeRefused
		case neterrors.KindTimedOut:
			outcome = outcomeTimeout
		default:
			outcome = outcomeError
		}
	}
	h.metrics.connected(outcome, clk.Since(start))

	Logger().Debug("connect",
		zap.Int("fd", h.fd),
		zap.Stringer("endpoint", ep),
		zap.String("outcome", outcome),
		zap.Error(err))
	return err
}

// SendBytes sends from p once and returns the number of bytes accepted by
// the OS. In blocking mode it waits for buffer space up to the send
// timeout; in non-blocking mode it may return 0.
func (s *StreamSocket) SendBytes(p []byte) (int, error) {
	h, err := s.live(neterrors.PhaseSend)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	for {
		n, err := h.sys.Send(h.fd, p)
		switch {
		case err == nil:
			h.metrics.sent(n)
			return n, nil
		case isErrno(err, syscall.EINTR):
			continue
		case wouldBlock(err) && !h.blocking.Load():
			return 0, nil
		default:
			return 0, mapErrno(neterrors.PhaseSend, err, nil)
		}
	}
}

// ReceiveBytes reads once into p. A return of 0 with no error means the
// peer shut down its sending side. In blocking mode it waits up to the
// receive timeout; in non-blocking mode it returns ErrWouldBlock when no
// data is pending.
func (s *StreamSocket) ReceiveBytes(p []byte) (int, error) {
	h, err := s.live(neterrors.PhaseReceive)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	for {
		n, err := h.sys.Recv(h.fd, p)
		switch {
		case err == nil:
			h.metrics.received(n)
			return n, nil
		case isErrno(err, syscall.EINTR):
			continue
		case wouldBlock(err) && !h.blocking.Load():
			return 0, ErrWouldBlock
		default:
			return 0, mapErrno(neterrors.PhaseReceive, err, nil)
		}
	}
}

// SendBuffer sends the readable bytes of f and drains what was sent.
func (s *StreamSocket) SendBuffer(f *fifo.RingBuffer) (int, error) {
	if _, err := s.live(neterrors.PhaseSend); err != nil {
		return 0, err
	}
	if f.IsEmpty() {
		return 0, nil
	}
	n, err := s.SendBytes(f.Readable())
	f.Drain(n)
	return n, err
}

// ReceiveBuffer receives into the free space of f and commits what arrived.
func (s *StreamSocket) ReceiveBuffer(f *fifo.RingBuffer) (int, error) {
	if _, err := s.live(neterrors.PhaseReceive); err != nil {
		return 0, err
	}
	if f.IsFull() {
		return 0, nil
	}
	n, err := s.ReceiveBytes(f.Writable())
	f.Advance(n)
	return n, err
}

// Read implements io.Reader; an orderly shutdown by the peer is io.EOF.
func (s *StreamSocket) Read(p []byte) (int, error) {
	n, err := s.ReceiveBytes(p)
	if err == nil && n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, err
}

// Write implements io.Writer. It sends all of p, waiting for buffer space
// when the socket is non-blocking.
func (s *StreamSocket) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := s.SendBytes(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			if _, err := s.h.wait(PollOut, infinite, neterrors.PhaseSend); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// ShutdownReceive disables further receives.
func (s *StreamSocket) ShutdownReceive() error {
	return s.shutdown(ShutdownRead)
}

// ShutdownSend disables further sends; the peer sees an orderly shutdown.
func (s *StreamSocket) ShutdownSend() error {
	return s.shutdown(ShutdownWrite)
}

// Shutdown disables both directions.
func (s *StreamSocket) Shutdown() error {
	return s.shutdown(ShutdownBoth)
}

func (s *StreamSocket) shutdown(how ShutdownHow) error {
	h, err := s.live(neterrors.PhaseClose)
	if err != nil {
		return err
	}
	if err := h.sys.Shutdown(h.fd, how); err != nil {
		return mapErrno(neterrors.PhaseClose, err, nil)
	}
	return nil
}
