package socket

import (
	"math"
	"syscall"
	"time"

	neterrors "github.com/wippyai/netcore/errors"
)

func (s *Socket) setInt(opt Option, value int) error {
	h, err := s.live(neterrors.PhaseOption)
	if err != nil {
		return err
	}
	if err := h.sys.SetsockoptInt(h.fd, opt, value); err != nil {
		return optionError("set", opt, err)
	}
	return nil
}

func (s *Socket) getInt(opt Option) (int, error) {
	h, err := s.live(neterrors.PhaseOption)
	if err != nil {
		return 0, err
	}
	v, err := h.sys.GetsockoptInt(h.fd, opt)
	if err != nil {
		return 0, optionError("get", opt, err)
	}
	return v, nil
}

func (s *Socket) setBool(opt Option, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return s.setInt(opt, v)
}

func (s *Socket) getBool(opt Option) (bool, error) {
	v, err := s.getInt(opt)
	return v != 0, err
}

func optionError(verb string, opt Option, err error) error {
	mapped := mapErrno(neterrors.PhaseOption, err, nil)
	if e, ok := mapped.(*neterrors.Error); ok {
		e.Detail = verb + " " + opt.String()
	}
	return mapped
}

// SetLinger configures SO_LINGER.
func (s *Socket) SetLinger(on bool, seconds int) error {
	h, err := s.live(neterrors.PhaseOption)
	if err != nil {
		return err
	}
	if seconds < 0 {
		return neterrors.InvalidConfiguration(neterrors.PhaseOption, "negative linger time")
	}
	if seconds > math.MaxInt32 {
		return neterrors.InvalidConfiguration(neterrors.PhaseOption, "linger time overflows l_linger")
	}
	if err := h.sys.SetsockoptLinger(h.fd, on, seconds); err != nil {
		return mapErrno(neterrors.PhaseOption, err, nil)
	}
	return nil
}

// Linger returns the SO_LINGER setting.
func (s *Socket) Linger() (on bool, seconds int, err error) {
	h, err := s.live(neterrors.PhaseOption)
	if err != nil {
		return false, 0, err
	}
	on, seconds, err = h.sys.GetsockoptLinger(h.fd)
	if err != nil {
		return false, 0, mapErrno(neterrors.PhaseOption, err, nil)
	}
	return on, seconds, nil
}

// SetNoDelay toggles TCP_NODELAY.
func (s *Socket) SetNoDelay(on bool) error { return s.setBool(OptNoDelay, on) }

// NoDelay reports TCP_NODELAY.
func (s *Socket) NoDelay() (bool, error) { return s.getBool(OptNoDelay) }

// SetKeepAlive toggles SO_KEEPALIVE.
func (s *Socket) SetKeepAlive(on bool) error { return s.setBool(OptKeepAlive, on) }

// KeepAlive reports SO_KEEPALIVE.
func (s *Socket) KeepAlive() (bool, error) { return s.getBool(OptKeepAlive) }

// SetOOBInline toggles SO_OOBINLINE.
func (s *Socket) SetOOBInline(on bool) error { return s.setBool(OptOOBInline, on) }

// OOBInline reports SO_OOBINLINE.
func (s *Socket) OOBInline() (bool, error) { return s.getBool(OptOOBInline) }

func (s *Socket) SetReuseAddress(on bool) error { return s.setBool(OptReuseAddr, on) }
func (s *Socket) ReuseAddress() (bool, error)   { return s.getBool(OptReuseAddr) }
func (s *Socket) SetReusePort(on bool) error    { return s.setBool(OptReusePort, on) }
func (s *Socket) ReusePort() (bool, error)      { return s.getBool(OptReusePort) }
func (s *Socket) SetBroadcast(on bool) error    { return s.setBool(OptBroadcast, on) }
func (s *Socket) Broadcast() (bool, error)      { return s.getBool(OptBroadcast) }

// SetSendBufferSize requests a send buffer size. The OS may adjust it;
// SendBufferSize reports the value in effect.
func (s *Socket) SetSendBufferSize(size int) error {
	if size <= 0 {
		return neterrors.InvalidConfiguration(neterrors.PhaseOption, "buffer size must be positive")
	}
	return s.setInt(OptSendBuffer, size)
}

func (s *Socket) SendBufferSize() (int, error) { return s.getInt(OptSendBuffer) }

// SetReceiveBufferSize requests a receive buffer size. The OS may adjust it.
func (s *Socket) SetReceiveBufferSize(size int) error {
	if size <= 0 {
		return neterrors.InvalidConfiguration(neterrors.PhaseOption, "buffer size must be positive")
	}
	return s.setInt(OptRecvBuffer, size)
}

func (s *Socket) ReceiveBufferSize() (int, error) { return s.getInt(OptRecvBuffer) }

// SetSendTimeout bounds blocking sends. Zero disables the bound.
func (s *Socket) SetSendTimeout(d time.Duration) error {
	return s.setTimeval(OptSendTimeout, d)
}

func (s *Socket) SendTimeout() (time.Duration, error) {
	return s.getTimeval(OptSendTimeout)
}

// SetReceiveTimeout bounds blocking receives and accepts. Zero disables
// the bound.
func (s *Socket) SetReceiveTimeout(d time.Duration) error {
	return s.setTimeval(OptRecvTimeout, d)
}

func (s *Socket) ReceiveTimeout() (time.Duration, error) {
	return s.getTimeval(OptRecvTimeout)
}

func (s *Socket) setTimeval(opt Option, d time.Duration) error {
	h, err := s.live(neterrors.PhaseOption)
	if err != nil {
		return err
	}
	if d < 0 {
		return neterrors.InvalidConfiguration(neterrors.PhaseOption, "negative timeout")
	}
	if err := h.sys.SetsockoptTimeval(h.fd, opt, d); err != nil {
		return mapErrno(neterrors.PhaseOption, err, nil)
	}
	return nil
}

func (s *Socket) getTimeval(opt Option) (time.Duration, error) {
	h, err := s.live(neterrors.PhaseOption)
	if err != nil {
		return 0, err
	}
	d, err := h.sys.GetsockoptTimeval(h.fd, opt)
	if err != nil {
		return 0, mapErrno(neterrors.PhaseOption, err, nil)
	}
	return d, nil
}

// SocketError reads and clears the pending error (SO_ERROR). It returns
// nil when none is pending.
func (s *Socket) SocketError() error {
	v, err := s.getInt(OptError)
	if err != nil {
		return err
	}
	if v == 0 {
		return nil
	}
	return mapErrno(neterrors.PhaseOption, syscall.Errno(v), nil)
}
