package socket

import (
	"time"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
)

// Config holds defaults for sockets created through Dial and Listen.
// Use builder methods to adjust it.
type Config struct {
	backlog        int
	connectTimeout time.Duration
	reuseAddress   bool
	noDelay        bool
	keepAlive      bool
}

// DefaultConfig returns the defaults: backlog 64, blocking connects without
// a bound, SO_REUSEADDR on listeners.
func DefaultConfig() *Config {
	return &Config{
		backlog:      DefaultBacklog,
		reuseAddress: true,
	}
}

// WithBacklog sets the listen backlog.
func (c *Config) WithBacklog(n int) *Config {
	c.backlog = n
	return c
}

// WithConnectTimeout bounds Dial. Zero connects without a bound.
func (c *Config) WithConnectTimeout(d time.Duration) *Config {
	c.connectTimeout = d
	return c
}

// WithReuseAddress sets SO_REUSEADDR on listeners before binding.
func (c *Config) WithReuseAddress(on bool) *Config {
	c.reuseAddress = on
	return c
}

// WithNoDelay sets TCP_NODELAY on dialed and accepted IP sockets.
func (c *Config) WithNoDelay(on bool) *Config {
	c.noDelay = on
	return c
}

// WithKeepAlive sets SO_KEEPALIVE on dialed and accepted IP sockets.
func (c *Config) WithKeepAlive(on bool) *Config {
	c.keepAlive = on
	return c
}

func (c *Config) Backlog() int                  { return c.backlog }
func (c *Config) ConnectTimeout() time.Duration { return c.connectTimeout }
func (c *Config) ReuseAddress() bool            { return c.reuseAddress }
func (c *Config) NoDelay() bool                 { return c.noDelay }
func (c *Config) KeepAlive() bool               { return c.keepAlive }

// Validate rejects negative backlog and timeout values.
func (c *Config) Validate() error {
	if c.backlog < 0 {
		return neterrors.InvalidConfiguration(neterrors.PhaseListen, "negative backlog")
	}
	if c.connectTimeout < 0 {
		return neterrors.InvalidConfiguration(neterrors.PhaseConnect, "negative connect timeout")
	}
	return nil
}

// Dial creates a stream socket connected to ep.
func (c *Config) Dial(ep endpoint.Endpoint) (StreamSocket, error) {
	if err := c.Validate(); err != nil {
		return StreamSocket{}, err
	}

	var s StreamSocket
	var err error
	if c.connectTimeout > 0 {
		err = s.ConnectTimeout(ep, c.connectTimeout)
	} else {
		err = s.Connect(ep)
	}
	if err != nil {
		s.Close()
		return StreamSocket{}, err
	}

	if ep.Family() != endpoint.FamilyLocal {
		if err := c.apply(&s.Socket); err != nil {
			s.Close()
			return StreamSocket{}, err
		}
	}
	return s, nil
}

func (c *Config) apply(s *Socket) error {
	if c.noDelay {
		if err := s.SetNoDelay(true); err != nil {
			return err
		}
	}
	if c.keepAlive {
		if err := s.SetKeepAlive(true); err != nil {
			return err
		}
	}
	return nil
}

// Listen creates a server socket bound to ep and listening. Connections it
// accepts inherit the no-delay and keep-alive settings.
func (c *Config) Listen(ep endpoint.Endpoint) (ServerSocket, error) {
	if err := c.Validate(); err != nil {
		return ServerSocket{}, err
	}

	var s ServerSocket
	if err := s.Bind(ep, c.reuseAddress); err != nil {
		s.Close()
		return ServerSocket{}, err
	}
	if err := s.Listen(c.backlog); err != nil {
		s.Close()
		return ServerSocket{}, err
	}
	if c.noDelay || c.keepAlive {
		s.h.accept = &acceptOptions{noDelay: c.noDelay, keepAlive: c.keepAlive}
	}
	return s, nil
}

// Dial connects to ep with the default configuration.
func Dial(ep endpoint.Endpoint) (StreamSocket, error) {
	return DefaultConfig().Dial(ep)
}

// DialTimeout connects to ep, failing with TimedOut after timeout.
func DialTimeout(ep endpoint.Endpoint, timeout time.Duration) (StreamSocket, error) {
	return DefaultConfig().WithConnectTimeout(timeout).Dial(ep)
}

// Listen binds a server socket to ep and starts listening with backlog.
func Listen(ep endpoint.Endpoint, backlog int) (ServerSocket, error) {
	return DefaultConfig().WithBacklog(backlog).Listen(ep)
}
