package sockettest

import (
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/netcore/endpoint"
	"github.com/wippyai/netcore/socket"
)

// pollInterval bounds how long the server goroutines wait before checking
// for shutdown.
const pollInterval = 50 * time.Millisecond

// EchoServer accepts connections and writes back every byte it receives.
type EchoServer struct {
	server socket.ServerSocket
	ep     endpoint.Endpoint
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	errMu  sync.Mutex
	err    error
}

// NewEchoServer starts an echo server on an ephemeral IPv4 loopback port.
func NewEchoServer() (*EchoServer, error) {
	return NewEchoServerAt(endpoint.Loopback(endpoint.IPv4, 0))
}

// NewEchoServerAt starts an echo server bound to ep.
func NewEchoServerAt(ep endpoint.Endpoint) (*EchoServer, error) {
	srv, err := socket.Listen(ep, 0)
	if err != nil {
		return nil, err
	}

	bound, err := srv.Address()
	if err != nil {
		return nil, multierr.Append(err, srv.Close())
	}
	if ep.Family() == endpoint.FamilyLocal {
		bound = ep
	}

	s := &EchoServer{
		server: srv,
		ep:     bound,
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s, nil
}

// Endpoint returns the address clients connect to.
func (s *EchoServer) Endpoint() endpoint.Endpoint {
	return s.ep
}

// Port returns the bound port; 0 for local endpoints.
func (s *EchoServer) Port() uint16 {
	return s.ep.Port()
}

// Close stops the server, waits for its connections to finish and
// releases the listening socket. It returns errors seen while serving.
func (s *EchoServer) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()

		err = s.server.Close()
		if s.ep.Family() == endpoint.FamilyLocal && s.ep.Path() != "" {
			if rmErr := os.Remove(s.ep.Path()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = multierr.Append(err, rmErr)
			}
		}

		s.errMu.Lock()
		err = multierr.Append(s.err, err)
		s.errMu.Unlock()
	})
	return err
}

func (s *EchoServer) stopping() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *EchoServer) record(err error) {
	s.errMu.Lock()
	s.err = multierr.Append(s.err, err)
	s.errMu.Unlock()
}

func (s *EchoServer) run() {
	defer s.wg.Done()

	for !s.stopping() {
		ready, err := s.server.Poll(pollInterval, socket.SelectRead)
		if err != nil {
			s.record(err)
			return
		}
		if !ready {
			continue
		}

		conn, err := s.server.AcceptConnection()
		if err != nil {
			socket.Logger().Debug("echo accept failed", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *EchoServer) serve(conn socket.StreamSocket) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, 256)
	for !s.stopping() {
		ready, err := conn.Poll(pollInterval, socket.SelectRead)
		if err != nil {
			s.record(err)
			return
		}
		if !ready {
			continue
		}

		n, err := conn.ReceiveBytes(buf)
		if err != nil || n == 0 {
			return
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			return
		}
	}
}
