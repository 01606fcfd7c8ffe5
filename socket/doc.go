// Package socket provides handle-based stream and server sockets with
// uniform blocking, timeout, and readiness semantics.
//
// # Sockets and handles
//
// Socket, StreamSocket and ServerSocket are values referring to a shared
// OS socket. Clone adds a holder; Close removes one; the descriptor is
// closed when the last holder is gone:
//
//	conn, err := socket.Dial(ep)
//	shared := conn.Clone()
//	conn.Close()   // still open
//	shared.Close() // closed
//
// Two values are Equal when they refer to the same OS socket. Assigning a
// server socket to a stream socket, or the reverse, fails with
// InvalidConfiguration.
//
// # Connecting
//
//	var s socket.StreamSocket
//	err := s.ConnectTimeout(ep, 2*time.Second)
//	if errors.Is(err, neterrors.ErrConnectionRefused) { ... }
//	if errors.Is(err, neterrors.ErrTimedOut) { ... }
//
// # Serving
//
//	srv, err := socket.Listen(endpoint.Loopback(endpoint.IPv4, 0), 0)
//	conn, err := srv.AcceptConnection()
//
// # Readiness
//
// Poll waits on one socket; Select waits on many and narrows the lists to
// the ready members:
//
//	readable := []socket.Socket{a.Socket, b.Socket}
//	n, err := socket.Select(&readable, nil, nil, time.Second)
//
// # Buffers
//
// SendBuffer and ReceiveBuffer move data between a socket and a
// fifo.RingBuffer, firing its edge notifications.
//
// # Platform
//
// All OS access goes through the System interface. The default uses
// golang.org/x/sys/unix; SetSystem swaps it, which tests use to inject
// faults.
package socket
