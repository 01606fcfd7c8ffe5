// Package netcore provides handle-based stream sockets with explicit
// lifecycle control, readiness polling, and an edge-notifying byte FIFO.
//
// A socket value wraps a shared, reference-counted OS socket handle. Copies
// made through the provided constructors hold the same handle; the OS socket
// is closed exactly once, when its last holder releases it.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	netcore/
//	├── socket/          Socket, StreamSocket, ServerSocket, Select, options
//	├── endpoint/        IPv4, IPv6 and unix-domain endpoints, resolution
//	├── fifo/            Fixed-capacity ring buffer with edge notifications
//	├── resource/        Reference-counted handle table
//	├── errors/          Structured error types (phase + kind)
//	├── sockettest/      Echo server fixture for tests
//	└── cmd/sockcat/     Command line client, echo server and TUI
//
// # Quick Start
//
// Connect, send, and wait for a reply:
//
//	ss, err := socket.DialTimeout(ep, time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ss.Close()
//
//	ss.SendBytes([]byte("hello"))
//	if ready, _ := ss.Poll(time.Second, socket.SelectRead); ready {
//	    n, _ := ss.ReceiveBytes(buf)
//	    fmt.Println(string(buf[:n]))
//	}
//
// Serve connections:
//
//	srv, err := socket.Listen(endpoint.Any(endpoint.IPv4), 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//
//	conn, err := srv.AcceptConnection()
//
// # Errors
//
// Every failure is an *errors.Error carrying the failing phase and one of a
// closed set of kinds. Match kinds with errors.Is against the sentinels in
// package errors; the OS errno stays reachable through errors.As.
//
// # Thread Safety
//
// A socket handle may be shared across goroutines; holder bookkeeping is
// synchronized. A single Socket value is not safe for concurrent mutation
// (Assign, Move, Close). RingBuffer is not synchronized and notifies its
// observers synchronously on the mutating goroutine.
package netcore
