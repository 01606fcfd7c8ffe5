package socket

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/netcore/endpoint"
	neterrors "github.com/wippyai/netcore/errors"
)

func TestHandle_ClosedOnceByLastHolder(t *testing.T) {
	f := useFakeSystem(t)
	base := LiveHandles()

	s, err := NewStreamSocket(endpoint.IPv4)
	if err != nil {
		t.Fatalf("NewStreamSocket: %v", err)
	}
	fd := s.FD()

	c1 := s.Clone()
	c2 := c1.Clone()
	if got := s.Refs(); got != 3 {
		t.Fatalf("Refs() = %d, want 3", got)
	}
	if LiveHandles() != base+1 {
		t.Fatalf("LiveHandles() = %d, want %d", LiveHandles(), base+1)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.closeCount(fd) != 0 {
		t.Fatal("OS socket closed while a holder remains")
	}
	if !c2.IsOpen() {
		t.Fatal("remaining holder should see an open socket")
	}

	if err := c2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.closeCount(fd) != 1 {
		t.Fatalf("OS close count = %d, want 1", f.closeCount(fd))
	}

	// Closing a released value again is a no-op
	if err := c2.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if f.closeCount(fd) != 1 {
		t.Fatalf("OS close count = %d after double Close", f.closeCount(fd))
	}
	if LiveHandles() != base {
		t.Fatalf("LiveHandles() = %d, want %d", LiveHandles(), base)
	}
}

func TestHandle_CloseErrorSurfacesOnLastRelease(t *testing.T) {
	f := useFakeSystem(t)
	f.closeErr = errors.New("close failed")

	s, _ := NewStreamSocket(endpoint.IPv4)
	c := s.Clone()

	if err := s.Close(); err != nil {
		t.Fatalf("non-final Close returned %v", err)
	}
	err := c.Close()
	if err == nil {
		t.Fatal("final Close should report the OS close error")
	}
	if !errors.Is(err, neterrors.ErrTransport) {
		t.Fatalf("error = %v, want transport kind", err)
	}
}

func TestHandle_AliasOverReleaseIsHarmless(t *testing.T) {
	f := useFakeSystem(t)

	s, _ := NewStreamSocket(endpoint.IPv4)
	alias := s
	fd := s.FD()

	s.Close()
	// The alias refers to the dropped handle; it must not release the
	// table slot reused by the next socket.
	other, _ := NewStreamSocket(endpoint.IPv4)
	defer other.Close()

	if err := alias.Close(); err != nil {
		t.Fatalf("alias Close: %v", err)
	}
	if !other.IsOpen() {
		t.Fatal("unrelated socket was released through a stale alias")
	}
	if f.closeCount(fd) != 1 {
		t.Fatalf("close count = %d, want 1", f.closeCount(fd))
	}
}

func TestSocket_ConcurrentCloneClose(t *testing.T) {
	f := useFakeSystem(t)
	base := LiveHandles()

	s, err := NewStreamSocket(endpoint.IPv4)
	if err != nil {
		t.Fatalf("NewStreamSocket: %v", err)
	}
	defer s.Close()

	const (
		rounds  = 50
		workers = 16
		clones  = 20
	)
	for round := 0; round < rounds; round++ {
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < clones; i++ {
					c := s.Clone()
					if err := c.Close(); err != nil {
						t.Errorf("Close: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()

		if got := s.Refs(); got != 1 {
			t.Fatalf("round %d: Refs() = %d, want 1", round, got)
		}
		if got := LiveHandles(); got != base+1 {
			t.Fatalf("round %d: LiveHandles() = %d, want %d", round, got, base+1)
		}
	}
	if f.closeCount(s.FD()) != 0 {
		t.Fatal("OS socket closed while the origin still holds it")
	}
}

func TestHandle_LifecycleLogged(t *testing.T) {
	useFakeSystem(t)
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	s, _ := NewStreamSocket(endpoint.IPv4)
	c := s.Clone()
	s.Close()
	if n := logs.FilterMessage("socket released").Len(); n != 0 {
		t.Fatalf("released logged %d times while a clone is open", n)
	}
	c.Close()

	if n := logs.FilterMessage("socket acquired").Len(); n != 1 {
		t.Fatalf("acquired logged %d times, want 1", n)
	}
	if n := logs.FilterMessage("socket released").Len(); n != 1 {
		t.Fatalf("released logged %d times, want 1", n)
	}
}

func TestOpenSockets(t *testing.T) {
	useFakeSystem(t)
	before := len(OpenSockets())

	s, _ := NewStreamSocket(endpoint.IPv6)
	c := s.Clone()
	defer c.Close()

	open := OpenSockets()
	if len(open) != before+1 {
		t.Fatalf("OpenSockets() = %v, want %d entries", open, before+1)
	}
	found := false
	for _, line := range open {
		if strings.Contains(line, "stream") && strings.Contains(line, "refs=2") {
			found = true
		}
	}
	if !found {
		t.Fatalf("OpenSockets() = %v, missing the shared stream socket", open)
	}

	s.Close()
	c.Close()
	if got := len(OpenSockets()); got != before {
		t.Fatalf("OpenSockets() has %d entries after close, want %d", got, before)
	}
}

func TestSocket_Equality(t *testing.T) {
	useFakeSystem(t)

	a, _ := NewStreamSocket(endpoint.IPv4)
	defer a.Close()
	b, _ := NewStreamSocket(endpoint.IPv4)
	defer b.Close()

	c := a.Clone()
	defer c.Close()

	if !a.Equal(c) || a.Socket != c {
		t.Fatal("clone should equal its origin")
	}
	if a.Equal(b.Socket) {
		t.Fatal("distinct sockets should not be equal")
	}

	var n1, n2 Socket
	if !n1.Equal(n2) {
		t.Fatal("null sockets should be equal")
	}
	if n1.Equal(a.Socket) {
		t.Fatal("null socket should not equal an open one")
	}
}

func TestSocket_NullOperations(t *testing.T) {
	useFakeSystem(t)

	var s StreamSocket
	var srv ServerSocket
	buf := make([]byte, 4)

	tests := []struct {
		name string
		op   func() error
	}{
		{"SendBytes", func() error { _, err := s.SendBytes(buf); return err }},
		{"ReceiveBytes", func() error { _, err := s.ReceiveBytes(buf); return err }},
		{"Poll", func() error { _, err := s.Poll(0, SelectRead); return err }},
		{"Available", func() error { _, err := s.Available(); return err }},
		{"Address", func() error { _, err := s.Address(); return err }},
		{"PeerAddress", func() error { _, err := s.PeerAddress(); return err }},
		{"SetBlocking", func() error { return s.SetBlocking(false) }},
		{"SetNoDelay", func() error { return s.SetNoDelay(true) }},
		{"ReceiveTimeout", func() error { _, err := s.ReceiveTimeout(); return err }},
		{"Shutdown", func() error { return s.Shutdown() }},
		{"Listen", func() error { return srv.Listen(0) }},
		{"AcceptConnection", func() error { _, err := srv.AcceptConnection(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if !errors.Is(err, neterrors.ErrResourceUnavailable) {
				t.Fatalf("error = %v, want resource unavailable", err)
			}
		})
	}

	if !s.IsNull() || s.FD() != -1 || s.Family() != endpoint.FamilyUnspec || s.Role() != RoleNone {
		t.Fatal("null socket accessors returned non-null values")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on null socket: %v", err)
	}
	if c := s.Clone(); !c.IsNull() {
		t.Fatal("clone of null socket should be null")
	}
}

func TestSocket_CloseMakesValueNull(t *testing.T) {
	useFakeSystem(t)

	s, _ := NewStreamSocket(endpoint.IPv4)
	s.Close()

	if !s.IsNull() {
		t.Fatal("closed value should be null")
	}
	if _, err := s.SendBytes([]byte("x")); !errors.Is(err, neterrors.ErrResourceUnavailable) {
		t.Fatalf("SendBytes after Close = %v", err)
	}
}

func TestAssign_RoleChecks(t *testing.T) {
	useFakeSystem(t)

	stream, _ := NewStreamSocket(endpoint.IPv4)
	defer stream.Close()
	server, _ := NewServerSocket(endpoint.IPv4)
	defer server.Close()

	var target StreamSocket
	if err := target.Assign(server.Socket); !errors.Is(err, neterrors.ErrInvalidConfiguration) {
		t.Fatalf("stream.Assign(server) = %v, want invalid configuration", err)
	}
	if !target.IsNull() {
		t.Fatal("failed Assign must not change the target")
	}

	var srvTarget ServerSocket
	if err := srvTarget.Assign(stream.Socket); !errors.Is(err, neterrors.ErrInvalidConfiguration) {
		t.Fatalf("server.Assign(stream) = %v, want invalid configuration", err)
	}

	if _, err := StreamSocketFrom(server.Socket); !errors.Is(err, neterrors.ErrInvalidConfiguration) {
		t.Fatalf("StreamSocketFrom(server) = %v", err)
	}
	if _, err := ServerSocketFrom(stream.Socket); !errors.Is(err, neterrors.ErrInvalidConfiguration) {
		t.Fatalf("ServerSocketFrom(stream) = %v", err)
	}

	// Same-role assignment shares the socket
	if err := target.Assign(stream.Socket); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	defer target.Close()
	if !target.Equal(stream.Socket) || stream.Refs() != 2 {
		t.Fatalf("after Assign: equal=%v refs=%d", target.Equal(stream.Socket), stream.Refs())
	}

	// A generic Socket accepts any role
	var generic Socket
	if err := generic.Assign(server.Socket); err != nil {
		t.Fatalf("Socket.Assign: %v", err)
	}
	defer generic.Close()
	back, err := ServerSocketFrom(generic)
	if err != nil {
		t.Fatalf("ServerSocketFrom: %v", err)
	}
	defer back.Close()
	if !back.Equal(server.Socket) || server.Refs() != 3 {
		t.Fatalf("ServerSocketFrom: refs=%d", server.Refs())
	}
}

func TestAssign_ReleasesPrevious(t *testing.T) {
	f := useFakeSystem(t)

	a, _ := NewStreamSocket(endpoint.IPv4)
	b, _ := NewStreamSocket(endpoint.IPv4)
	defer b.Close()
	fdA := a.FD()

	if err := a.Assign(b.Socket); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	defer a.Close()
	if f.closeCount(fdA) != 1 {
		t.Fatal("previous socket should be closed when its only holder reassigns")
	}
	if err := a.Assign(b.Socket); err != nil {
		t.Fatalf("self Assign: %v", err)
	}
	if b.Refs() != 2 {
		t.Fatalf("Refs() = %d after repeated Assign, want 2", b.Refs())
	}
}

func TestMove(t *testing.T) {
	useFakeSystem(t)

	s, _ := NewStreamSocket(endpoint.IPv4)
	fd := s.FD()

	m := s.Move()
	defer m.Close()

	if !s.IsNull() {
		t.Fatal("moved-from socket should be null")
	}
	if m.FD() != fd || m.Refs() != 1 {
		t.Fatalf("moved socket fd=%d refs=%d", m.FD(), m.Refs())
	}

	srv, _ := NewServerSocket(endpoint.IPv6)
	ms := srv.Move()
	defer ms.Close()
	if !srv.IsNull() || ms.Family() != endpoint.IPv6 || ms.Role() != RoleServer {
		t.Fatal("server Move did not transfer the socket")
	}
}

func TestCloseAll(t *testing.T) {
	f := useFakeSystem(t)
	f.closeErr = errors.New("boom")

	a, _ := NewStreamSocket(endpoint.IPv4)
	b, _ := NewStreamSocket(endpoint.IPv4)
	var null Socket

	err := CloseAll(&a.Socket, &b.Socket, &null, nil)
	if err == nil {
		t.Fatal("CloseAll should combine close errors")
	}
	if !a.IsNull() || !b.IsNull() {
		t.Fatal("CloseAll should release every socket")
	}
}
