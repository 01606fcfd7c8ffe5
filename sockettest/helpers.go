package sockettest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/netcore/endpoint"
	"github.com/wippyai/netcore/socket"
)

// LocalEndpoint returns a unix-domain endpoint in a fresh temporary
// directory removed when the test ends. The path is kept short to fit
// sun_path limits.
func LocalEndpoint(t testing.TB) endpoint.Endpoint {
	t.Helper()
	dir, err := os.MkdirTemp("", "nc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return endpoint.Local(filepath.Join(dir, "s"))
}

// RefusedEndpoint returns a loopback endpoint with nothing listening on it.
func RefusedEndpoint(t testing.TB) endpoint.Endpoint {
	t.Helper()
	var srv socket.ServerSocket
	if err := srv.Bind(endpoint.Loopback(endpoint.IPv4, 0), false); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	ep, err := srv.Address()
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return ep
}

// StartEchoServer starts an echo server on loopback and stops it when the
// test ends.
func StartEchoServer(t testing.TB) *EchoServer {
	t.Helper()
	return StartEchoServerAt(t, endpoint.Loopback(endpoint.IPv4, 0))
}

// StartEchoServerAt starts an echo server bound to ep and stops it when
// the test ends.
func StartEchoServerAt(t testing.TB, ep endpoint.Endpoint) *EchoServer {
	t.Helper()
	srv, err := NewEchoServerAt(ep)
	if err != nil {
		t.Fatalf("NewEchoServerAt(%v): %v", ep, err)
	}
	t.Cleanup(func() {
		if err := srv.Close(); err != nil {
			t.Errorf("echo server close: %v", err)
		}
	})
	return srv
}
