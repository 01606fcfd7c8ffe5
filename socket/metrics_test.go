package socket

import (
	"syscall"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wippyai/netcore/endpoint"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Fatal("second Register should fail with duplicate collectors")
	}
}

func TestMetrics_Recording(t *testing.T) {
	f := useFakeSystem(t)
	m := NewMetrics()
	SetMetrics(m)
	t.Cleanup(func() { SetMetrics(nil) })

	f.recvFn = func(_ int, p []byte) (int, error) { return copy(p, "abcd"), nil }

	s, _ := NewStreamSocket(endpoint.IPv4)
	if got := testutil.ToFloat64(m.OpenHandles); got != 1 {
		t.Fatalf("OpenHandles = %v, want 1", got)
	}

	if err := s.Connect(testEndpoint); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.SendBytes([]byte("hello"))
	s.ReceiveBytes(make([]byte, 8))

	f.connectErr = syscall.ECONNREFUSED
	var refused StreamSocket
	refused.Connect(testEndpoint)
	refused.Close()

	s.Close()

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"bytes sent", m.BytesSent, 5},
		{"bytes received", m.BytesReceived, 4},
		{"connects ok", m.Connects.WithLabelValues(outcomeOK), 1},
		{"connects refused", m.Connects.WithLabelValues(outcomeRefused), 1},
		{"open handles", m.OpenHandles, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.ConnectDuration); n != 1 {
		t.Fatalf("ConnectDuration series = %d, want 1", n)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.sent(1)
	m.received(1)
	m.connected(outcomeOK, 0)
	m.accepted()
	m.opened()
	m.closed()
}
