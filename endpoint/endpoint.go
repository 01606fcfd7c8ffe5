package endpoint

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"strings"

	neterrors "github.com/wippyai/netcore/errors"
)

// Family identifies the address family of an endpoint and of the sockets
// that can reach it.
type Family uint8

const (
	FamilyUnspec Family = iota
	IPv4
	IPv6
	FamilyLocal
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	case FamilyLocal:
		return "local"
	default:
		return "unspec"
	}
}

// Endpoint is an immutable socket address: an IP address and port, or a
// filesystem path for local (unix-domain) sockets.
// The zero value is not a usable address; see IsZero.
type Endpoint struct {
	addr   netip.Addr
	path   string
	port   uint16
	family Family
}

// New returns an IP endpoint. IPv4-mapped IPv6 addresses are unmapped.
func New(addr netip.Addr, port uint16) Endpoint {
	addr = addr.Unmap()
	family := IPv4
	if addr.Is6() {
		family = IPv6
	}
	if !addr.IsValid() {
		family = FamilyUnspec
	}
	return Endpoint{addr: addr, port: port, family: family}
}

// Local returns a unix-domain endpoint bound to path.
func Local(path string) Endpoint {
	return Endpoint{path: path, family: FamilyLocal}
}

// Any returns the wildcard endpoint of the family with port 0.
// Any(FamilyLocal) returns the unnamed local endpoint.
func Any(family Family) Endpoint {
	switch family {
	case IPv6:
		return New(netip.IPv6Unspecified(), 0)
	case FamilyLocal:
		return Local("")
	default:
		return New(netip.IPv4Unspecified(), 0)
	}
}

// Loopback returns the loopback endpoint of the family on port.
func Loopback(family Family, port uint16) Endpoint {
	if family == IPv6 {
		return New(netip.IPv6Loopback(), port)
	}
	return New(netip.AddrFrom4([4]byte{127, 0, 0, 1}), port)
}

// Parse parses "host:port", "[v6]:port", or a path containing '/'.
// Host must be a literal address; use Resolve for names.
func Parse(s string) (Endpoint, error) {
	if strings.Contains(s, "/") && !strings.HasPrefix(s, "[") {
		return Local(s), nil
	}
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Endpoint{}, neterrors.InvalidEndpoint(neterrors.PhaseAddress, s, err)
	}
	return New(ap.Addr(), ap.Port()), nil
}

// Resolve returns an endpoint for host and port. Literal addresses are used
// directly; names go through the default resolver and the first address wins,
// preferring IPv4.
func Resolve(ctx context.Context, host string, port uint16) (Endpoint, error) {
	target := net.JoinHostPort(host, strconv.Itoa(int(port)))
	if host == "" {
		return Any(IPv4).withPort(port), nil
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return New(addr, port), nil
	}

	resolver := net.Resolver{}
	addrs, err := resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return Endpoint{}, neterrors.InvalidEndpoint(neterrors.PhaseResolve, target, err)
	}
	if len(addrs) == 0 {
		return Endpoint{}, neterrors.New(neterrors.PhaseResolve, neterrors.KindInvalidEndpoint).
			Detail("no addresses for %s", host).
			Build()
	}

	for _, a := range addrs {
		if a.Unmap().Is4() {
			return New(a, port), nil
		}
	}
	return New(addrs[0], port), nil
}

func (e Endpoint) withPort(port uint16) Endpoint {
	e.port = port
	return e
}

// Family returns the address family.
func (e Endpoint) Family() Family { return e.family }

// Addr returns the IP address; invalid for local endpoints.
func (e Endpoint) Addr() netip.Addr { return e.addr }

// Port returns the port; 0 for local endpoints.
func (e Endpoint) Port() uint16 { return e.port }

// Path returns the filesystem path of a local endpoint.
func (e Endpoint) Path() string { return e.path }

// AddrPort returns the IP address and port as a netip.AddrPort.
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.addr, e.port)
}

// IsZero reports whether e is the zero Endpoint.
func (e Endpoint) IsZero() bool {
	return e == Endpoint{}
}

// Equal reports whether both endpoints name the same address.
func (e Endpoint) Equal(other Endpoint) bool {
	return e == other
}

func (e Endpoint) String() string {
	switch e.family {
	case FamilyLocal:
		return e.path
	case IPv4, IPv6:
		return net.JoinHostPort(e.addr.String(), strconv.Itoa(int(e.port)))
	default:
		return ""
	}
}
