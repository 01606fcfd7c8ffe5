// Package endpoint provides immutable socket addresses.
//
// An Endpoint is either an IP address with a port or a local (unix-domain)
// path:
//
//	ep := endpoint.New(netip.MustParseAddr("127.0.0.1"), 8080)
//	ep, err := endpoint.Parse("[::1]:8080")
//	ep := endpoint.Local("/tmp/echo.sock")
//	ep, err := endpoint.Resolve(ctx, "localhost", 8080)
//
// Endpoints compare with == and Equal; String renders "host:port" with
// brackets around IPv6 hosts, or the bare path.
package endpoint
