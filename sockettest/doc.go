// Package sockettest provides an echo server and endpoint helpers for
// exercising sockets against real loopback connections.
package sockettest
