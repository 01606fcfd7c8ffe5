//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package socket

import (
	"syscall"
	"time"

	"github.com/wippyai/netcore/endpoint"
)

// unsupportedSystem fails every call; no native backend exists for this
// platform. Install one with SetSystem.
type unsupportedSystem struct{}

func defaultSystem() System { return unsupportedSystem{} }

var errUnsupported = syscall.ENOSYS

func (unsupportedSystem) Socket(endpoint.Family) (int, error)       { return -1, errUnsupported }
func (unsupportedSystem) Close(int) error                           { return errUnsupported }
func (unsupportedSystem) Connect(int, endpoint.Endpoint) error      { return errUnsupported }
func (unsupportedSystem) Bind(int, endpoint.Endpoint) error         { return errUnsupported }
func (unsupportedSystem) Listen(int, int) error                     { return errUnsupported }
func (unsupportedSystem) Send(int, []byte) (int, error)             { return 0, errUnsupported }
func (unsupportedSystem) Recv(int, []byte) (int, error)             { return 0, errUnsupported }
func (unsupportedSystem) Shutdown(int, ShutdownHow) error           { return errUnsupported }
func (unsupportedSystem) Poll([]PollFD, time.Duration) (int, error) { return 0, errUnsupported }
func (unsupportedSystem) SetNonblock(int, bool) error               { return errUnsupported }
func (unsupportedSystem) GetsockoptInt(int, Option) (int, error)    { return 0, errUnsupported }
func (unsupportedSystem) SetsockoptInt(int, Option, int) error      { return errUnsupported }
func (unsupportedSystem) GetsockoptLinger(int) (bool, int, error)   { return false, 0, errUnsupported }
func (unsupportedSystem) SetsockoptLinger(int, bool, int) error     { return errUnsupported }
func (unsupportedSystem) Available(int) (int, error)                { return 0, errUnsupported }

func (unsupportedSystem) Accept(int) (int, endpoint.Endpoint, error) {
	return -1, endpoint.Endpoint{}, errUnsupported
}

func (unsupportedSystem) GetsockoptTimeval(int, Option) (time.Duration, error) {
	return 0, errUnsupported
}

func (unsupportedSystem) SetsockoptTimeval(int, Option, time.Duration) error {
	return errUnsupported
}

func (unsupportedSystem) Getsockname(int) (endpoint.Endpoint, error) {
	return endpoint.Endpoint{}, errUnsupported
}

func (unsupportedSystem) Getpeername(int) (endpoint.Endpoint, error) {
	return endpoint.Endpoint{}, errUnsupported
}
