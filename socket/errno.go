package socket

import (
	"errors"
	"fmt"
	"syscall"

	neterrors "github.com/wippyai/netcore/errors"
)

// ErrWouldBlock is returned by non-blocking receive and accept calls when
// nothing is ready. A zero-byte receive without error means the peer shut
// down its sending side.
var ErrWouldBlock = errors.New("socket: operation would block")

// mapErrno classifies an OS error for the given phase. ep may be nil.
func mapErrno(phase neterrors.Phase, err error, ep fmt.Stringer) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return neterrors.New(phase, neterrors.KindTransport).Endpoint(ep).Cause(err).Build()
	}

	var kind neterrors.Kind
	switch errno {
	case syscall.ECONNREFUSED:
		kind = neterrors.KindConnectionRefused
	case syscall.ETIMEDOUT, syscall.EAGAIN:
		kind = neterrors.KindTimedOut
	case syscall.EBADF, syscall.ENOTSOCK:
		kind = neterrors.KindResourceUnavailable
	case syscall.ENOPROTOOPT:
		kind = neterrors.KindInvalidConfiguration
	case syscall.EINVAL:
		if phase == neterrors.PhaseOption {
			kind = neterrors.KindInvalidConfiguration
		} else {
			kind = neterrors.KindTransport
		}
	case syscall.EAFNOSUPPORT, syscall.EADDRNOTAVAIL, syscall.ENOENT, syscall.EPROTOTYPE:
		kind = neterrors.KindInvalidEndpoint
	default:
		kind = neterrors.KindTransport
	}

	return neterrors.New(phase, kind).Endpoint(ep).Cause(err).Build()
}

func isErrno(err error, target syscall.Errno) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == target
}

// wouldBlock reports EAGAIN/EWOULDBLOCK.
func wouldBlock(err error) bool {
	return isErrno(err, syscall.EAGAIN) || isErrno(err, syscall.EWOULDBLOCK)
}
