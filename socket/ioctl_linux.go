//go:build linux

package socket

import "golang.org/x/sys/unix"

// ioctlAvailable reports the bytes queued for reading.
const ioctlAvailable = unix.SIOCINQ
