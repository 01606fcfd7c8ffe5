//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package socket

// ioctlAvailable is FIONREAD, _IOR('f', 127, int). x/sys/unix does not
// export it for these platforms.
const ioctlAvailable = 0x4004667f
