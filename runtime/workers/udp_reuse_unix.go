//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package workers

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseControl lets several nodes on one host share the discovery port.
// Broadcast datagrams are delivered to every socket bound with SO_REUSEPORT.
func reuseControl(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if opErr != nil {
			return
		}
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
