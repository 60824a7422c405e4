//go:build linux

package transport

import (
	"golang.org/x/sys/unix"
	"net"
	"os"
	"strings"
	"syscall"
)

func control(opts Options) func(network string, address string, raw syscall.RawConn) error {
	return func(network string, address string, raw syscall.RawConn) (err error) {
		if !strings.HasPrefix(network, "tcp") {
			return
		}
		ctrlErr := raw.Control(func(fd uintptr) {
			err = setsockopt(int(fd), opts)
		})
		if ctrlErr != nil {
			err = ctrlErr
		}
		return
	}
}

func tune(conn net.Conn, opts Options) (err error) {
	if _, ok := conn.(*net.TCPConn); !ok {
		return
	}
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return
	}
	raw, rawErr := sc.SyscallConn()
	if rawErr != nil {
		err = rawErr
		return
	}
	err = control(opts)("tcp", "", raw)
	return
}

func setsockopt(fd int, opts Options) (err error) {
	if opts.NoDelay {
		if err = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return os.NewSyscallError("setsockopt", err)
		}
	}
	if opts.QuickAck {
		if err = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1); err != nil {
			return os.NewSyscallError("setsockopt", err)
		}
	}
	return
}
