//go:build !linux

package transport

import (
	"net"
	"syscall"
)

func control(_ Options) func(network string, address string, raw syscall.RawConn) error {
	return nil
}

func tune(conn net.Conn, opts Options) (err error) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		err = tcp.SetNoDelay(opts.NoDelay)
	}
	return
}
