package adaptor

import (
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/transport"
	"net"
)

// Upgrade 将接受的底层连接升级为上层通道，例如 TLS 通道。
type Upgrade func(conn transport.Connection) (ch sslio.AsynchronousByteChannel, err error)

// Listener
// 将 transport.Listener 转换为 net.Listener，upgrade 为空时直接使用底层连接。
func Listener(ln transport.Listener, upgrade Upgrade) net.Listener {
	return &listener{
		ln:      ln,
		upgrade: upgrade,
	}
}

type listener struct {
	ln      transport.Listener
	upgrade Upgrade
}

func (ln *listener) Accept() (net.Conn, error) {
	conn, err := ln.ln.Accept()
	if err != nil {
		return nil, err
	}
	if ln.upgrade == nil {
		return Connection(conn, conn), nil
	}
	ch, upErr := ln.upgrade(conn)
	if upErr != nil {
		_ = conn.Close()
		return nil, upErr
	}
	return Connection(ch, conn), nil
}

func (ln *listener) Close() error {
	return ln.ln.Close()
}

func (ln *listener) Addr() net.Addr {
	return ln.ln.Addr()
}
