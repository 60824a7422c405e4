package main

import (
	"context"
	"crypto/tls"
	"flag"
	"github.com/account-login/ctxlog"
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/engine/stdtls"
	"github.com/brickingsoft/sslio/pkg/selfsigned"
	"github.com/brickingsoft/sslio/transport"
	"github.com/brickingsoft/sslio/transport/adaptor"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// logging
	log.SetFlags(log.Flags() | log.Lmicroseconds)

	// ctx
	ctx := context.Background()

	// args
	configPath := flag.String("config", "", "json config file")
	flag.String("addr", "", "listen on this address")
	flag.String("root", "", "serve files from this directory")
	flag.String("host", "", "host name of the self-signed certificate")
	flag.String("cert_file", "", "certificate file")
	flag.String("key_file", "", "key file")
	flag.Parse()

	overrides := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		if f.Name != "config" {
			overrides[f.Name] = f.Value.String()
		}
	})
	config, err := LoadConfig(*configPath, overrides)
	if err != nil {
		ctxlog.Fatal(ctx, err)
		return
	}

	tlsConfig, err := serverTLSConfig(config)
	if err != nil {
		ctxlog.Fatal(ctx, err)
		return
	}

	ln, err := transport.Listen(ctx, "tcp", config.Addr, transport.WithQuickAck(config.QuickAck))
	if err != nil {
		ctxlog.Fatal(ctx, err)
		return
	}
	netLn := adaptor.Listener(ln, func(conn transport.Connection) (sslio.AsynchronousByteChannel, error) {
		return sslio.New(
			ctx, conn, stdtls.Server(tlsConfig),
			sslio.WithCloseNotifyTimeout(config.CloseNotifyTimeout),
			sslio.WithLogContext(ctxlog.Pushf(ctx, "[remote:%v]", conn.RemoteAddr())),
		)
	})
	ctxlog.Infof(ctx, "listening on %v, root is %v", netLn.Addr(), config.Root)

	go accept(ctx, netLn, config.Root)

	// exit
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	ctxlog.Infof(ctx, "exiting")
	_ = netLn.Close()
	_ = sslio.Shutdown()
}

func accept(ctx context.Context, ln net.Listener, root string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			ctxlog.Errorf(ctx, "accept: %v", err)
			return
		}
		go func(conn net.Conn) {
			if serveErr := serve(conn, root); serveErr != nil {
				ctxlog.Warnf(ctx, "[remote:%v] %v", conn.RemoteAddr(), serveErr)
			}
		}(conn)
	}
}

func serverTLSConfig(config Config) (tlsConfig *tls.Config, err error) {
	if config.CertFile != "" {
		cert, loadErr := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
		if loadErr != nil {
			err = loadErr
			return
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		return
	}
	tlsConfig, _, err = selfsigned.Configs(config.Host)
	return
}
