package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"github.com/account-login/ctxlog"
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/engine/stdtls"
	"github.com/brickingsoft/sslio/transport"
	"github.com/brickingsoft/sslio/transport/adaptor"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	// logging
	log.SetFlags(log.Flags() | log.Lmicroseconds)

	// args
	rawURL := flag.String("url", "https://localhost:8443/", "url to fetch")
	caFile := flag.String("ca", "", "PEM file of trusted roots, system roots when empty")
	timeout := flag.Duration("timeout", 10*time.Second, "overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := fetch(ctx, *rawURL, *caFile, os.Stdout); err != nil {
		ctxlog.Fatal(ctx, err)
	}
	_ = sslio.Shutdown()
}

func fetch(ctx context.Context, rawURL string, caFile string, w io.Writer) (err error) {
	t, err := parseTarget(rawURL)
	if err != nil {
		return
	}
	config := &tls.Config{ServerName: t.serverName}
	if caFile != "" {
		pem, readErr := os.ReadFile(caFile)
		if readErr != nil {
			return readErr
		}
		config.RootCAs = x509.NewCertPool()
		if !config.RootCAs.AppendCertsFromPEM(pem) {
			return errors.New("https-client: no certificates in " + caFile)
		}
	}

	raw, err := transport.Dial(ctx, "tcp", t.address)
	if err != nil {
		return
	}
	ctx = ctxlog.Pushf(ctx, "[remote:%v]", raw.RemoteAddr())
	ch, err := sslio.New(ctx, raw, stdtls.Client(config), sslio.WithLogContext(ctx))
	if err != nil {
		_ = raw.Close()
		return
	}
	conn := adaptor.Connection(ch, raw)
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	handshake := make(chan error, 1)
	ch.Handshake(sslio.HandlerFunc(func(int, any) {
		handshake <- nil
	}, func(err error, _ any) {
		handshake <- err
	}))
	if err = <-handshake; err != nil {
		return
	}
	ctxlog.Infof(ctx, "handshake complete, id %v", ch.ID())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url.String(), nil)
	if err != nil {
		return
	}
	req.Host = t.host
	req.Close = true
	req.Header.Set("User-Agent", "sslio-https-client")
	if err = req.Write(conn); err != nil {
		return
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	ctxlog.Infof(ctx, "%v %v", resp.Proto, resp.Status)
	_, err = io.Copy(w, resp.Body)
	return
}
