package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/pem"
	"github.com/brickingsoft/sslio"
	"github.com/brickingsoft/sslio/engine/stdtls"
	"github.com/brickingsoft/sslio/pkg/selfsigned"
	"github.com/brickingsoft/sslio/transport"
	"github.com/brickingsoft/sslio/transport/adaptor"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	cert, _, err := selfsigned.New("localhost")
	if err != nil {
		t.Fatal(err)
	}
	caFile := filepath.Join(t.TempDir(), "ca.pem")
	caPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]})
	if err = os.WriteFile(caFile, caPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ln, err := transport.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	serverConfig := &tls.Config{Certificates: []tls.Certificate{cert}}
	netLn := adaptor.Listener(ln, func(conn transport.Connection) (sslio.AsynchronousByteChannel, error) {
		return sslio.New(ctx, conn, stdtls.Server(serverConfig))
	})
	defer netLn.Close()

	go func() {
		conn, acceptErr := netLn.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		req, readErr := http.ReadRequest(bufio.NewReader(conn))
		if readErr != nil {
			t.Error(readErr)
			return
		}
		body := "hello " + req.Host
		resp := &http.Response{
			StatusCode:    http.StatusOK,
			ProtoMajor:    1,
			ProtoMinor:    1,
			ContentLength: int64(len(body)),
			Body:          io.NopCloser(strings.NewReader(body)),
			Close:         true,
			Request:       req,
		}
		_ = resp.Write(conn)
	}()

	port := netLn.Addr().String()[strings.LastIndex(netLn.Addr().String(), ":")+1:]
	out := new(bytes.Buffer)
	if err = fetch(ctx, "https://localhost:"+port+"/", caFile, out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello localhost:"+port {
		t.Fatal("bad body:", out.String())
	}
}
