package main

import (
	"fmt"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/idna"
	"net"
	"net/url"
	"strings"
)

type target struct {
	url        *url.URL
	serverName string
	address    string
	host       string
}

// parseTarget resolves the SNI name, dial address and Host header of an https URL.
func parseTarget(raw string) (t target, err error) {
	u, parseErr := url.Parse(raw)
	if parseErr != nil {
		err = parseErr
		return
	}
	if u.Scheme != "https" {
		err = fmt.Errorf("https-client: unsupported scheme %q", u.Scheme)
		return
	}
	hostname := u.Hostname()
	if hostname == "" {
		err = fmt.Errorf("https-client: missing host in %q", raw)
		return
	}
	ascii, idnaErr := idna.Lookup.ToASCII(strings.TrimSuffix(hostname, "."))
	if idnaErr != nil {
		err = fmt.Errorf("https-client: bad host %q: %w", hostname, idnaErr)
		return
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	t.url = u
	t.serverName = ascii
	t.address = net.JoinHostPort(ascii, port)
	t.host = ascii
	if u.Port() != "" {
		t.host = t.address
	}
	if !httpguts.ValidHostHeader(t.host) {
		err = fmt.Errorf("https-client: invalid host header %q", t.host)
		return
	}
	return
}
