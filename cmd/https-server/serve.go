package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
)

// serve answers a single request and closes the connection.
func serve(conn net.Conn, root string) (err error) {
	defer conn.Close()
	req, readErr := http.ReadRequest(bufio.NewReader(conn))
	if readErr != nil {
		if errors.Is(readErr, io.EOF) {
			return
		}
		err = readErr
		return
	}
	resp := respond(root, req)
	err = resp.Write(conn)
	return
}

func respond(root string, req *http.Request) *http.Response {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		resp := response(req, http.StatusMethodNotAllowed, nil)
		resp.Header.Set("Allow", "GET, HEAD")
		return resp
	}
	name := filepath.Join(root, filepath.FromSlash(path.Clean("/"+req.URL.Path)))
	info, statErr := os.Stat(name)
	if statErr == nil && info.IsDir() {
		name = filepath.Join(name, "index.html")
		info, statErr = os.Stat(name)
	}
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return response(req, http.StatusNotFound, nil)
		}
		return response(req, http.StatusInternalServerError, nil)
	}
	body, readErr := os.ReadFile(name)
	if readErr != nil {
		return response(req, http.StatusInternalServerError, nil)
	}
	resp := response(req, http.StatusOK, body)
	resp.Header.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	return resp
}

func response(req *http.Request, status int, body []byte) *http.Response {
	if body == nil {
		body = []byte(fmt.Sprintf("%d %s\n", status, http.StatusText(status)))
	}
	resp := &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		ContentLength: int64(len(body)),
		Close:         true,
		Request:       req,
	}
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	if req.Method != http.MethodHead {
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}
	return resp
}
