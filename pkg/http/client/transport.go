package client

import (
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrConnExpired is returned by a pooled connection past its lifetime. It
// does not count as a retry.
var ErrConnExpired = errors.New("connection expired")

// timedConn reports itself closed once maxLifetime has passed, so the
// transport dials again with a fresh DNS lookup.
type timedConn struct {
	net.Conn
	createdAt   time.Time
	maxLifetime time.Duration
}

func (c *timedConn) expired() bool {
	return time.Since(c.createdAt) > c.maxLifetime
}

func (c *timedConn) Read(b []byte) (int, error) {
	if c.expired() {
		_ = c.Close()
		return 0, ErrConnExpired
	}
	return c.Conn.Read(b)
}

func (c *timedConn) Write(b []byte) (int, error) {
	if c.expired() {
		_ = c.Close()
		return 0, ErrConnExpired
	}
	return c.Conn.Write(b)
}

// retryTransport retries requests that died on a broken connection, without
// delay. Once retries run out the idle pool is dropped and one last attempt is
// made on a fresh connection.
type retryTransport struct {
	base       http.RoundTripper
	transport  *http.Transport // for CloseIdleConnections, may be nil
	maxRetries int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; attempt <= t.maxRetries; {
		resp, err := t.attempt(req, attempt)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrConnExpired) {
			continue
		}
		if !isConnectionError(err) {
			return nil, err
		}
		attempt++
	}

	if t.transport != nil {
		t.transport.CloseIdleConnections()
	}
	return t.attempt(req, t.maxRetries+1)
}

func (t *retryTransport) attempt(req *http.Request, n int) (*http.Response, error) {
	if n == 0 {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return t.base.RoundTrip(clone)
}

var connectionErrors = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ENETUNREACH,
	syscall.EPIPE,
	io.EOF,
	io.ErrUnexpectedEOF,
	net.ErrClosed,
}

// isConnectionError reports errors caused by a dead peer or connection.
func isConnectionError(err error) bool {
	for _, target := range connectionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
