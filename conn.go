package main

import (
	"fmt"
	"net"

	"github.com/horgh/irc"
)

// recvBufferSize matches the reference server's recv(2) buffer size.
const recvBufferSize = 1024

// Conn wraps a client's TCP connection. Reading is raw (no buffering
// beyond the OS socket) so that Client.Feed sees reads the same shape
// the reference's non-blocking recv() loop would: zero, one, or many
// logical lines per call, with no hidden read-ahead.
type Conn struct {
	conn net.Conn
}

// NewConn wraps an already-accepted connection.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Read reads up to one buffer's worth of bytes. Any error means the peer
// is gone (transient errors never reach the caller, since we use
// blocking reads per connection); peer close arrives as io.EOF. A
// zero-length read with no error is returned as empty data.
func (c *Conn) Read() ([]byte, error) {
	buf := make([]byte, recvBufferSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// WriteMessage encodes m with a trailing CRLF and writes it. Short
// writes are not retried: per the spec, a partial send is best-effort
// and must not cause us to drop the client on its own.
func (c *Conn) WriteMessage(m irc.Message) error {
	buf, err := m.Encode()
	if err != nil && err != irc.ErrTruncated {
		return fmt.Errorf("unable to encode message: %s", err)
	}

	_, werr := c.conn.Write([]byte(buf))
	return werr
}

// RemoteHost returns the client's remote address, with the port
// stripped, for use as the hostmask's host component.
func (c *Conn) RemoteHost() string {
	host, _, err := net.SplitHostPort(c.conn.RemoteAddr().String())
	if err != nil {
		return c.conn.RemoteAddr().String()
	}
	return host
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
