package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/horgh/irc"
)

// clientID is a locally unique identifier assigned to a connection at
// accept time. It stands in for the "handle" (file descriptor, in the
// reference) the spec describes: channels key their member/operator/
// invite sets on it, but the authoritative *Client record lives only in
// the server's registry (see Design Notes, "Shared references without
// ownership").
type clientID uint64

// Client holds all per-connection state. It is owned by the server
// goroutine, with two exceptions: the client's reader goroutine uses Conn
// and the receive buffer (via Feed), and its writer goroutine drains
// WriteChan and writes to Conn.
type Client struct {
	ID   clientID
	Conn *Conn

	// Host is the client's remote address string, recorded at accept time.
	Host string

	// WriteChan is drained by this client's writer goroutine. Sends to it
	// must never block the server goroutine; see maybeQueueMessage.
	WriteChan chan irc.Message

	// sendQueueExceeded is set once WriteChan is full. We don't try to
	// deliver to the client again after that; the next event we see for
	// it (a line read or the reader noticing the connection is gone)
	// tears it down.
	sendQueueExceeded bool

	// Authenticated records a successful PASS.
	Authenticated bool

	// Registered is sticky: once the welcome sequence is sent it stays
	// true even if later state would otherwise look incomplete.
	Registered bool

	// Nick, User, and RealName are blank until set by NICK/USER.
	Nick     string
	User     string
	RealName string

	// Channels is the set of canonical channel names this client has
	// joined. It must stay in lockstep with every Channel.Members set
	// that contains this client's ID (invariant 4).
	Channels map[string]struct{}

	// buf accumulates bytes read from the connection between newline
	// terminators. See Feed.
	buf []byte
}

// newClient creates a Client in its pre-registration state.
func newClient(id clientID, conn *Conn, host string) *Client {
	return &Client{
		ID:        id,
		Conn:      conn,
		Host:      host,
		WriteChan: make(chan irc.Message, 1024),
		Channels:  make(map[string]struct{}),
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%d (%s)", c.ID, c.Host)
}

// fullyRegistered reports whether PASS, NICK, and USER have all
// succeeded. It does not consider Registered, which only latches once
// this has been true and the welcome sequence has been sent.
func (c *Client) fullyRegistered() bool {
	return c.Authenticated && c.Nick != "" && c.User != ""
}

// hostmask renders the nick!user@host prefix used on every relayed line
// that appears to originate from this client.
func (c *Client) hostmask() string {
	return fmt.Sprintf("%s!%s@%s", c.Nick, c.User, c.Host)
}

// Feed appends newly read bytes to the client's receive buffer and
// extracts as many complete lines as are now available. A line is
// terminated by '\n'; one trailing '\r', if present, is trimmed. Any
// trailing partial line remains buffered for the next call.
//
// A single call may return zero, one, or many lines, matching the
// boundary behaviors in the spec: a message split across two reads
// (including a split between '\r' and '\n') parses identically to one
// delivered whole, and multiple messages in one read all come back in
// order.
func (c *Client) Feed(data []byte) []string {
	c.buf = append(c.buf, data...)

	var lines []string
	for {
		idx := bytes.IndexByte(c.buf, '\n')
		if idx == -1 {
			break
		}

		line := string(c.buf[:idx])
		c.buf = c.buf[idx+1:]
		line = strings.TrimSuffix(line, "\r")
		lines = append(lines, line)
	}

	return lines
}

// maybeQueueMessage sends a message to the client's writer goroutine
// without blocking the server goroutine. If the client's queue is
// already full we stop trying to deliver to it; see Design Notes on
// outbound queue overflow.
func (c *Client) maybeQueueMessage(m irc.Message) {
	if c.sendQueueExceeded {
		return
	}

	select {
	case c.WriteChan <- m:
	default:
		c.sendQueueExceeded = true
	}
}
