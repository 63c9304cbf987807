package main

import (
	"testing"

	"github.com/horgh/irc"
)

func newTestClient(id clientID) *Client {
	return newClient(id, nil, "127.0.0.1")
}

func TestFeedSingleLine(t *testing.T) {
	c := newTestClient(1)
	lines := c.Feed([]byte("NICK alice\r\n"))
	if len(lines) != 1 || lines[0] != "NICK alice" {
		t.Fatalf("Feed() = %q, wanted [\"NICK alice\"]", lines)
	}
}

func TestFeedMultipleLinesOneRead(t *testing.T) {
	c := newTestClient(1)
	lines := c.Feed([]byte("NICK alice\r\nUSER alice 0 * :Alice A\r\n"))
	if len(lines) != 2 {
		t.Fatalf("Feed() returned %d lines, wanted 2: %q", len(lines), lines)
	}
	if lines[0] != "NICK alice" || lines[1] != "USER alice 0 * :Alice A" {
		t.Fatalf("Feed() = %q", lines)
	}
}

// TestFeedPartialRead verifies a message split across two reads parses
// identically to one delivered whole, including a split between '\r'
// and '\n'.
func TestFeedPartialRead(t *testing.T) {
	c := newTestClient(1)

	lines := c.Feed([]byte("NICK ali"))
	if len(lines) != 0 {
		t.Fatalf("Feed() of a partial line returned %q, wanted none", lines)
	}

	lines = c.Feed([]byte("ce\r"))
	if len(lines) != 0 {
		t.Fatalf("Feed() before the terminator returned %q, wanted none", lines)
	}

	lines = c.Feed([]byte("\n"))
	if len(lines) != 1 || lines[0] != "NICK alice" {
		t.Fatalf("Feed() after split = %q, wanted [\"NICK alice\"]", lines)
	}
}

func TestFeedBareLF(t *testing.T) {
	c := newTestClient(1)
	lines := c.Feed([]byte("PING\n"))
	if len(lines) != 1 || lines[0] != "PING" {
		t.Fatalf("Feed() = %q, wanted [\"PING\"]", lines)
	}
}

// TestFeedEmptyLine verifies a bare CRLF yields an empty line rather
// than being dropped by the framer (dropping it is the dispatcher's job).
func TestFeedEmptyLine(t *testing.T) {
	c := newTestClient(1)
	lines := c.Feed([]byte("\r\n"))
	if len(lines) != 1 || lines[0] != "" {
		t.Fatalf("Feed() = %q, wanted [\"\"]", lines)
	}
}

func TestFullyRegistered(t *testing.T) {
	c := newTestClient(1)
	if c.fullyRegistered() {
		t.Fatalf("new client reports fully registered")
	}

	c.Authenticated = true
	c.Nick = "alice"
	if c.fullyRegistered() {
		t.Fatalf("client with no username reports fully registered")
	}

	c.User = "alice"
	if !c.fullyRegistered() {
		t.Fatalf("fully set up client does not report fully registered")
	}
}

func TestHostmask(t *testing.T) {
	c := newTestClient(1)
	c.Nick = "alice"
	c.User = "alice"
	c.Host = "10.0.0.1"

	want := "alice!alice@10.0.0.1"
	if got := c.hostmask(); got != want {
		t.Fatalf("hostmask() = %q, wanted %q", got, want)
	}
}

func TestMaybeQueueMessageOverflow(t *testing.T) {
	c := newClient(1, nil, "127.0.0.1")
	c.WriteChan = make(chan irc.Message, 1)

	c.maybeQueueMessage(irc.Message{Command: "PING"})
	c.maybeQueueMessage(irc.Message{Command: "PING"})

	if !c.sendQueueExceeded {
		t.Fatalf("sendQueueExceeded not set after queue overflowed")
	}

	// A client already marked overflowed must not block further sends.
	c.maybeQueueMessage(irc.Message{Command: "PING"})
}
