package main

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/horgh/irc"
	"github.com/stretchr/testify/require"
)

// integrationClient is a minimal IRC client for driving the server over
// a real loopback connection: a reader goroutine parses incoming lines
// onto a channel, while send writes directly to the connection.
type integrationClient struct {
	conn net.Conn
	rw   *bufio.ReadWriter
	recv chan irc.Message
	done chan struct{}
}

func dialIntegrationClient(t *testing.T, addr net.Addr) *integrationClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err, "dial server")

	ic := &integrationClient{
		conn: conn,
		rw:   bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
		recv: make(chan irc.Message, 64),
		done: make(chan struct{}),
	}

	go ic.reader()

	return ic
}

func (ic *integrationClient) reader() {
	for {
		select {
		case <-ic.done:
			close(ic.recv)
			return
		default:
		}

		if err := ic.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			close(ic.recv)
			return
		}

		line, err := ic.rw.ReadString('\n')
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			close(ic.recv)
			return
		}

		m, err := irc.ParseMessage(line)
		if err != nil && err != irc.ErrTruncated {
			continue
		}
		ic.recv <- m
	}
}

func (ic *integrationClient) send(m irc.Message) error {
	buf, err := m.Encode()
	if err != nil && err != irc.ErrTruncated {
		return fmt.Errorf("encode: %s", err)
	}
	if _, err := ic.rw.WriteString(buf); err != nil {
		return err
	}
	return ic.rw.Flush()
}

func (ic *integrationClient) close() {
	close(ic.done)
	_ = ic.conn.Close()
}

func waitFor(t *testing.T, ch <-chan irc.Message, command string) irc.Message {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				t.Fatalf("connection closed waiting for %s", command)
			}
			if m.Command == command {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", command)
		}
	}
}

func startTestServer(t *testing.T) *Server {
	t.Helper()

	s := NewServer(Config{
		Port:       0,
		Password:   testPassword,
		ServerName: "irc.test",
		Version:    "test",
		MaxClients: 2,
	})

	go func() {
		_ = s.Start()
	}()
	t.Cleanup(s.Stop)

	return s
}

func registerIntegrationClient(t *testing.T, addr net.Addr, nick string) *integrationClient {
	t.Helper()

	ic := dialIntegrationClient(t, addr)
	require.NoError(t, ic.send(irc.Message{Command: "PASS", Params: []string{testPassword}}))
	require.NoError(t, ic.send(irc.Message{Command: "NICK", Params: []string{nick}}))
	require.NoError(t, ic.send(irc.Message{
		Command: "USER",
		Params:  []string{nick, "0", "*", nick},
	}))
	waitFor(t, ic.recv, rplWelcome)
	return ic
}

// TestIntegrationRegistrationAndJoin exercises a full registration
// handshake and channel join over a real TCP connection.
func TestIntegrationRegistrationAndJoin(t *testing.T) {
	s := startTestServer(t)
	addr := s.Addr()

	alice := registerIntegrationClient(t, addr, "alice")
	defer alice.close()

	require.NoError(t, alice.send(irc.Message{Command: "JOIN", Params: []string{"#dev"}}))
	join := waitFor(t, alice.recv, "JOIN")
	require.Equal(t, "#dev", join.Params[0])
	waitFor(t, alice.recv, rplEndOfNames)
}

// TestIntegrationMaxClients checks that the connection beyond
// MAX_CLIENTS is rejected while existing clients stay unaffected.
func TestIntegrationMaxClients(t *testing.T) {
	s := startTestServer(t)
	addr := s.Addr()

	first := registerIntegrationClient(t, addr, "alice")
	defer first.close()
	second := registerIntegrationClient(t, addr, "bob")
	defer second.close()

	third := dialIntegrationClient(t, addr)
	defer third.close()

	buf := make([]byte, 1)
	require.NoError(t, third.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := third.conn.Read(buf)
	require.Error(t, err, "the third connection should be closed by the server")

	require.NoError(t, first.send(irc.Message{Command: "PING", Params: []string{"x"}}))
	waitFor(t, first.recv, "PONG")
}

// TestIntegrationPrivateMessage checks PRIVMSG routing between two
// clients with no shared channel.
func TestIntegrationPrivateMessage(t *testing.T) {
	s := startTestServer(t)
	addr := s.Addr()

	alice := registerIntegrationClient(t, addr, "alice")
	defer alice.close()
	bob := registerIntegrationClient(t, addr, "bob")
	defer bob.close()

	require.NoError(t, alice.send(irc.Message{
		Command: "PRIVMSG",
		Params:  []string{"bob", "hi"},
	}))

	m := waitFor(t, bob.recv, "PRIVMSG")
	require.Equal(t, []string{"bob", "hi"}, m.Params)
}
