package main

import (
	"log"
	"net"
)

// eventKind distinguishes the handful of things that can wake up the
// server goroutine. This is the Go realization of the reference's
// poll(2)-driven dispatch: one channel, one goroutine draining it,
// acting as the sole mutator of all registry state.
type eventKind int

const (
	eventNewConn eventKind = iota
	eventClientLine
	eventClientDead
)

// serverEvent is the unit of work the acceptor and per-client reader
// goroutines hand to the server goroutine.
type serverEvent struct {
	kind   eventKind
	conn   net.Conn
	client *Client
	line   string
	err    error
}

// acceptLoop turns incoming connections into eventNewConn events. It
// never decides admission itself — only the server goroutine does,
// since only it knows the current live client count (step 3 of §4.5).
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			log.Printf("Accept error: %s", err)
			continue
		}

		select {
		case s.events <- serverEvent{kind: eventNewConn, conn: conn}:
		case <-s.shutdown:
			if cerr := conn.Close(); cerr != nil {
				log.Printf("Problem closing connection during shutdown: %s", cerr)
			}
			return
		}
	}
}

// readLoop performs the equivalent of the reference's non-blocking recv
// loop for one client: one read of up to recvBufferSize bytes at a time,
// fed through Client.Feed to extract complete lines. Go's net.Conn.Read
// reports peer close as io.EOF rather than a 0-byte read; we treat any
// read error as the connection-fatal case the spec describes.
func (s *Server) readLoop(c *Client) {
	defer s.wg.Done()

	for {
		data, err := c.Conn.Read()
		if err != nil {
			select {
			case s.events <- serverEvent{kind: eventClientDead, client: c, err: err}:
			case <-s.shutdown:
			}
			return
		}

		for _, line := range c.Feed(data) {
			select {
			case s.events <- serverEvent{kind: eventClientLine, client: c, line: line}:
			case <-s.shutdown:
				return
			}
		}
	}
}

// writeLoop drains a client's outbound queue and writes each message to
// its socket. A write failure is logged and otherwise ignored — per
// §4.6 a partial or failed send is best-effort and never itself drops
// the client. The client is only ever torn down via the read side
// noticing the connection is gone, or via an explicit disconnect.
func (s *Server) writeLoop(c *Client) {
	defer s.wg.Done()

	for m := range c.WriteChan {
		if err := c.Conn.WriteMessage(m); err != nil {
			log.Printf("Client %s: write error: %s", c, err)
		}
	}
}

// run is the server goroutine: the single mutator of all registry
// state. It owns s.clients, s.nicks, and s.channels for the entire
// process lifetime.
func (s *Server) run() {
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-s.shutdown:
			s.shutdownAllClients()
			return
		}
	}
}

func (s *Server) handleEvent(ev serverEvent) {
	switch ev.kind {
	case eventNewConn:
		s.handleNewConn(ev.conn)
	case eventClientLine:
		if !s.isLive(ev.client) {
			return
		}
		if ev.client.sendQueueExceeded {
			s.disconnect(ev.client, "SendQ exceeded")
			return
		}
		s.dispatch(ev.client, parseLine(ev.line))
	case eventClientDead:
		if !s.isLive(ev.client) {
			return
		}
		s.disconnect(ev.client, quitReasonForError(ev.err))
	}
}

// handleNewConn admits a connection or rejects it per MAX_CLIENTS. This
// is the only place the live-client count is compared against the
// configured maximum, so there is no race between accepting and
// counting.
func (s *Server) handleNewConn(conn net.Conn) {
	if len(s.clients) >= s.Config.MaxClients {
		if err := conn.Close(); err != nil {
			log.Printf("Problem closing rejected connection: %s", err)
		}
		return
	}

	s.nextID++
	id := s.nextID

	wrapped := NewConn(conn)
	c := newClient(id, wrapped, wrapped.RemoteHost())
	s.clients[id] = c

	log.Printf("New client: %s", c)

	s.wg.Add(2)
	go s.readLoop(c)
	go s.writeLoop(c)
}

func (s *Server) shutdownAllClients() {
	for _, c := range s.clients {
		s.disconnect(c, "Server shutting down")
	}
}

// quitReasonForError turns a read error into the text sent to the
// client along with its ERROR line.
func quitReasonForError(err error) string {
	if err == nil {
		return "Connection closed"
	}
	return err.Error()
}
