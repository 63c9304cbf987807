package main

import "github.com/horgh/irc"

// sendNumeric sends a numeric reply to c, from the server, prefixing the
// client's current nickname (or "*" before one is set) the way every
// numeric reply must.
func (s *Server) sendNumeric(c *Client, code string, params ...string) {
	nick := c.Nick
	if nick == "" {
		nick = "*"
	}

	full := make([]string, 0, len(params)+1)
	full = append(full, nick)
	full = append(full, params...)

	c.maybeQueueMessage(irc.Message{
		Prefix:  s.Config.ServerName,
		Command: code,
		Params:  full,
	})
}

// relay sends a message to "to" that appears to originate from "from",
// the pattern used for JOIN/PART/PRIVMSG/KICK/INVITE/TOPIC/MODE lines.
func relay(from *Client, to *Client, command string, params ...string) {
	to.maybeQueueMessage(irc.Message{
		Prefix:  from.hostmask(),
		Command: command,
		Params:  params,
	})
}

// broadcast relays a message to every member of ch, optionally skipping
// one client (PRIVMSG/PART-with-self semantics differ per caller).
func (s *Server) broadcast(ch *Channel, from *Client, command string, skip *Client, params ...string) {
	for id := range ch.Members {
		member, ok := s.clients[id]
		if !ok {
			continue
		}
		if skip != nil && member.ID == skip.ID {
			continue
		}
		relay(from, member, command, params...)
	}
}

func errorMessage(reason string) irc.Message {
	return irc.Message{Command: "ERROR", Params: []string{reason}}
}
