package main

import (
	"strconv"
	"strings"

	"github.com/horgh/irc"
)

// dispatch routes one parsed message to its handler. A blank Command
// means the line was empty or failed to parse; both are silently
// dropped (taxonomy class 5).
func (s *Server) dispatch(c *Client, m irc.Message) {
	if m.Command == "" {
		return
	}
	m.Command = strings.ToUpper(m.Command)

	if !c.Registered && !preRegistrationAllowed(m.Command) {
		s.sendNumeric(c, errNotRegistered, "You have not registered")
		return
	}

	switch m.Command {
	case "PASS":
		s.handlePass(c, m)
	case "NICK":
		s.handleNick(c, m)
	case "USER":
		s.handleUser(c, m)
	case "PING":
		s.handlePing(c, m)
	case "QUIT":
		s.handleQuit(c, m)
	case "WHOIS":
		s.handleWhois(c, m)
	case "JOIN":
		s.handleJoin(c, m)
	case "PART":
		s.handlePart(c, m)
	case "PRIVMSG":
		s.handlePrivmsg(c, m)
	case "KICK":
		s.handleKick(c, m)
	case "INVITE":
		s.handleInvite(c, m)
	case "TOPIC":
		s.handleTopic(c, m)
	case "MODE":
		s.handleMode(c, m)
	default:
		if c.Registered {
			s.sendNumeric(c, errUnknownCommand, m.Command, "Unknown command")
		}
	}
}

// preRegistrationAllowed is the whitelist an unregistered client may
// still use (invariant 7).
func preRegistrationAllowed(command string) bool {
	switch command {
	case "PASS", "NICK", "USER", "PING", "QUIT":
		return true
	default:
		return false
	}
}

func (s *Server) handlePass(c *Client, m irc.Message) {
	if len(m.Params) < 1 {
		s.sendNumeric(c, errNeedMoreParams, "PASS", "Not enough parameters")
		return
	}
	if c.Authenticated {
		s.sendNumeric(c, errAlreadyRegistred, "You may not reregister")
		return
	}
	if m.Params[0] != s.Config.Password {
		s.sendNumeric(c, errPasswdMismatch, "Password incorrect")
		return
	}
	c.Authenticated = true
}

func (s *Server) handleNick(c *Client, m irc.Message) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		s.sendNumeric(c, errNoNicknameGiven, "No nickname given")
		return
	}
	if !c.Authenticated {
		s.sendNumeric(c, errPasswdMismatch, "Password incorrect")
		return
	}

	nick := m.Params[0]
	if id, ok := s.nicks[nick]; ok && id != c.ID {
		s.sendNumeric(c, errNicknameInUse, nick, "Nickname is already in use")
		return
	}

	if c.Nick != "" {
		delete(s.nicks, c.Nick)
	}
	c.Nick = nick
	s.nicks[nick] = c.ID

	s.maybeWelcome(c)
}

func (s *Server) handleUser(c *Client, m irc.Message) {
	if len(m.Params) < 4 || m.Params[3] == "" {
		s.sendNumeric(c, errNeedMoreParams, "USER", "Not enough parameters")
		return
	}
	if !c.Authenticated {
		s.sendNumeric(c, errPasswdMismatch, "Password incorrect")
		return
	}
	if c.User != "" {
		s.sendNumeric(c, errAlreadyRegistred, "You may not reregister")
		return
	}

	c.User = m.Params[0]
	c.RealName = m.Params[3]

	s.maybeWelcome(c)
}

// maybeWelcome sends the four-line welcome sequence the first (and
// only the first) time a client becomes fully registered.
func (s *Server) maybeWelcome(c *Client) {
	if c.Registered || !c.fullyRegistered() {
		return
	}
	c.Registered = true

	s.sendNumeric(c, rplWelcome, "Welcome to the Internet Relay Network "+c.hostmask())
	s.sendNumeric(c, rplYourHost, "Your host is "+s.Config.ServerName+", running version "+s.Config.Version)
	s.sendNumeric(c, rplCreated, "This server was created for you")
	s.sendNumeric(c, rplMyInfo, s.Config.ServerName, s.Config.Version, "o", "itkl")
}

func (s *Server) handlePing(c *Client, m irc.Message) {
	token := ""
	if len(m.Params) > 0 {
		token = m.Params[0]
	}
	c.maybeQueueMessage(irc.Message{
		Prefix:  s.Config.ServerName,
		Command: "PONG",
		Params:  []string{token},
	})
}

func (s *Server) handleQuit(c *Client, m irc.Message) {
	reason := "Client Quit"
	if len(m.Params) > 0 && m.Params[len(m.Params)-1] != "" {
		reason = m.Params[len(m.Params)-1]
	}
	s.disconnect(c, reason)
}

func (s *Server) handleWhois(c *Client, m irc.Message) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		s.sendNumeric(c, errNoNicknameGiven, "No nickname given")
		return
	}

	target, ok := s.findClientByNick(m.Params[0])
	if !ok {
		s.sendNumeric(c, errNoSuchNick, m.Params[0], "No such nick")
		s.sendNumeric(c, rplEndOfWhois, m.Params[0], "End of WHOIS list")
		return
	}

	s.sendNumeric(c, rplWhoisUser, target.Nick, target.User, target.Host, "*", target.RealName)
	s.sendNumeric(c, rplEndOfWhois, target.Nick, "End of WHOIS list")
}

func (s *Server) handleJoin(c *Client, m irc.Message) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		s.sendNumeric(c, errNeedMoreParams, "JOIN", "Not enough parameters")
		return
	}

	names := strings.Split(m.Params[0], ",")
	var keys []string
	if len(m.Params) > 1 {
		keys = strings.Split(m.Params[1], ",")
	}

	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		s.joinOne(c, name, key)
	}
}

func (s *Server) joinOne(c *Client, name, key string) {
	if !isValidChannelName(name) {
		s.sendNumeric(c, errNoSuchChannel, name, "No such channel")
		return
	}

	ch, ok := s.channels[name]
	if !ok {
		ch = newChannel(name)
		s.channels[name] = ch
	}

	// Branch order matches the reference: limit, then invite-only, then
	// key, so each failure mode reports exactly one numeric.
	if !ch.canJoin(c.ID, key) {
		switch {
		case ch.HasLimit && len(ch.Members) >= ch.Limit:
			s.sendNumeric(c, errChannelIsFull, name, "Cannot join channel (+l)")
		case ch.InviteOnly && !ch.isInvited(c.ID):
			s.sendNumeric(c, errInviteOnlyChan, name, "Cannot join channel (+i)")
		case ch.HasKey && key != ch.Key:
			s.sendNumeric(c, errBadChannelKey, name, "Cannot join channel (+k)")
		}
		return
	}

	result := ch.add(c.ID)
	if result == joinAlreadyPresent {
		return
	}

	c.Channels[name] = struct{}{}

	s.broadcast(ch, c, "JOIN", nil, name)

	if ch.Topic != "" {
		s.sendNumeric(c, rplTopic, name, ch.Topic)
	}

	s.sendNumeric(c, rplNamReply, "=", name, namesList(s, ch))
	s.sendNumeric(c, rplEndOfNames, name, "End of NAMES list")
}

// namesList renders a channel's member set as a space-separated list of
// nicknames, operators prefixed with '@'.
func namesList(s *Server, ch *Channel) string {
	var names []string
	for id := range ch.Members {
		member, ok := s.clients[id]
		if !ok {
			continue
		}
		if ch.isOperator(id) {
			names = append(names, "@"+member.Nick)
		} else {
			names = append(names, member.Nick)
		}
	}
	return strings.Join(names, " ")
}

func (s *Server) handlePart(c *Client, m irc.Message) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		s.sendNumeric(c, errNeedMoreParams, "PART", "Not enough parameters")
		return
	}

	reason := c.Nick
	if len(m.Params) > 1 && m.Params[len(m.Params)-1] != "" {
		reason = m.Params[len(m.Params)-1]
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		ch, ok := s.channels[name]
		if !ok || !ch.hasMember(c.ID) {
			s.sendNumeric(c, errNotOnChannel, name, "You're not on that channel")
			continue
		}

		s.broadcast(ch, c, "PART", nil, name, reason)
		s.removeClientFromChannel(c, ch)
	}
}

func (s *Server) handlePrivmsg(c *Client, m irc.Message) {
	if len(m.Params) < 2 || m.Params[0] == "" || m.Params[len(m.Params)-1] == "" {
		s.sendNumeric(c, errNeedMoreParams, "PRIVMSG", "Not enough parameters")
		return
	}

	target := m.Params[0]
	text := m.Params[len(m.Params)-1]

	if isValidChannelName(target) {
		ch, ok := s.channels[target]
		if !ok {
			s.sendNumeric(c, errNoSuchChannel, target, "No such channel")
			return
		}
		if !ch.hasMember(c.ID) {
			s.sendNumeric(c, errCannotSendToChan, target, "Cannot send to channel")
			return
		}
		s.broadcast(ch, c, "PRIVMSG", c, target, text)
		return
	}

	target2, ok := s.findClientByNick(target)
	if !ok {
		s.sendNumeric(c, errNoSuchNick, target, "No such nick")
		return
	}
	relay(c, target2, "PRIVMSG", target, text)
}

func (s *Server) handleKick(c *Client, m irc.Message) {
	if len(m.Params) < 2 {
		s.sendNumeric(c, errNeedMoreParams, "KICK", "Not enough parameters")
		return
	}

	name := m.Params[0]
	targetNick := m.Params[1]
	reason := c.Nick
	if len(m.Params) > 2 && m.Params[len(m.Params)-1] != "" {
		reason = m.Params[len(m.Params)-1]
	}

	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(c, errNoSuchChannel, name, "No such channel")
		return
	}
	if !ch.hasMember(c.ID) {
		s.sendNumeric(c, errNotOnChannel, name, "You're not on that channel")
		return
	}
	if !ch.isOperator(c.ID) {
		s.sendNumeric(c, errChanOPrivsNeeded, name, "You're not channel operator")
		return
	}

	target, ok := s.findClientByNick(targetNick)
	if !ok {
		s.sendNumeric(c, errNoSuchNick, targetNick, "No such nick")
		return
	}
	if !ch.hasMember(target.ID) {
		s.sendNumeric(c, errUserNotInChannel, targetNick, name, "They aren't on that channel")
		return
	}

	s.broadcast(ch, c, "KICK", nil, name, targetNick, reason)
	s.removeClientFromChannel(target, ch)
}

func (s *Server) handleInvite(c *Client, m irc.Message) {
	if len(m.Params) < 2 {
		s.sendNumeric(c, errNeedMoreParams, "INVITE", "Not enough parameters")
		return
	}

	targetNick := m.Params[0]
	name := m.Params[1]

	target, ok := s.findClientByNick(targetNick)
	if !ok {
		s.sendNumeric(c, errNoSuchNick, targetNick, "No such nick")
		return
	}

	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(c, errNoSuchChannel, name, "No such channel")
		return
	}
	if !ch.hasMember(c.ID) {
		s.sendNumeric(c, errNotOnChannel, name, "You're not on that channel")
		return
	}
	if ch.InviteOnly && !ch.isOperator(c.ID) {
		s.sendNumeric(c, errChanOPrivsNeeded, name, "You're not channel operator")
		return
	}
	if ch.hasMember(target.ID) {
		s.sendNumeric(c, errUserOnChannel, targetNick, name, "is already on channel")
		return
	}

	ch.invite(target.ID)

	s.sendNumeric(c, rplInviting, targetNick, name)
	relay(c, target, "INVITE", targetNick, name)
}

func (s *Server) handleTopic(c *Client, m irc.Message) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		s.sendNumeric(c, errNeedMoreParams, "TOPIC", "Not enough parameters")
		return
	}

	name := m.Params[0]
	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(c, errNoSuchChannel, name, "No such channel")
		return
	}
	if !ch.hasMember(c.ID) {
		s.sendNumeric(c, errNotOnChannel, name, "You're not on that channel")
		return
	}

	if len(m.Params) < 2 {
		if ch.Topic == "" {
			s.sendNumeric(c, rplNoTopic, name, "No topic is set")
		} else {
			s.sendNumeric(c, rplTopic, name, ch.Topic)
		}
		return
	}

	if ch.TopicRestricted && !ch.isOperator(c.ID) {
		s.sendNumeric(c, errChanOPrivsNeeded, name, "You're not channel operator")
		return
	}

	ch.setTopic(m.Params[len(m.Params)-1])
	s.broadcast(ch, c, "TOPIC", nil, name, ch.Topic)
}

func (s *Server) handleMode(c *Client, m irc.Message) {
	if len(m.Params) < 1 || m.Params[0] == "" {
		s.sendNumeric(c, errNeedMoreParams, "MODE", "Not enough parameters")
		return
	}

	name := m.Params[0]
	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(c, errNoSuchChannel, name, "No such channel")
		return
	}

	if len(m.Params) < 2 {
		modeString := ch.modeString()
		if modeString == "" {
			modeString = "+"
		}
		s.sendNumeric(c, rplChannelModeIs, name, modeString)
		return
	}

	if !ch.isOperator(c.ID) {
		s.sendNumeric(c, errChanOPrivsNeeded, name, "You're not channel operator")
		return
	}

	args := m.Params[2:]
	argIdx := 0
	nextArg := func() (string, bool) {
		if argIdx >= len(args) {
			return "", false
		}
		a := args[argIdx]
		argIdx++
		return a, true
	}

	var consumed []string
	sign := '+'

	for _, r := range m.Params[1] {
		switch r {
		case '+', '-':
			sign = r
		case 'i':
			ch.setInviteOnly(sign == '+')
		case 't':
			ch.setTopicRestricted(sign == '+')
		case 'k':
			if sign == '+' {
				arg, ok := nextArg()
				if !ok {
					s.sendNumeric(c, errNeedMoreParams, "MODE", "Not enough parameters")
					continue
				}
				ch.setKey(arg)
				consumed = append(consumed, arg)
			} else {
				ch.removeKey()
			}
		case 'l':
			if sign == '+' {
				arg, ok := nextArg()
				if !ok {
					s.sendNumeric(c, errNeedMoreParams, "MODE", "Not enough parameters")
					continue
				}
				limit, err := strconv.Atoi(arg)
				if err == nil && limit > 0 {
					ch.setLimit(limit)
					consumed = append(consumed, arg)
				}
			} else {
				ch.removeLimit()
			}
		case 'o':
			arg, ok := nextArg()
			if !ok {
				s.sendNumeric(c, errNeedMoreParams, "MODE", "Not enough parameters")
				continue
			}
			target, ok := s.findClientByNick(arg)
			if !ok {
				s.sendNumeric(c, errNoSuchNick, arg, "No such nick")
				continue
			}
			if !ch.hasMember(target.ID) {
				s.sendNumeric(c, errUserNotInChannel, arg, name, "They aren't on that channel")
				continue
			}
			if sign == '+' {
				ch.Operators[target.ID] = struct{}{}
			} else {
				delete(ch.Operators, target.ID)
			}
			consumed = append(consumed, arg)
		}
	}

	params := append([]string{name, m.Params[1]}, consumed...)
	s.broadcast(ch, c, "MODE", nil, params...)
}
