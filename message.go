package main

import (
	"github.com/horgh/irc"
)

// parseLine turns one raw protocol line, with any trailing CR and/or LF
// already stripped, into a structured message.
//
// A blank line yields a message with an empty Command. The dispatcher
// drops those silently (invariant 7 / taxonomy class 5 in the design
// notes): we never treat a parse failure as a protocol error to report
// back to the client.
func parseLine(line string) irc.Message {
	if line == "" {
		return irc.Message{}
	}

	m, err := irc.ParseMessage(line + "\r\n")
	if err != nil {
		return irc.Message{}
	}

	return m
}
