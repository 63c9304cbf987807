package main

// Numeric reply codes the server sends to clients. Naming follows the
// RFC 1459/2812 RPL_/ERR_ convention even though we only implement the
// subset this server actually uses.
const (
	rplWelcome       = "001"
	rplYourHost      = "002"
	rplCreated       = "003"
	rplMyInfo        = "004"
	rplWhoisUser     = "311"
	rplEndOfWhois    = "318"
	rplChannelModeIs = "324"
	rplNoTopic       = "331"
	rplTopic         = "332"
	rplInviting      = "341"
	rplNamReply      = "353"
	rplEndOfNames    = "366"

	errNoSuchNick       = "401"
	errNoSuchChannel    = "403"
	errCannotSendToChan = "404"
	errUnknownCommand   = "421"
	errNoNicknameGiven  = "431"
	errNicknameInUse    = "433"
	errUserNotInChannel = "441"
	errNotOnChannel     = "442"
	errUserOnChannel    = "443"
	errNotRegistered    = "451"
	errNeedMoreParams   = "461"
	errAlreadyRegistred = "462"
	errPasswdMismatch   = "464"
	errChannelIsFull    = "471"
	errInviteOnlyChan   = "473"
	errBadChannelKey    = "475"
	errChanOPrivsNeeded = "482"
)
