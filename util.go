package main

// isValidChannelName reports whether name could name a channel: it must
// begin with '#' or '&' and be more than one character long. Comparison
// elsewhere is byte-exact — channel names, like nicknames, are not
// case-folded (see the Nicknames open question in SPEC_FULL.md §9).
func isValidChannelName(name string) bool {
	if len(name) < 2 {
		return false
	}
	return name[0] == '#' || name[0] == '&'
}
