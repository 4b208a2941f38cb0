// Package command handles the inbound SMS command protocol.
//
// Parse turns a raw message into a Command, the Authenticator checks the
// shared secret, the Processor applies /setnumber and /test, and the Poller
// walks the modem's message slots one index per poll.
//
// Grammar (keywords are case-sensitive, tokens whitespace-delimited):
//
//	/setnumber <password> <recipient>   change the alert recipient, confirmed to the new number
//	/test                               send a diagnostic text to the current recipient
//
// Anything else is ignored. Rejected commands are logged and never answered.
package command
