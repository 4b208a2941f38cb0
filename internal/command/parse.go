package command

import (
	"strings"
)

// Command keywords.
const (
	KeywordSetNumber = "/setnumber"
	KeywordSelfTest  = "/test"
)

// Kind classifies a parsed message.
type Kind int

// Command kinds.
const (
	KindUnrecognized Kind = iota
	KindMalformed
	KindSetNumber
	KindSelfTest
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindUnrecognized:
		return "unrecognized"
	case KindMalformed:
		return "malformed"
	case KindSetNumber:
		return "setnumber"
	case KindSelfTest:
		return "test"
	default:
		return "unknown"
	}
}

// Command is one parsed inbound message.
type Command struct {
	// Kind is the classification.
	Kind Kind
	// Password is the secret supplied with /setnumber.
	Password string
	// Recipient is the new number supplied with /setnumber.
	Recipient string
}

// Parse classifies raw. Surrounding whitespace, including the line ending the
// modem leaves on the body, is ignored.
func Parse(raw string) Command {
	text := strings.TrimSpace(raw)

	fields := strings.Fields(text)
	if len(fields) > 0 && fields[0] == KeywordSetNumber {
		if len(fields) != 3 {
			return Command{Kind: KindMalformed}
		}

		return Command{
			Kind:      KindSetNumber,
			Password:  fields[1],
			Recipient: fields[2],
		}
	}

	if strings.HasPrefix(text, KeywordSelfTest) {
		return Command{Kind: KindSelfTest}
	}

	return Command{Kind: KindUnrecognized}
}
