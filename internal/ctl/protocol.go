// Package ctl carries the vserial control channel over a Unix domain
// socket. A connection holds exactly one request line and one reply line.
//
// Replies are either
//
//	ok#<payload>
//	err#<CODE>#<message>
//
// where CODE is one of the stable codes produced by vserial.ErrorCode.
package ctl

import (
	"fmt"
	"strings"

	vserial "github.com/allbin/go-vserial"
)

const (
	replyOK  = "ok"
	replyErr = "err"
	sep      = "#"
)

// Request verbs beyond the create/destroy commands vserial.ParseCommand
// understands.
const (
	VerbQuery = "query"
	VerbList  = "list"
	VerbInfo  = "info"
	VerbAttr  = "attr"
	VerbEvent = "evt"
	VerbHup   = "hup"
	VerbMctl  = "mctl"
	VerbWait  = "wait"
)

// RemoteError is an error reported by the server.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap maps the code back onto the vserial sentinel so callers can use
// errors.Is on client errors as they would on local ones.
func (e *RemoteError) Unwrap() error {
	return vserial.ErrorFromCode(e.Code)
}

func formatOK(payload string) string {
	return replyOK + sep + payload
}

func formatError(err error) string {
	msg := strings.NewReplacer("\r", " ", "\n", " ").Replace(err.Error())
	return replyErr + sep + vserial.ErrorCode(err) + sep + msg
}

// parseReply splits a reply line into its payload or a *RemoteError.
func parseReply(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	status, rest, _ := strings.Cut(line, sep)
	switch status {
	case replyOK:
		return rest, nil
	case replyErr:
		code, msg, _ := strings.Cut(rest, sep)
		return "", &RemoteError{Code: code, Message: msg}
	default:
		return "", fmt.Errorf("%w: malformed reply %q", vserial.ErrIO, line)
	}
}
