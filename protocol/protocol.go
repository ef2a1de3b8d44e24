// Package protocol interprets completed HTTP exchanges with a governance node.
//
// A node reports failure in two ways, independently of each other:
//
//	status   body                      outcome
//	2xx      {"result": ...}           success, body returned verbatim
//	2xx      {"error": "bad proposal"} failure, "bad proposal"
//	non-2xx  {"error": "..."}          failure, server text
//	non-2xx  {}                        failure, "Unknown error"
//	any      not JSON                  malformed (caller reports a network error)
//
// Classify always yields exactly one of the two variants, so callers never
// inspect optional fields themselves.
package protocol

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"nodara-sdk/rpcerr"
)

// MaxBodySize caps how much of a response body is read (10 MiB).
const MaxBodySize = 10 << 20

// ErrorField is the body member that signals an application-level failure.
const ErrorField = "error"

var ErrMalformedBody = errors.New("malformed response body")

// Outcome is either a success payload or an error message, never both.
type Outcome struct {
	Status  int
	Payload []byte // Set on success
	Message string // Set on failure
	Failed  bool
}

// Err returns the RPCError for a failed outcome, nil otherwise.
func (o Outcome) Err() error {
	if !o.Failed {
		return nil
	}
	return &rpcerr.RPCError{Status: o.Status, Message: o.Message}
}

// ReadBody reads a response body up to MaxBodySize bytes.
func ReadBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxBodySize)
	}
	return body, nil
}

// Classify turns a status code and raw body into an Outcome.
// It returns ErrMalformedBody (wrapped) when the body is not valid JSON.
func Classify(status int, body []byte) (Outcome, error) {
	if !gjson.ValidBytes(body) {
		return Outcome{}, fmt.Errorf("%w: %q", ErrMalformedBody, truncate(body, 64))
	}

	msg, failed := ErrorText(gjson.GetBytes(body, ErrorField))
	if status >= 200 && status < 300 && !failed {
		return Outcome{Status: status, Payload: body}, nil
	}
	if !failed {
		msg = rpcerr.UnknownError
	}
	return Outcome{Status: status, Message: msg, Failed: true}, nil
}

// ErrorText reports whether an error member is set and what it says.
// Only absent, null, false, "" and 0 are unset; any object or array counts,
// empty or not.
func ErrorText(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.Null, gjson.False:
		return "", false
	case gjson.True:
		return "true", true
	case gjson.String:
		return v.Str, v.Str != ""
	case gjson.Number:
		return v.Raw, v.Num != 0
	}

	if v.IsObject() {
		if m := v.Get("message"); m.Type == gjson.String && m.Str != "" {
			return m.Str, true
		}
	}
	return strings.TrimSpace(v.Raw), true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
