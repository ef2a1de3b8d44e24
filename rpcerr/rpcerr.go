// Package rpcerr defines the two ways a governance call can fail.
//
//   - RPCError:     the node answered, but the answer signals failure
//     (non-2xx status or an "error" member in the body).
//   - NetworkError: no well-formed exchange took place (serialization,
//     connection, timeout, malformed body).
package rpcerr

import (
	"errors"
	"fmt"
)

// UnknownError is reported when the node failed without saying why.
const UnknownError = "Unknown error"

type RPCError struct {
	Status  int    // HTTP status of the failed exchange
	Message string // Server-provided error text, or UnknownError
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error: %s", e.Message)
}

type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Network wraps err as a NetworkError, leaving nil and already classified errors alone.
func Network(err error) error {
	if err == nil {
		return nil
	}
	var ne *NetworkError
	var re *RPCError
	if errors.As(err, &ne) || errors.As(err, &re) {
		return err
	}
	return &NetworkError{Err: err}
}

func IsRPC(err error) bool {
	var re *RPCError
	return errors.As(err, &re)
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
