package client

import (
	"errors"
	"fmt"
)

// ErrClosed is returned for requests issued on, or pending when, the client shuts down.
var ErrClosed = errors.New("client closed")

// ConnectionError is a dial or transport failure. It is fatal for the
// connection it was raised on.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RPCError is a well-formed error response from the node.
type RPCError struct {
	Command   string
	Code      string
	ErrorCode int
	Message   string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s (%d)", e.Command, e.Code, e.ErrorCode)
	}
	return fmt.Sprintf("%s: %s (%d): %s", e.Command, e.Code, e.ErrorCode, e.Message)
}

// IsRPCError reports whether err carries a node error with the given code,
// for example "txnNotFound" or "actNotFound".
func IsRPCError(err error, code string) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == code
}
