// Package rpc holds what JSON-RPC method groups share with the dispatcher.
package rpc

import "fmt"

// Standard JSON-RPC error codes, plus the server-defined range
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
	CodeAuthRequired   = -32001
)

// Error represents an API error with an explicit JSON-RPC code
type Error struct {
	Code    int
	Message string
	Err     error
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// InvalidParams wraps err as an invalid-params error
func InvalidParams(err error) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API error %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
