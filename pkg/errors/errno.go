// Package errors provides the unified error model of the IAM services.
//
// Every error returned across a package boundary is an *Errno: a registered,
// globally unique code plus the HTTP status, gRPC code and bilingual message
// used when the error reaches a transport.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service/Module code
//	BB  (00-99): Category code
//	CCC (000-999): Sequence number within the category
//
// Usage:
//
//	// Using predefined errors
//	return errors.ErrInvalidParam.WithMessage("name is required")
//
//	// Wrapping underlying errors
//	return errors.ErrDatabase.WithCause(err)
//
//	// Registering a new error
//	var ErrCustom = errors.Register(&errors.Errno{
//	    Code:      errors.MakeCode(errors.ServiceIAM, errors.CategoryRequest, 99),
//	    HTTP:      http.StatusBadRequest,
//	    GRPCCode:  codes.InvalidArgument,
//	    MessageEN: "Custom error",
//	    MessageZH: "自定义错误",
//	})
package errors

import (
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
)

// Errno represents a structured error with code and messages.
type Errno struct {
	// Code is the unique error code
	Code int `json:"code"`

	// HTTP is the HTTP status code to return
	HTTP int `json:"-"`

	// GRPCCode is the gRPC status code
	GRPCCode codes.Code `json:"-"`

	// MessageEN is the English error message
	MessageEN string `json:"message"`

	// MessageZH is the Chinese error message
	MessageZH string `json:"message_zh,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

func (e *Errno) clone() *Errno {
	return &Errno{
		Code:      e.Code,
		HTTP:      e.HTTP,
		GRPCCode:  e.GRPCCode,
		MessageEN: e.MessageEN,
		MessageZH: e.MessageZH,
		cause:     e.cause,
	}
}

// WithCause creates a new Errno with the given cause.
func (e *Errno) WithCause(cause error) *Errno {
	n := e.clone()
	n.cause = cause
	return n
}

// WithMessage creates a new Errno with custom English message.
func (e *Errno) WithMessage(msg string) *Errno {
	n := e.clone()
	n.MessageEN = msg
	return n
}

// WithMessagef creates a new Errno with formatted English message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithMessages creates a new Errno with custom English and Chinese messages.
func (e *Errno) WithMessages(en, zh string) *Errno {
	n := e.clone()
	n.MessageEN = en
	n.MessageZH = zh
	return n
}

// Message returns the message based on language.
func (e *Errno) Message(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "zh") {
		if e.MessageZH != "" {
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// HTTPStatus returns the HTTP status code.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return http.StatusInternalServerError
}

// GRPCStatus returns the gRPC status code.
func (e *Errno) GRPCStatus() codes.Code {
	if e.GRPCCode != codes.OK {
		return e.GRPCCode
	}
	return codes.Internal
}

// Category returns the category part of the code.
func (e *Errno) Category() int {
	return GetCategory(e.Code)
}

// Is checks if this error matches the target error code.
func (e *Errno) Is(target error) bool {
	if t, ok := target.(*Errno); ok {
		return e.Code == t.Code
	}
	return false
}

// Format implements fmt.Formatter for better error formatting.
func (e *Errno) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "errno %d [HTTP %d, gRPC %s]: %s", e.Code, e.HTTP, e.GRPCCode.String(), e.MessageEN)
			if e.cause != nil {
				_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}
