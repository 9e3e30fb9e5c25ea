// Package faults carries the error kinds the gateway reports to its callers.
// The kind is attached where the failure happens and read back with KindOf;
// nothing downstream inspects error text.
package faults

import (
	"errors"
	"fmt"
)

// Kind enum
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindServiceUnavailable
	KindInvalidUpstream
	KindPersistence
	KindNotFound
	KindDuplicateIdentity
	KindUnauthorized
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindValidation:         "validation",
	KindServiceUnavailable: "service_unavailable",
	KindInvalidUpstream:    "invalid_upstream_response",
	KindPersistence:        "persistence",
	KindNotFound:           "not_found",
	KindDuplicateIdentity:  "duplicate_identity",
	KindUnauthorized:       "unauthorized",
	KindRateLimited:        "rate_limited",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a failure tagged with its Kind.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "analyses.Submit"
	Message string // safe to show to the caller
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, faults.ErrNotFound) works
// for every not-found failure regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrInvalidUpstream    = &Error{Kind: KindInvalidUpstream}
	ErrPersistence        = &Error{Kind: KindPersistence}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrDuplicateIdentity  = &Error{Kind: KindDuplicateIdentity}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrRateLimited        = &Error{Kind: KindRateLimited}
)

func New(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

func Validation(op, msg string) *Error {
	return New(KindValidation, op, msg, nil)
}

func ServiceUnavailable(op string, err error) *Error {
	return New(KindServiceUnavailable, op, "analysis service not reachable", err)
}

func InvalidUpstream(op, msg string, err error) *Error {
	return New(KindInvalidUpstream, op, msg, err)
}

func Persistence(op string, err error) *Error {
	return New(KindPersistence, op, "failed to persist record", err)
}

func NotFound(op, msg string) *Error {
	return New(KindNotFound, op, msg, nil)
}

func DuplicateIdentity(op, msg string) *Error {
	return New(KindDuplicateIdentity, op, msg, nil)
}

func Unauthorized(op, msg string) *Error {
	return New(KindUnauthorized, op, msg, nil)
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the caller-safe message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return ""
}
