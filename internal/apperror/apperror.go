// Package apperror defines the error taxonomy shared by the authorization flow,
// the access middleware and the policy layer, together with its HTTP mapping.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error. A Kind is itself an error so it can be used as the
// target of errors.Is.
type Kind int

const (
	// Unknown is the zero Kind, used for errors outside the taxonomy.
	Unknown Kind = iota
	MissingCredential
	MalformedCredential
	TokenInactive
	WrongTokenType
	Forbidden
	NotFound
	DuplicateIdentity
	GroupExists
	ValidationError
	UpstreamError
	Timeout
)

type kindInfo struct {
	name   string
	code   int
	status int
}

var kinds = map[Kind]kindInfo{ //nolint:gochecknoglobals
	Unknown:             {"InternalError", 5000, http.StatusInternalServerError},
	MissingCredential:   {"MissingCredential", 4010, http.StatusUnauthorized},
	MalformedCredential: {"MalformedCredential", 4011, http.StatusUnauthorized},
	TokenInactive:       {"TokenInactive", 4012, http.StatusUnauthorized},
	WrongTokenType:      {"WrongTokenType", 4013, http.StatusUnauthorized},
	Forbidden:           {"Forbidden", 4031, http.StatusForbidden},
	NotFound:            {"NotFound", 4041, http.StatusNotFound},
	DuplicateIdentity:   {"DuplicateIdentity", 4002, http.StatusConflict},
	GroupExists:         {"GroupExists", 4006, http.StatusConflict},
	ValidationError:     {"ValidationError", 4001, http.StatusBadRequest},
	UpstreamError:       {"UpstreamError", 5020, http.StatusBadGateway},
	Timeout:             {"Timeout", 5040, http.StatusGatewayTimeout},
}

func (k Kind) info() kindInfo {
	if i, ok := kinds[k]; ok {
		return i
	}

	return kinds[Unknown]
}

// Error implements error.
func (k Kind) Error() string { return k.info().name }

// String returns the name of the kind.
func (k Kind) String() string { return k.info().name }

// Code returns the stable numeric code of the kind.
func (k Kind) Code() int { return k.info().code }

// Status returns the HTTP status of the kind.
func (k Kind) Status() int { return k.info().status }

// Error is a classified error carrying everything needed to answer a client.
type Error struct {
	Kind         Kind
	Message      string
	Hint         string
	Requirements []string

	// UpstreamStatus and UpstreamBody are set for UpstreamError.
	UpstreamStatus int
	UpstreamBody   string

	Err error
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err returns nil.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Message: message, Err: err}
}

// Upstream builds an UpstreamError for a non successful answer of a remote service.
func Upstream(service string, status int, body string) *Error {
	return &Error{
		Kind:           UpstreamError,
		Message:        fmt.Sprintf("%s answered with status %d", service, status),
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

// WithHint sets the hint and returns the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithRequirements sets the requirements and returns the error.
func (e *Error) WithRequirements(req ...string) *Error {
	e.Requirements = req
	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}

	return []error{e.Kind}
}

// Code returns the stable numeric code.
func (e *Error) Code() int { return e.Kind.Code() }

// Status returns the HTTP status.
func (e *Error) Status() int { return e.Kind.Status() }

// KindOf returns the kind of err, Unknown if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	var k Kind
	if errors.As(err, &k) {
		return k
	}

	return Unknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
