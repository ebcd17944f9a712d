package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to decide how to react to it.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindSchema        Kind = "schema"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindBackend       Kind = "backend"
)

// Error is a classified error with a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrSchema        = &Error{Kind: KindSchema}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrBackend       = &Error{Kind: KindBackend}
)

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

func Configuration(format string, args ...any) error {
	return newf(KindConfiguration, nil, format, args...)
}

func Schema(err error, format string, args ...any) error {
	return newf(KindSchema, err, format, args...)
}

func Validation(format string, args ...any) error {
	return newf(KindValidation, nil, format, args...)
}

func NotFound(format string, args ...any) error {
	return newf(KindNotFound, nil, format, args...)
}

func Authorization(format string, args ...any) error {
	return newf(KindAuthorization, nil, format, args...)
}

// Backend wraps an infrastructure failure. An error that is already classified is
// returned unchanged so that wrapping at several layers keeps the innermost kind.
func Backend(err error, format string, args ...any) error {
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return newf(KindBackend, err, format, args...)
}

// KindOf reports the kind of err. Unclassified errors are backend errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindBackend
}

// DetailOf returns the human-readable detail of a classified error, or err.Error().
func DetailOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Detail != "" {
		return ae.Detail
	}
	return err.Error()
}
