// Package etlerr defines the failure taxonomy shared by every stage of the
// extract, geocode and load run.
package etlerr

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Failure kinds. Match them with errors.Is.
var (
	ErrConnection       = eris.New("connection error")
	ErrQuery            = eris.New("query error")
	ErrGeocodingRequest = eris.New("geocoding request error")
	ErrGeocodingFormat  = eris.New("geocoding format error")
	ErrWrite            = eris.New("write error")
)

var kinds = []error{ErrConnection, ErrQuery, ErrGeocodingRequest, ErrGeocodingFormat, ErrWrite}

// Error tags an underlying failure with one of the kinds above.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Wrap annotates err with msg and tags it with kind. A nil err yields nil.
func Wrap(kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: eris.Wrap(err, msg)}
}

// Wrapf is Wrap with a format string.
func Wrapf(kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: eris.Wrapf(err, format, args...)}
}

// New creates a tagged error with no underlying cause.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Err: eris.New(msg)}
}

// Errorf is New with a format string.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Err: eris.Errorf(format, args...)}
}

// KindOf returns the kind of the first tagged error in err's chain, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Label returns a short log-friendly name for the kind of err.
func Label(err error) string {
	switch KindOf(err) {
	case ErrConnection:
		return "connection"
	case ErrQuery:
		return "query"
	case ErrGeocodingRequest:
		return "geocoding_request"
	case ErrGeocodingFormat:
		return "geocoding_format"
	case ErrWrite:
		return "write"
	default:
		return "unknown"
	}
}
