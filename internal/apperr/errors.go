package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and logging.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a malformed or missing request field, rejected before any I/O.
	KindValidation
	// KindNotFound is a missing referenced account, strategy, or bot.
	KindNotFound
	// KindConflict is a duplicate name or unique-index violation.
	KindConflict
	// KindUpstream is a failed orchestrator call; Status carries the upstream code.
	KindUpstream
	// KindPersistence is a store failure, possibly after remote state was already mutated.
	KindPersistence
)

type Error struct {
	Kind    Kind
	Message string
	// Status is the upstream HTTP status for KindUpstream errors.
	Status int
}

func (e *Error) Error() string {
	return e.Message
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Upstream(message string, status int) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: KindUpstream, Message: message, Status: status}
}

func Persistencef(format string, args ...any) *Error {
	return &Error{Kind: KindPersistence, Message: fmt.Sprintf(format, args...)}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf maps an error to the HTTP status returned to the caller.
// Upstream errors mirror the upstream status; everything else follows
// the conventional 400/404/409/500 mapping.
func StatusOf(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		if e.Status > 0 {
			return e.Status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
