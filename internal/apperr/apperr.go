// Package apperr classifies failures into the kinds the API reports to users.
package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/best-shot/backend/pkg/response"
)

// Kind is the user-facing failure class.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindConflict
	KindFetch
	KindWrite
	KindRender
	KindUnavailable
)

// Error carries a kind, a message safe to show the user and the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound is an unknown code, participant or job.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

// Invalid is a malformed or disallowed request.
func Invalid(msg string) error { return &Error{Kind: KindInvalid, Msg: msg} }

// Conflict is a request that contradicts current state.
func Conflict(msg string, err error) error { return &Error{Kind: KindConflict, Msg: msg, Err: err} }

// Fetch is a failed read.
func Fetch(msg string, err error) error { return &Error{Kind: KindFetch, Msg: msg, Err: err} }

// Write is a failed insert, update or delete. The user may retry.
func Write(msg string, err error) error { return &Error{Kind: KindWrite, Msg: msg, Err: err} }

// Render is a failed PDF composition.
func Render(msg string, err error) error { return &Error{Kind: KindRender, Msg: msg, Err: err} }

// Unavailable is a feature whose backing service is not configured.
func Unavailable(msg string) error { return &Error{Kind: KindUnavailable, Msg: msg} }

// KindOf returns the kind of err, KindInternal when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as a JSON envelope. Server-side failures are logged with their cause.
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Msg: "internal error", Err: err}
	}
	status := Status(e.Kind)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error(e.Msg, zap.Error(e.Err), zap.String("path", c.Request.URL.Path))
	}
	response.Error(c, status, e.Msg)
}
