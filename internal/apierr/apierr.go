package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced in API responses. Services return these so
// handlers can map failures without string matching.
const (
	CodeInvalidInput         = "invalid_input"
	CodeMissingConfiguration = "missing_configuration"
	CodeTemplateMissing      = "template_missing"
	CodeProviderError        = "provider_error"
	CodePackagingError       = "packaging_error"
	CodeNotFound             = "not_found"
	CodeForbidden            = "forbidden"
	CodeNotReady             = "not_ready"
	CodeUnauthorized         = "unauthorized"
	CodeInternal             = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeInvalidInput, fmt.Errorf(format, args...))
}

func MissingConfiguration(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeMissingConfiguration, fmt.Errorf(format, args...))
}

func TemplateMissing(format string, args ...interface{}) *Error {
	return New(http.StatusInternalServerError, CodeTemplateMissing, fmt.Errorf(format, args...))
}

func ProviderError(err error) *Error {
	return New(http.StatusBadGateway, CodeProviderError, err)
}

func PackagingError(err error) *Error {
	return New(http.StatusInternalServerError, CodePackagingError, err)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

func NotReady(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeNotReady, fmt.Errorf(format, args...))
}

// From pulls the *Error out of a wrapped chain, defaulting to a 500 so
// handlers never leak raw error text with an unmapped status.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// CodeOf reports the stable code of err, or internal_error for plain errors.
func CodeOf(err error) string {
	if ae := From(err); ae != nil {
		return ae.Code
	}
	return ""
}
