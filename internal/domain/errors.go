package domain

import (
	"errors"
	"net/http"
)

// Code classifies an AppError.
type Code int

// Error codes for dashboard and backend errors.
const (
	CodeNotFound      Code = 1
	CodeAlreadyExists Code = 2
	CodeValidation    Code = 3
	CodeInternal      Code = 4
	// CodeUnavailable: the backend could not be reached or answered 5xx.
	CodeUnavailable Code = 5
	// CodeBadGateway: the backend answered with a body of unknown shape.
	CodeBadGateway Code = 6
)

type codeInfo struct {
	name   string
	status int
	public bool
}

var codes = map[Code]codeInfo{
	CodeNotFound:      {"not_found", http.StatusNotFound, true},
	CodeAlreadyExists: {"already_exists", http.StatusConflict, true},
	CodeValidation:    {"validation", http.StatusBadRequest, true},
	CodeInternal:      {"internal", http.StatusInternalServerError, false},
	CodeUnavailable:   {"unavailable", http.StatusServiceUnavailable, true},
	CodeBadGateway:    {"bad_gateway", http.StatusBadGateway, true},
}

// String returns the code name used in logs.
func (c Code) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return "unknown"
}

// Public reports whether messages of this code may be shown to users.
// Internal messages can carry technical details and never are.
func (c Code) Public() bool { return codes[c].public }

// AppError is an error with a code, a message fit for its audience and an
// optional cause.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates an AppError.
func NewAppError(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) (Code, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return 0, false
}

func IsNotFound(err error) bool      { return hasCode(err, CodeNotFound) }
func IsAlreadyExists(err error) bool { return hasCode(err, CodeAlreadyExists) }
func IsValidation(err error) bool    { return hasCode(err, CodeValidation) }
func IsInternal(err error) bool      { return hasCode(err, CodeInternal) }
func IsUnavailable(err error) bool   { return hasCode(err, CodeUnavailable) }
func IsBadGateway(err error) bool    { return hasCode(err, CodeBadGateway) }

func hasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// HTTPStatusCode maps err to an HTTP status; anything that is not an
// AppError of a known code is a 500.
func HTTPStatusCode(err error) int {
	if c, ok := CodeOf(err); ok {
		if info, known := codes[c]; known {
			return info.status
		}
	}
	return http.StatusInternalServerError
}
