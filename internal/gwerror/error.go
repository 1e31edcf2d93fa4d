package gwerror

import "net/http"

// Tags rendered to callers when authentication fails.
// They are stable identifiers, the message besides them is free text.
const (
	TagNoToken          = "NoToken"
	TagMalformedToken   = "MalformedToken"
	TagKeyNotFound      = "KeyNotFound"
	TagSignatureInvalid = "SignatureInvalid"
	TagExpired          = "Expired"
	TagIssuerMismatch   = "IssuerMismatch"
	TagAudienceMismatch = "AudienceMismatch"
)

// TagNotFound is rendered when a delete target does not exist.
const TagNotFound = "NotFound"

type (
	// A GWError represents the error format that can be rendered by the gateway.
	GWError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if gwerr, ok := err.(*GWError); ok && gwerr.HTTPCode != 0 {
		return gwerr.HTTPCode
	}
	return http.StatusInternalServerError
}

// Tag returns the error's tag when err is a GWError.
func Tag(err error) string {
	if gwerr, ok := err.(*GWError); ok {
		return gwerr.FieldError.Tag
	}
	return ""
}

// New returns a new GWError with the given message.
func New(message string) *GWError {
	return &GWError{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new GWError with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *GWError {
	return &GWError{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// Unauthorized returns a 401 GWError with the given authentication error tag.
func Unauthorized(tag, message string) *GWError {
	return NewWithTagCode(http.StatusUnauthorized, tag, message)
}

// NotFound returns a 404 GWError with the given message.
func NotFound(message string) *GWError {
	return NewWithTagCode(http.StatusNotFound, TagNotFound, message)
}

// Error implements error interface.
func (e *GWError) Error() string {
	return e.FieldError.Message
}
