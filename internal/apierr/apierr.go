// Package apierr defines the structured error taxonomy shared by the API
// routes and proxy endpoints. Every error carries a Kind that maps to an
// HTTP status code and a human-readable detail string.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status-code mapping and logging.
type Kind int

const (
	// MissingParameters: required request parameters absent (400).
	MissingParameters Kind = iota
	// InvalidCredentials: upstream rejected the supplied credentials (400).
	InvalidCredentials
	// AuthMalformed: auth response missing user_info/server_info (400).
	AuthMalformed
	// UpstreamTransport: network/TLS failure reaching the upstream (503).
	UpstreamTransport
	// InvalidCatalogFormat: mandatory catalog endpoints not list-shaped (500).
	InvalidCatalogFormat
	// ProxyTimeout: upstream fetch timed out before streaming started (504).
	ProxyTimeout
	// ProxyUpstreamHTTP: upstream returned a non-2xx status; forwarded as-is.
	ProxyUpstreamHTTP
	// ProxyUnsupportedType: upstream content type not acceptable (415).
	ProxyUnsupportedType
	// ProxyGeneric: any other pre-stream proxy failure (500).
	ProxyGeneric
)

func (k Kind) String() string {
	switch k {
	case MissingParameters:
		return "Missing Parameters"
	case InvalidCredentials:
		return "Invalid Credentials"
	case AuthMalformed:
		return "Invalid Response"
	case UpstreamTransport:
		return "Request Exception"
	case InvalidCatalogFormat:
		return "Invalid Data Format"
	case ProxyTimeout:
		return "Upstream Timeout"
	case ProxyUpstreamHTTP:
		return "Upstream HTTP Error"
	case ProxyUnsupportedType:
		return "Unsupported Content Type"
	case ProxyGeneric:
		return "Proxy Failure"
	}
	return "Unknown Error"
}

// Error is a classified error with an upstream status code where relevant.
type Error struct {
	Kind           Kind
	Detail         string
	UpstreamStatus int   // set for ProxyUpstreamHTTP
	Err            error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted detail message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause, keeping it unwrappable.
func Wrap(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// HTTPStatus maps the error kind to the status code the caller should send.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case MissingParameters, InvalidCredentials, AuthMalformed:
		return http.StatusBadRequest
	case UpstreamTransport:
		return http.StatusServiceUnavailable
	case InvalidCatalogFormat:
		return http.StatusInternalServerError
	case ProxyTimeout:
		return http.StatusGatewayTimeout
	case ProxyUpstreamHTTP:
		if e.UpstreamStatus >= 100 {
			return e.UpstreamStatus
		}
		return http.StatusBadGateway
	case ProxyUnsupportedType:
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

// WriteJSON writes the error as the {"error","details"} JSON body the API
// routes use, with the mapped status code.
func WriteJSON(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = &Error{Kind: ProxyGeneric, Detail: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   ae.Kind.String(),
		"details": ae.Detail,
	})
}
