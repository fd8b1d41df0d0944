package naivehttp

import (
	"errors"
	"fmt"
)

const (
	// ErrorDomain identifies errors synthesized by this package.
	ErrorDomain = "naivehttp"
	// TransportDomain identifies transport errors passed through unchanged.
	TransportDomain = "naivehttp.transport"

	// Sentinel codes for locally synthesized failures. HTTP status failures
	// carry the status code itself.
	CodeBodyEncoding       = -1
	CodeMalformedURL       = -2
	CodeIncompleteResponse = -3

	statusFailureReason = "HTTP 400 or above error"
)

// Kind discriminates the source of a ClassifiedError.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindHTTPStatus
	KindBodyEncoding
	KindMalformedURL
	KindIncompleteResponse
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindBodyEncoding:
		return "body_encoding"
	case KindMalformedURL:
		return "malformed_url"
	case KindIncompleteResponse:
		return "incomplete_response"
	default:
		return "unknown"
	}
}

// ClassifiedError is the single failure value handed to failure and combined
// handlers.
type ClassifiedError struct {
	Kind        Kind
	Domain      string
	Code        int
	Reason      string
	Description string
	// Err is the underlying cause, if any. For KindTransport it is the
	// transport's error, untouched.
	Err error
}

// Error implements error. Transport errors report the transport's own message.
func (e *ClassifiedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == KindTransport && e.Err != nil {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Domain, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Domain, e.Description)
}

// Unwrap returns the wrapped cause.
func (e *ClassifiedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newTransportError(err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:        KindTransport,
		Domain:      TransportDomain,
		Reason:      "transport failure",
		Description: err.Error(),
		Err:         err,
	}
}

func newStatusError(status int) *ClassifiedError {
	return &ClassifiedError{
		Kind:        KindHTTPStatus,
		Domain:      ErrorDomain,
		Code:        status,
		Reason:      statusFailureReason,
		Description: fmt.Sprintf("HTTP Error %d", status),
	}
}

func newEncodingError(err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:        KindBodyEncoding,
		Domain:      ErrorDomain,
		Code:        CodeBodyEncoding,
		Reason:      "failed to convert body to JSON",
		Description: "request body could not be encoded",
		Err:         err,
	}
}

func newMalformedURLError(raw string, err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:        KindMalformedURL,
		Domain:      ErrorDomain,
		Code:        CodeMalformedURL,
		Reason:      "malformed url",
		Description: fmt.Sprintf("cannot build request url from %q", raw),
		Err:         err,
	}
}

func newIncompleteResponseError() *ClassifiedError {
	return &ClassifiedError{
		Kind:        KindIncompleteResponse,
		Domain:      ErrorDomain,
		Code:        CodeIncompleteResponse,
		Reason:      "transport contract violation",
		Description: "transport completed without error or response metadata",
	}
}

// AsClassified extracts a *ClassifiedError from err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce != nil {
		return ce, true
	}
	return nil, false
}

// IsHTTPStatus reports whether err is a status failure and returns the code.
func IsHTTPStatus(err error) (int, bool) {
	ce, ok := AsClassified(err)
	if !ok || ce.Kind != KindHTTPStatus {
		return 0, false
	}
	return ce.Code, true
}

// IsTransport reports whether err is a pass-through transport failure.
func IsTransport(err error) bool {
	ce, ok := AsClassified(err)
	return ok && ce.Kind == KindTransport
}

// IsBodyEncoding reports whether err is a local body encoding failure.
func IsBodyEncoding(err error) bool {
	ce, ok := AsClassified(err)
	return ok && ce.Kind == KindBodyEncoding
}
