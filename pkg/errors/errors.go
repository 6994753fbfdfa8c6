// Package errors provides structured error types for the evhttpd server core.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the category of error that occurred.
type ErrorType string

const (
	// Stream errors
	ErrorTypeEndOfStream    ErrorType = "end_of_stream"
	ErrorTypePartialMessage ErrorType = "partial_message"
	ErrorTypeNeedBuffer     ErrorType = "need_buffer"
	ErrorTypeBufferOverflow ErrorType = "buffer_overflow"
	ErrorTypeShortRead      ErrorType = "short_read"

	// Request-line errors
	ErrorTypeEmptyMethod   ErrorType = "empty_method"
	ErrorTypeBadMethod     ErrorType = "bad_method"
	ErrorTypeUnknownMethod ErrorType = "unknown_method"
	ErrorTypeBadUri        ErrorType = "bad_uri"
	ErrorTypeBadScheme     ErrorType = "bad_scheme"
	ErrorTypeEmptyHost     ErrorType = "empty_host"
	ErrorTypeBadHost       ErrorType = "bad_host"
	ErrorTypeTooBigPort    ErrorType = "too_big_port"
	ErrorTypeBadPort       ErrorType = "bad_port"
	ErrorTypeBadPath       ErrorType = "bad_path"
	ErrorTypeBadParams     ErrorType = "bad_params"

	// Version/status errors
	ErrorTypeBadVersion    ErrorType = "bad_version"
	ErrorTypeUnknownStatus ErrorType = "unknown_status"
	ErrorTypeBadStatus     ErrorType = "bad_status"
	ErrorTypeBadReason     ErrorType = "bad_reason"

	// Header errors
	ErrorTypeBadHeader             ErrorType = "bad_header"
	ErrorTypeBadHeaderName         ErrorType = "bad_header_name"
	ErrorTypeBadHeaderValue        ErrorType = "bad_header_value"
	ErrorTypeEmptyHeaderName       ErrorType = "empty_header_name"
	ErrorTypeEmptyHeaderValue      ErrorType = "empty_header_value"
	ErrorTypeBadContentLength      ErrorType = "bad_content_length"
	ErrorTypeMultipleContentLength ErrorType = "multiple_content_length"
	ErrorTypeBadTransferEncoding   ErrorType = "bad_transfer_encoding"
	ErrorTypeBadObsFold            ErrorType = "bad_obs_fold"
	ErrorTypeBadLineEnding         ErrorType = "bad_line_ending"

	// Body errors
	ErrorTypeUnexpectedBody                 ErrorType = "unexpected_body"
	ErrorTypeBodyLimit                      ErrorType = "body_limit"
	ErrorTypeBodySizeBiggerThanContentLength ErrorType = "body_size_bigger_than_content_length"

	// Timeout errors
	ErrorTypeRecvRequestTimeoutWithNothing     ErrorType = "recv_request_timeout_with_nothing"
	ErrorTypeRecvRequestLineTimeout            ErrorType = "recv_request_line_timeout"
	ErrorTypeRecvRequestHeadersTimeout         ErrorType = "recv_request_headers_timeout"
	ErrorTypeRecvRequestBodyTimeout            ErrorType = "recv_request_body_timeout"
	ErrorTypeSendTimeout                       ErrorType = "send_timeout"
	ErrorTypeSendResponseTimeoutWithNothing    ErrorType = "send_response_timeout_with_nothing"
	ErrorTypeSendResponseLineAndHeadersTimeout ErrorType = "send_response_line_and_headers_timeout"
	ErrorTypeSendResponseBodyTimeout           ErrorType = "send_response_body_timeout"

	// Response generation
	ErrorTypeInvalidResponse ErrorType = "invalid_response"

	// Handler dispatch
	ErrorTypeEmptyHandler ErrorType = "empty_handler"

	// Validation (server configuration)
	ErrorTypeValidation ErrorType = "validation"
)

// Error represents a structured error with context information.
type Error struct {
	Type      ErrorType `json:"type"`
	Op        string    `json:"op"`
	Message   string    `json:"message"`
	Cause     error     `json:"cause,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
// Format: [type] op: message: cause
func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Type))
	if e.Op != "" {
		parts = append(parts, e.Op)
	}

	errStr := strings.Join(parts, " ")
	if e.Message != "" {
		errStr += ": " + e.Message
	}
	if e.Cause != nil {
		errStr += ": " + e.Cause.Error()
	}
	return errStr
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target type.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Type == t.Type
	}
	return false
}

func newError(t ErrorType, op, message string) *Error {
	return &Error{
		Type:      t,
		Op:        op,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// ErrNeedMore is the non-terminal parser signal: more input is required
// before the parser can progress. It is always recovered locally by the
// caller accumulating more bytes and calling parse again; it is never
// wrapped in *Error and never surfaced to the pipeline as a failure.
var ErrNeedMore = errors.New("evhttpd: need more input")

// IsNeedMore reports whether err is (or wraps) ErrNeedMore.
func IsNeedMore(err error) bool {
	return errors.Is(err, ErrNeedMore)
}

// Request-line constructors.
func NewEmptyMethodError() *Error {
	return newError(ErrorTypeEmptyMethod, "parse_method", "method is empty")
}
func NewBadMethodError(b byte) *Error {
	return newError(ErrorTypeBadMethod, "parse_method", fmt.Sprintf("unexpected delimiter byte %q", b))
}
func NewUnknownMethodError(name string) *Error {
	return newError(ErrorTypeUnknownMethod, "parse_method", fmt.Sprintf("unrecognized method %q", name))
}
func NewBadUriError(msg string) *Error { return newError(ErrorTypeBadUri, "parse_uri", msg) }
func NewBadSchemeError(msg string) *Error {
	return newError(ErrorTypeBadScheme, "parse_scheme", msg)
}
func NewEmptyHostError() *Error {
	return newError(ErrorTypeEmptyHost, "parse_host", "host is empty")
}
func NewBadHostError(msg string) *Error { return newError(ErrorTypeBadHost, "parse_host", msg) }
func NewTooBigPortError(acc uint32) *Error {
	return newError(ErrorTypeTooBigPort, "parse_port", fmt.Sprintf("port accumulator %d exceeds 65535", acc))
}
func NewBadPortError(msg string) *Error { return newError(ErrorTypeBadPort, "parse_port", msg) }
func NewBadPathError(b byte) *Error {
	return newError(ErrorTypeBadPath, "parse_path", fmt.Sprintf("non-uri byte %q", b))
}
func NewBadParamsError(msg string) *Error {
	return newError(ErrorTypeBadParams, "parse_params", msg)
}

// Version/status constructors.
func NewBadVersionError(msg string) *Error {
	return newError(ErrorTypeBadVersion, "parse_version", msg)
}
func NewUnknownStatusError(code int) *Error {
	return newError(ErrorTypeUnknownStatus, "parse_status", fmt.Sprintf("unknown status code %d", code))
}
func NewBadStatusError(msg string) *Error { return newError(ErrorTypeBadStatus, "parse_status", msg) }
func NewBadReasonError(msg string) *Error { return newError(ErrorTypeBadReason, "parse_reason", msg) }

// Header constructors.
func NewBadHeaderError(msg string) *Error { return newError(ErrorTypeBadHeader, "parse_header", msg) }
func NewBadHeaderNameError(msg string) *Error {
	return newError(ErrorTypeBadHeaderName, "parse_header", msg)
}
func NewBadHeaderValueError(msg string) *Error {
	return newError(ErrorTypeBadHeaderValue, "parse_header", msg)
}
func NewEmptyHeaderNameError() *Error {
	return newError(ErrorTypeEmptyHeaderName, "parse_header", "header name is empty")
}
func NewEmptyHeaderValueError() *Error {
	return newError(ErrorTypeEmptyHeaderValue, "parse_header", "header value is empty or whitespace-only")
}
func NewBadContentLengthError(raw string) *Error {
	return newError(ErrorTypeBadContentLength, "parse_header", fmt.Sprintf("non-numeric content-length %q", raw))
}
func NewMultipleContentLengthError() *Error {
	return newError(ErrorTypeMultipleContentLength, "parse_header", "more than one content-length header")
}
func NewBadTransferEncodingError(msg string) *Error {
	return newError(ErrorTypeBadTransferEncoding, "parse_header", msg)
}
func NewBadObsFoldError() *Error {
	return newError(ErrorTypeBadObsFold, "parse_header", "obsolete line folding is not supported")
}
func NewBadLineEndingError() *Error {
	return newError(ErrorTypeBadLineEnding, "parse_line_ending", "expected CRLF")
}

// Body constructors.
func NewUnexpectedBodyError() *Error {
	return newError(ErrorTypeUnexpectedBody, "parse_body", "body present without content-length")
}
func NewBodyLimitError(limit int) *Error {
	return newError(ErrorTypeBodyLimit, "parse_body", fmt.Sprintf("body exceeds limit of %d bytes", limit))
}
func NewBodySizeBiggerThanContentLengthError() *Error {
	return newError(ErrorTypeBodySizeBiggerThanContentLength, "parse_body", "received more bytes than content-length declared")
}

// Stream constructors.
func NewEndOfStreamError() *Error {
	return newError(ErrorTypeEndOfStream, "recv", "peer closed the connection")
}
func NewPartialMessageError() *Error {
	return newError(ErrorTypePartialMessage, "recv", "stream ended mid-message")
}
func NewNeedBufferError() *Error {
	return newError(ErrorTypeNeedBuffer, "buffer", "no writable space and compaction did not help")
}
func NewBufferOverflowError(capacity int) *Error {
	return newError(ErrorTypeBufferOverflow, "buffer", fmt.Sprintf("capacity %d exhausted after compaction", capacity))
}
func NewShortReadError() *Error { return newError(ErrorTypeShortRead, "io", "short read") }

// Timeout constructors.
func NewRecvRequestTimeoutWithNothingError(d time.Duration) *Error {
	return newError(ErrorTypeRecvRequestTimeoutWithNothing, "recv_request", fmt.Sprintf("no bytes received within %v", d))
}
func NewRecvRequestLineTimeoutError(d time.Duration) *Error {
	return newError(ErrorTypeRecvRequestLineTimeout, "recv_request", fmt.Sprintf("request line incomplete after %v", d))
}
func NewRecvRequestHeadersTimeoutError(d time.Duration) *Error {
	return newError(ErrorTypeRecvRequestHeadersTimeout, "recv_request", fmt.Sprintf("headers incomplete after %v", d))
}
func NewRecvRequestBodyTimeoutError(d time.Duration) *Error {
	return newError(ErrorTypeRecvRequestBodyTimeout, "recv_request", fmt.Sprintf("body incomplete after %v", d))
}
func NewSendTimeoutError(d time.Duration) *Error {
	return newError(ErrorTypeSendTimeout, "send_response", fmt.Sprintf("response not flushed within %v", d))
}
func NewSendResponseTimeoutWithNothingError(d time.Duration) *Error {
	return newError(ErrorTypeSendResponseTimeoutWithNothing, "send_response", fmt.Sprintf("no bytes sent within %v", d))
}
func NewSendResponseLineAndHeadersTimeoutError(d time.Duration) *Error {
	return newError(ErrorTypeSendResponseLineAndHeadersTimeout, "send_response", fmt.Sprintf("status line/headers not flushed within %v", d))
}
func NewSendResponseBodyTimeoutError(d time.Duration) *Error {
	return newError(ErrorTypeSendResponseBodyTimeout, "send_response", fmt.Sprintf("body not flushed within %v", d))
}

// Response generation.
func NewInvalidResponseError(msg string) *Error {
	return newError(ErrorTypeInvalidResponse, "serialize_response", msg)
}

// Handler dispatch.
func NewEmptyHandlerError(method string) *Error {
	return newError(ErrorTypeEmptyHandler, "dispatch", fmt.Sprintf("no handler registered for method %q matches the request path", method))
}

// Server configuration.
func NewValidationError(message string) *Error {
	return newError(ErrorTypeValidation, "validate", message)
}

// IsTimeoutError reports whether err is one of the structured timeout
// categories, a context deadline, or a net.Error reporting Timeout().
func IsTimeoutError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		switch e.Type {
		case ErrorTypeRecvRequestTimeoutWithNothing,
			ErrorTypeRecvRequestLineTimeout,
			ErrorTypeRecvRequestHeadersTimeout,
			ErrorTypeRecvRequestBodyTimeout,
			ErrorTypeSendTimeout,
			ErrorTypeSendResponseTimeoutWithNothing,
			ErrorTypeSendResponseLineAndHeadersTimeout,
			ErrorTypeSendResponseBodyTimeout:
			return true
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeouter interface{ Timeout() bool }
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}

// GetErrorType returns the error type if err is a structured error.
func GetErrorType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsContextCanceled reports whether err is due to context cancellation.
func IsContextCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
