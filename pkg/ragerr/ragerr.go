// Package ragerr is the single structured-error type for the RAG engine.
//
// The teacher repo this package descends from carried two parallel error
// systems (pkg/errors.BaseError and internal/rag.RAGError) with the same
// shape duplicated twice. This package unifies them: one type, one set of
// codes, one HTTP status mapping.
package ragerr

import (
	"errors"
	"fmt"
	"time"
)

// Kind buckets codes into the taxonomy used for retry and HTTP-status
// decisions; Code is the stable string surfaced to clients.
type Kind string

const (
	KindInput    Kind = "input"
	KindContent  Kind = "content"
	KindUpstream Kind = "upstream"
	KindInternal Kind = "internal"
)

// Code values. These are exactly the strings named by the error envelope
// and the component contracts; client code matches on these, not on
// Error() text.
const (
	CodeValidationError       = "VALIDATION_ERROR"
	CodeUnsupportedFileType   = "UNSUPPORTED_FILE_TYPE"
	CodePayloadTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeBadRequest            = "BAD_REQUEST"
	CodeNotFound              = "NOT_FOUND"

	CodeFileCorrupted     = "FILE_CORRUPTED"
	CodePasswordProtected = "PASSWORD_PROTECTED"
	CodeExtractionError   = "EXTRACTION_ERROR"
	CodeParsingError      = "PARSING_ERROR"

	CodeAuthentication     = "AUTHENTICATION"
	CodeInsufficientQuota  = "INSUFFICIENT_QUOTA"
	CodeRateLimit          = "RATE_LIMIT"
	CodeTimeout            = "TIMEOUT"
	CodeContextTooLarge    = "CONTEXT_TOO_LARGE"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidModel       = "INVALID_MODEL"
	CodeAPIError           = "API_ERROR"
	CodeUnknown            = "UNKNOWN"

	CodeVectorStoreError = "VECTOR_STORE_ERROR"
	CodeEmbeddingError   = "EMBEDDING_ERROR"
	CodeRetrievalError   = "RETRIEVAL_ERROR"
	CodeNoDocuments      = "NO_DOCUMENTS"
	CodeConfigError      = "CONFIG_ERROR"
	CodeInternalError    = "INTERNAL_SERVER_ERROR"

	// HTTP-envelope-only aliases used by cmd/ragserver (§6); mapped onto the
	// same taxonomy as their component-level counterparts.
	CodeParserTimeout       = "PARSER_TIMEOUT"
	CodeAIServiceError      = "AI_SERVICE_ERROR"
	CodeAIQuotaExceeded     = "AI_QUOTA_EXCEEDED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeRequestTimeout      = "REQUEST_TIMEOUT"
)

// nonRetryable is the set the Retry Engine (4.I) must never retry,
// regardless of attempts remaining.
var nonRetryable = map[string]bool{
	CodeInvalidRequest:  true,
	CodeAuthentication:  true,
	CodeInvalidModel:    true,
	CodeContextTooLarge: true,
	CodeValidationError: true,
}

// retryable is the set the Retry Engine retries; everything else upstream
// that isn't explicitly non-retryable still only retries if listed here.
var retryable = map[string]bool{
	CodeRateLimit: true,
	CodeTimeout:   true,
	CodeAPIError:  true,
	CodeUnknown:   true,
}

// Error is the single structured error type threaded through every
// component. It carries enough context to render both the HTTP envelope in
// §6 and a developer-facing message, without leaking provider internals
// unless the caller asks for them.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Operation string
	Component string
	Details   map[string]string
	Cause     error
	Timestamp time.Time
}

func (e *Error) Error() string {
	switch {
	case e.Component != "" && e.Operation != "":
		return fmt.Sprintf("%s.%s: %s", e.Component, e.Operation, e.Message)
	case e.Operation != "":
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// IsRetryable reports whether the Retry Engine (4.I) may retry this error.
func (e *Error) IsRetryable() bool {
	if nonRetryable[e.Code] {
		return false
	}
	return retryable[e.Code]
}

// HTTPStatusCode implements the §6 status mapping: validation→400,
// auth→401, quota→403, not found→404, timeout→408, payload→413, rate
// limit→429, upstream provider error→502, other→500.
func (e *Error) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidationError, CodeUnsupportedFileType, CodeBadRequest, CodeParsingError:
		return 400
	case CodeAuthentication:
		return 401
	case CodeInsufficientQuota, CodeAIQuotaExceeded:
		return 403
	case CodeNotFound:
		return 404
	case CodeTimeout, CodeParserTimeout, CodeRequestTimeout:
		return 408
	case CodePayloadTooLarge, CodeContextTooLarge:
		return 413
	case CodeRateLimit, CodeRateLimitExceeded:
		return 429
	case CodeAPIError, CodeAIServiceError, CodeUnknown:
		return 502
	default:
		return 500
	}
}

// WithOperation returns a copy annotated with the operation that raised it.
func (e *Error) WithOperation(operation string) *Error {
	n := *e
	n.Operation = operation
	return &n
}

// WithComponent returns a copy annotated with the owning component.
func (e *Error) WithComponent(component string) *Error {
	n := *e
	n.Component = component
	return &n
}

// WithDetails returns a copy with the given details merged in.
func (e *Error) WithDetails(details map[string]string) *Error {
	n := *e
	merged := make(map[string]string, len(n.Details)+len(details))
	for k, v := range n.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	n.Details = merged
	return &n
}

// WithCause returns a copy wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	n := *e
	n.Cause = cause
	return &n
}

// New constructs an Error with the given kind and code.
func New(kind Kind, code, message string) *Error {
	return &Error{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap constructs an Error wrapping an existing error as its cause.
func Wrap(kind Kind, code string, cause error, message string) *Error {
	return &Error{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// Convenience constructors mirroring the component contracts in §4/§7.

func ValidationError(field, message string) *Error {
	return New(KindInput, CodeValidationError, message).WithDetails(map[string]string{"field": field})
}

func UnsupportedFileType(ext string) *Error {
	return New(KindInput, CodeUnsupportedFileType, "unsupported file type: "+ext).WithDetails(map[string]string{"extension": ext})
}

func PayloadTooLarge(limit string) *Error {
	return New(KindInput, CodePayloadTooLarge, "file exceeds maximum size").WithDetails(map[string]string{"limit": limit})
}

func FileCorrupted(detail string) *Error {
	return New(KindContent, CodeFileCorrupted, "file is corrupted or damaged").WithDetails(map[string]string{"detail": detail})
}

func PasswordProtected() *Error {
	return New(KindContent, CodePasswordProtected, "file is password protected")
}

func ExtractionError(cause error) *Error {
	return Wrap(KindContent, CodeExtractionError, cause, "failed to extract document content")
}

func ParsingError(message string) *Error {
	return New(KindContent, CodeParsingError, message)
}

func EmbeddingError(cause error) *Error {
	return Wrap(KindInternal, CodeEmbeddingError, cause, "embedding provider error")
}

func VectorStoreError(message string) *Error {
	return New(KindInternal, CodeVectorStoreError, message)
}

func RetrievalError(message string) *Error {
	return New(KindInternal, CodeRetrievalError, message)
}

func NoDocuments() *Error {
	return New(KindInternal, CodeNoDocuments, "no documents indexed for this request")
}

func ConfigError(message string) *Error {
	return New(KindInternal, CodeConfigError, message)
}

func RateLimited(policy string) *Error {
	return New(KindUpstream, CodeRateLimit, "rate limit exceeded").WithDetails(map[string]string{"policy": policy})
}

func Timeout(operation string) *Error {
	return New(KindUpstream, CodeTimeout, operation+" timed out").WithOperation(operation)
}

// As reports whether err is (or wraps) a *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// CodeOf extracts the code from err, or CodeUnknown if err is not a *Error.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUnknown
}
