package snap

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure so callers can assert on the kind
// of failure rather than just its presence.
type Kind string

const (
	KindNotFound      Kind = "not_found"       // Unknown token, reference number, or resource.
	KindExpired       Kind = "expired"         // Valid credential past its TTL.
	KindUsed          Kind = "used"            // Single-use credential consumed a second time.
	KindInvalidFormat Kind = "invalid_format"  // Malformed field, bad timestamp shape, missing mandatory header.
	KindBusinessRule  Kind = "business_rule"   // Frozen account, insufficient balance, exceeded limit.
	KindUnauthorized  Kind = "unauthorized"    // Signature mismatch or missing signature.
	KindConflict      Kind = "conflict"        // Idempotency key reused with a different payload.
	KindTransient     Kind = "transient"       // Timeout or 5xx; retryable under a bounded policy.
)

// Stage tags a failure with the consent-chain step that produced it, so
// an OTT failure can never mask a token-exchange problem.
type Stage string

const (
	StageConsent       Stage = "consent"
	StageTokenExchange Stage = "token_exchange"
	StageOTT           Stage = "ott"
	StageOperation     Stage = "operation"
)

// Error is the typed failure returned by every component in this module.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	// ResponseCode is the gateway's own response code, when one was
	// returned.
	ResponseCode string

	status       int
	responseBody []byte
	param        *string
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// StatusCode reports the HTTP status class the failure maps to.
func (e *Error) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.status
}

// ResponseBody returns the raw gateway response for diagnostics.
func (e *Error) ResponseBody() []byte {
	if e == nil {
		return nil
	}
	return e.responseBody
}

// Param reports the JSON path of the offending field, if known.
func (e *Error) Param() string {
	if e == nil || e.param == nil {
		return ""
	}
	return *e.param
}

// Retryable reports whether err may be retried under a bounded policy.
// Only transient failures qualify; validation, auth, and business-rule
// failures are terminal.
func Retryable(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return false
	}
	return gwErr.Kind == KindTransient
}

type errorOption func(*Error)

// WithStage tags the error with the consent-chain stage that produced it.
func WithStage(stage Stage) errorOption {
	return func(e *Error) {
		e.Stage = stage
	}
}

// WithStatusCode records the HTTP status the gateway answered with.
func WithStatusCode(status int) errorOption {
	return func(e *Error) {
		e.status = status
	}
}

// WithResponseBody attaches the raw gateway response body.
func WithResponseBody(body []byte) errorOption {
	return func(e *Error) {
		e.responseBody = body
	}
}

// WithResponseCode records the gateway's machine response code.
func WithResponseCode(code string) errorOption {
	return func(e *Error) {
		e.ResponseCode = code
	}
}

// WithOffendingParam sets the JSON path for the field that triggered the error.
func WithOffendingParam(jsonPath string) errorOption {
	return func(e *Error) {
		e.param = &jsonPath
	}
}

// NewInvalidFormatError builds a 400-class malformed/missing-field failure.
func NewInvalidFormatError(message string, opts ...errorOption) *Error {
	return newError(KindInvalidFormat, message, append([]errorOption{WithStatusCode(http.StatusBadRequest)}, opts...)...)
}

// NewUnauthorizedError builds a 401-class signature failure.
func NewUnauthorizedError(message string, opts ...errorOption) *Error {
	return newError(KindUnauthorized, message, append([]errorOption{WithStatusCode(http.StatusUnauthorized)}, opts...)...)
}

// NewBusinessRuleError builds a 403-class business failure.
func NewBusinessRuleError(message string, opts ...errorOption) *Error {
	return newError(KindBusinessRule, message, append([]errorOption{WithStatusCode(http.StatusForbidden)}, opts...)...)
}

// NewNotFoundError builds a 404-class unknown-resource failure.
func NewNotFoundError(message string, opts ...errorOption) *Error {
	return newError(KindNotFound, message, append([]errorOption{WithStatusCode(http.StatusNotFound)}, opts...)...)
}

// NewExpiredError builds a failure for a credential past its TTL.
func NewExpiredError(message string, opts ...errorOption) *Error {
	return newError(KindExpired, message, append([]errorOption{WithStatusCode(http.StatusUnauthorized)}, opts...)...)
}

// NewUsedError builds a failure for a consumed single-use credential.
func NewUsedError(message string, opts ...errorOption) *Error {
	return newError(KindUsed, message, append([]errorOption{WithStatusCode(http.StatusForbidden)}, opts...)...)
}

// NewConflictError builds an idempotency-conflict failure. It shares the
// gateway's 404 channel but stays distinguishable by Kind.
func NewConflictError(message string, opts ...errorOption) *Error {
	return newError(KindConflict, message, append([]errorOption{WithStatusCode(http.StatusNotFound)}, opts...)...)
}

// NewTransientError builds a retryable 5xx-class failure.
func NewTransientError(message string, opts ...errorOption) *Error {
	return newError(KindTransient, message, append([]errorOption{WithStatusCode(http.StatusInternalServerError)}, opts...)...)
}

// ClassifyStatus maps a gateway HTTP response onto the failure taxonomy.
// 2xx statuses yield nil.
func ClassifyStatus(status int, body []byte, opts ...errorOption) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	opts = append([]errorOption{WithStatusCode(status), WithResponseBody(body)}, opts...)
	switch {
	case status == http.StatusBadRequest:
		return newError(KindInvalidFormat, "gateway rejected a malformed or missing field", opts...)
	case status == http.StatusUnauthorized:
		return newError(KindUnauthorized, "gateway rejected the request signature", opts...)
	case status == http.StatusForbidden:
		return newError(KindBusinessRule, "gateway refused the request by business rule", opts...)
	case status == http.StatusNotFound:
		return newError(KindNotFound, "gateway does not know the referenced resource", opts...)
	case status == http.StatusConflict:
		return newError(KindConflict, "gateway reports an inconsistent request", opts...)
	case status == http.StatusGone:
		return newError(KindExpired, "gateway reports the resource is no longer available", opts...)
	case status == http.StatusTooManyRequests, status >= 500:
		return newError(KindTransient, fmt.Sprintf("gateway answered %d", status), opts...)
	default:
		return newError(KindBusinessRule, fmt.Sprintf("gateway answered unexpected status %d", status), opts...)
	}
}

func newError(kind Kind, message string, opts ...errorOption) *Error {
	e := &Error{
		Kind:    kind,
		Message: message,
		Stage:   StageOperation,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}
