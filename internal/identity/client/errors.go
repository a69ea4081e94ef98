package client

import (
	"errors"
	"fmt"

	dErrors "kycpass/pkg/domain-errors"
)

// Category is the normalized failure taxonomy for identity service calls.
//
// Every transport or backend failure is classified into one of these so the
// session controller can treat all remote errors uniformly (fail-closed,
// error message set, state not advanced) without inspecting HTTP details.
type Category string

const (
	// CategoryTimeout indicates the backend did not answer in time.
	CategoryTimeout Category = "timeout"

	// CategoryUnavailable indicates a transport failure, a 5xx, or an open circuit.
	CategoryUnavailable Category = "unavailable"

	// CategoryRejected indicates the backend refused the request (4xx).
	CategoryRejected Category = "rejected"

	// CategoryNotFound indicates the addressed record does not exist.
	CategoryNotFound Category = "not_found"

	// CategoryRateLimited indicates too many requests.
	CategoryRateLimited Category = "rate_limited"

	// CategoryBadResponse indicates a 2xx body that does not match the contract.
	CategoryBadResponse Category = "bad_response"

	// CategoryInternal indicates a client-side failure building the request.
	CategoryInternal Category = "internal"
)

// ErrCircuitOpen is the underlying error of calls rejected by the breaker.
var ErrCircuitOpen = errors.New("circuit open")

// Operation names the remote identity operation that failed.
type Operation string

const (
	OpCheckDID         Operation = "check_did"
	OpCreateDID        Operation = "create_did"
	OpListCredentials  Operation = "list_credentials"
	OpCreateCredential Operation = "create_credential"
	OpVerifyCredential Operation = "verify_credential"
	OpHealth           Operation = "health"
)

// ServiceError wraps identity service failures with a normalized category.
//
// ServerMessage carries the backend's own human-readable message when the
// error body had one; it is what the session shows to the user.
type ServiceError struct {
	Category      Category
	Operation     Operation
	StatusCode    int
	Detail        string
	ServerMessage string
	Underlying    error
	Retryable     bool
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("identity %s [%s]: %s", e.Operation, e.Category, e.Detail)
	if e.ServerMessage != "" {
		msg += ": " + e.ServerMessage
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap supports error unwrapping.
func (e *ServiceError) Unwrap() error {
	return e.Underlying
}

// UserMessage returns the backend's own message for display, if it sent one.
func (e *ServiceError) UserMessage() string {
	return e.ServerMessage
}

// DomainCode maps the category onto the transport-agnostic domain codes.
func (e *ServiceError) DomainCode() dErrors.Code {
	switch e.Category {
	case CategoryTimeout:
		return dErrors.CodeTimeout
	case CategoryNotFound:
		return dErrors.CodeNotFound
	case CategoryRejected:
		return dErrors.CodeBadRequest
	case CategoryInternal:
		return dErrors.CodeInternal
	default:
		return dErrors.CodeUnavailable
	}
}

// newServiceError builds a ServiceError with retry classification derived
// from the category.
func newServiceError(op Operation, category Category, status int, detail string, underlying error) *ServiceError {
	return &ServiceError{
		Category:   category,
		Operation:  op,
		StatusCode: status,
		Detail:     detail,
		Underlying: underlying,
		Retryable: category == CategoryTimeout ||
			category == CategoryUnavailable ||
			category == CategoryRateLimited,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, defaulting to CategoryInternal.
func GetCategory(err error) Category {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Category
	}
	return CategoryInternal
}

// ServerMessage returns the backend-provided message carried by err, if any.
func ServerMessage(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.ServerMessage
	}
	return ""
}
