// Package tracer provides the tracing abstraction used around remote identity
// service calls.
//
// The interface keeps OpenTelemetry out of the client code: the client starts
// a span per backend operation and ends it with the call's error.
//
// Implementations:
//   - NoopTracer: for tests and when tracing is disabled
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording err when non-nil.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span; the returned context carries it to child calls.
	//
	// Example:
	//   ctx, span := tr.Start(ctx, tracer.SpanCheckDID,
	//       tracer.String(tracer.AttrAccount, privacy.HashAccount(account)),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names, one per remote identity operation.
const (
	SpanCheckDID         = "identity.check_did"
	SpanCreateDID        = "identity.create_did"
	SpanListCredentials  = "identity.list_credentials"
	SpanCreateCredential = "identity.create_credential"
	SpanVerifyCredential = "identity.verify_credential"
)

// Attribute keys.
const (
	AttrAccount      = "account.hash"
	AttrStatusCode   = "http.status_code"
	AttrCategory     = "error.category"
	AttrCircuitState = "circuit.state"
)

// Event names.
const (
	EventCircuitRejected = "circuit.rejected"
)
