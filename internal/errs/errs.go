// Package errs defines the sentinel error kinds used across the pipeline,
// matching the error taxonomy described by the system's error-handling
// design: malformed decode input, transport failures, malformed wire JSON,
// notifications for subscriptions never acknowledged, and non-quotable
// price results.
package errs

import "errors"

var (
	// ErrShort is returned when a decoder is handed fewer bytes than its
	// minimum layout requires.
	ErrShort = errors.New("decode: buffer shorter than minimum layout")

	// ErrTransport wraps a WebSocket dial/read/write/close failure.
	ErrTransport = errors.New("transport error")

	// ErrParse is returned when a wire message doesn't match the expected
	// JSON-RPC envelope shape.
	ErrParse = errors.New("parse: malformed message envelope")

	// ErrUnknownSubscription is returned when a notification references a
	// server subscription ID the manager never acknowledged.
	ErrUnknownSubscription = errors.New("unknown subscription id")

	// ErrNonFinitePrice marks a calculated price that is NaN or Inf, or
	// otherwise not quotable (zero, or outside the sanity range).
	ErrNonFinitePrice = errors.New("calculated price is not finite")
)
