package repository

import "errors"

// Scan-cycle error kinds. The scanner classifies failures with errors.Is
// to decide whether a cycle is skipped, retried at the next close, or
// escalated to the supervisor.
var (
	// ErrMalformedInput marks candle data violating the OHLC invariant.
	ErrMalformedInput = errors.New("malformed candle input")

	// ErrInsufficientData marks a window shorter than the scan requires.
	ErrInsufficientData = errors.New("insufficient candle data")

	// ErrFetchTransient marks a network or timeout failure; retry next close.
	ErrFetchTransient = errors.New("transient fetch failure")

	// ErrFetchFatal marks an authentication or permanent exchange failure.
	ErrFetchFatal = errors.New("fatal fetch failure")

	// ErrSinkTransient marks a failed publish that may be replayed.
	ErrSinkTransient = errors.New("transient sink failure")

	// ErrSinkFatal marks a publish failure that must stop the scanner.
	ErrSinkFatal = errors.New("fatal sink failure")

	// ErrLogicAssertion marks detector state that should be impossible.
	ErrLogicAssertion = errors.New("detector state assertion")
)
