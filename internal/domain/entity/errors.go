package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input, e.g. a wallet address that is not 0x + 40 hex chars.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork marks transport-level failures (DNS, connection reset, TLS).
	ErrNetwork = errors.New("network error")
	// ErrTimeout marks a call that exceeded its wall-clock deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrRateLimited marks an upstream that kept answering 429 after the allowed retry.
	ErrRateLimited = errors.New("rate limited")
	// ErrDataShape marks an upstream payload that could not be decoded.
	ErrDataShape = errors.New("unexpected response shape")
	// ErrRPCUnavailable means no chain RPC endpoint could be reached.
	ErrRPCUnavailable = errors.New("no rpc endpoint reachable")
	// ErrQuerySuperseded is returned when a newer portfolio query replaced this one.
	ErrQuerySuperseded = errors.New("query superseded by a newer request")
)

// HTTPStatusError is a non-success HTTP answer from an upstream.
type HTTPStatusError struct {
	Code int
	URL  string
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("upstream %s answered with status %d", e.URL, e.Code)
}

// Permanent reports whether retrying can not change the outcome.
func (e *HTTPStatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != 429
}

// Is lets errors.Is match a 429 against ErrRateLimited.
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrRateLimited && e.Code == 429
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// PartialResultError accompanies a result that is usable but incomplete,
// e.g. NFT pagination that stopped on a failing page.
type PartialResultError struct {
	Err error
}

func (e *PartialResultError) Error() string {
	return "partial result: " + e.Err.Error()
}

func (e *PartialResultError) Unwrap() error {
	return e.Err
}

// IsPartial reports whether err only signals an incomplete result.
func IsPartial(err error) bool {
	var partial *PartialResultError
	return errors.As(err, &partial)
}
