package payout

import "fmt"

// ValidationError reports a malformed request. Raised before any I/O.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, v ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, v...)}
}

// PriceUnavailableError means the block or price reference for a token could
// not be fetched. No stale or default price is ever substituted.
type PriceUnavailableError struct {
	Network string
	Token   string
	Err     error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("price unavailable for %s on %s: %v", e.Token, e.Network, e.Err)
}

func (e *PriceUnavailableError) Unwrap() error { return e.Err }

// ChainUnavailableError means an RPC connection or on-chain query failed.
// Kind names the failing operation (connect, proposal count, spend count).
type ChainUnavailableError struct {
	Network string
	Kind    string
	Err     error
}

func (e *ChainUnavailableError) Error() string {
	return fmt.Sprintf("chain unavailable on %s (%s): %v", e.Network, e.Kind, e.Err)
}

func (e *ChainUnavailableError) Unwrap() error { return e.Err }

// EncodingFailedError means a governance call could not be built or
// serialized. Call names the call kind (propose, vote, close, payout).
type EncodingFailedError struct {
	Network string
	Call    string
	Err     error
}

func (e *EncodingFailedError) Error() string {
	return fmt.Sprintf("encoding %s call failed on %s: %v", e.Call, e.Network, e.Err)
}

func (e *EncodingFailedError) Unwrap() error { return e.Err }
