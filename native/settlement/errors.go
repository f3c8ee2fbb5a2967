package settlement

import (
	"errors"

	nativecommon "intentsettle/native/common"
	"intentsettle/native/governance"
	"intentsettle/native/intent"
)

var (
	ErrSlippageExceeded      = errors.New("settlement: slippage exceeded")
	ErrInvalidDeltaDirection = errors.New("settlement: invalid delta direction")
	ErrSwapParamsMismatch    = errors.New("settlement: swap params do not match intent")
	ErrUnknownSession        = errors.New("settlement: unknown or lapsed session")

	errStateNotConfigured = errors.New("settlement: state not configured")
)

// Reason returns a stable label for err, used for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, nativecommon.ErrSystemPaused):
		return "paused"
	case errors.Is(err, intent.ErrExpired):
		return "expired"
	case errors.Is(err, intent.ErrReplayOrOutOfOrder):
		return "nonce"
	case errors.Is(err, intent.ErrVenueMismatch):
		return "venue"
	case errors.Is(err, intent.ErrBadSignature):
		return "signature"
	case errors.Is(err, intent.ErrInvalidIntent):
		return "invalid_intent"
	case errors.Is(err, ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, ErrInvalidDeltaDirection):
		return "delta"
	case errors.Is(err, ErrSwapParamsMismatch):
		return "params"
	case errors.Is(err, ErrUnknownSession):
		return "session"
	case errors.Is(err, governance.ErrNotInitialised):
		return "uninitialised"
	default:
		return "internal"
	}
}
