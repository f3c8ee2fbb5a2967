package settlement

import (
	"fmt"
	"math/big"

	"intentsettle/native/intent"
)

// SwapParams mirrors the swap request the host forwards to the hooks.
// AmountSpecified is negative for exact-input swaps and positive for
// exact-output swaps.
type SwapParams struct {
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// BalanceDelta is the host's per-currency balance change from the swapper's
// point of view: negative amounts were paid into the pool, positive amounts
// were released by it.
type BalanceDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// ParamsFor derives the swap request an intent authorises.
func ParamsFor(in *intent.Intent) SwapParams {
	amount := new(big.Int).Set(in.Amount)
	if in.ExactInput {
		amount.Neg(amount)
	}
	return SwapParams{ZeroForOne: in.ZeroForOne(), AmountSpecified: amount}
}

// checkParams confirms the host is executing the swap the trader signed.
func checkParams(in *intent.Intent, params SwapParams) error {
	if params.AmountSpecified == nil {
		return fmt.Errorf("%w: amount specified missing", ErrSwapParamsMismatch)
	}
	if params.ZeroForOne != in.ZeroForOne() {
		return fmt.Errorf("%w: direction", ErrSwapParamsMismatch)
	}
	if params.AmountSpecified.Cmp(ParamsFor(in).AmountSpecified) != 0 {
		return fmt.Errorf("%w: amount specified %s", ErrSwapParamsMismatch, params.AmountSpecified)
	}
	return nil
}

// attributeDelta maps the host delta onto the intent legs. The input leg must be
// strictly negative and the output leg strictly positive; anything else is an
// ambiguous or misreported swap. It returns the input actually paid and the
// proceeds released.
func attributeDelta(in *intent.Intent, delta BalanceDelta) (*big.Int, *big.Int, error) {
	if delta.Amount0 == nil || delta.Amount1 == nil {
		return nil, nil, fmt.Errorf("%w: incomplete delta", ErrInvalidDeltaDirection)
	}
	inLeg, outLeg := delta.Amount0, delta.Amount1
	if !in.ZeroForOne() {
		inLeg, outLeg = delta.Amount1, delta.Amount0
	}
	if inLeg.Sign() >= 0 {
		return nil, nil, fmt.Errorf("%w: input leg %s is not negative", ErrInvalidDeltaDirection, inLeg)
	}
	if outLeg.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: output leg %s is not positive", ErrInvalidDeltaDirection, outLeg)
	}
	paid := new(big.Int).Neg(inLeg)
	if in.ExactInput && paid.Cmp(in.Amount) != 0 {
		return nil, nil, fmt.Errorf("%w: exact input paid %s, signed %s", ErrInvalidDeltaDirection, paid, in.Amount)
	}
	if !in.ExactInput && outLeg.Cmp(in.Amount) != 0 {
		return nil, nil, fmt.Errorf("%w: exact output released %s, signed %s", ErrInvalidDeltaDirection, outLeg, in.Amount)
	}
	return paid, new(big.Int).Set(outLeg), nil
}
