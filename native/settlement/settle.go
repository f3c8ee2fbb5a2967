package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/native/intent"
)

// Pool executes a swap on a venue. It stands in for the AMM host: the
// returned delta is reported from the swapper's point of view.
type Pool interface {
	Swap(ctx context.Context, venue intent.VenueKey, params SwapParams) (BalanceDelta, error)
}

// PoolFunc adapts a function to the Pool interface.
type PoolFunc func(ctx context.Context, venue intent.VenueKey, params SwapParams) (BalanceDelta, error)

// Swap implements Pool.
func (f PoolFunc) Swap(ctx context.Context, venue intent.VenueKey, params SwapParams) (BalanceDelta, error) {
	return f(ctx, venue, params)
}

// Settle drives one intent through the full hook pair the way a host would:
// BeforeSwap, the pool swap, then AfterSwap, all against venue. A failed swap
// aborts the session.
func (e *Engine) Settle(ctx context.Context, executor common.Address, in *intent.Intent, venue intent.VenueKey, pool Pool) (*Receipt, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: missing intent", intent.ErrInvalidIntent)
	}
	if pool == nil {
		return nil, errors.New("settlement: pool not configured")
	}
	payload, err := intent.EncodePayload(in)
	if err != nil {
		return nil, err
	}
	params := ParamsFor(in)
	selector, err := e.BeforeSwap(ctx, executor, venue, params, payload)
	if err != nil {
		return nil, err
	}
	if selector != BeforeSwapSelector {
		return nil, fmt.Errorf("settlement: unexpected before-swap selector %s", selector)
	}
	delta, err := pool.Swap(ctx, venue, params)
	if err != nil {
		digest, derr := e.Domain().Digest(in)
		if derr == nil {
			_ = e.Abort(digest, "swap_failed")
		}
		return nil, fmt.Errorf("settlement: swap: %w", err)
	}
	_, receipt, err := e.AfterSwap(ctx, executor, venue, params, delta, payload)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
