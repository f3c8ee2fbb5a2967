package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/events"
	"intentsettle/core/state"
	"intentsettle/native/bank"
	nativecommon "intentsettle/native/common"
	"intentsettle/observability"
)

var (
	ErrNothingToClaim = errors.New("vault: nothing to claim")

	errStateNotConfigured = errors.New("vault: state not configured")
)

// Vault pays out per-(trader, asset) reward balances accrued by settlement.
type Vault struct {
	state   *state.Manager
	tokens  bank.Transferer
	emitter events.Emitter
	metrics *observability.PayoutMetrics
	logger  *slog.Logger
}

// New constructs a vault paying out through tokens.
func New(manager *state.Manager, tokens bank.Transferer) *Vault {
	return &Vault{
		state:   manager,
		tokens:  tokens,
		emitter: events.NoopEmitter{},
		metrics: observability.Payouts(),
		logger:  slog.Default(),
	}
}

// SetEmitter configures the event emitter used by the vault. Passing nil resets
// the emitter to a no-op implementation.
func (v *Vault) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		v.emitter = events.NoopEmitter{}
		return
	}
	v.emitter = emitter
}

// SetLogger replaces the logger. Nil restores slog.Default().
func (v *Vault) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	v.logger = logger
}

// Balance returns the claimable amount for trader in asset.
func (v *Vault) Balance(trader, asset common.Address) (*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, errStateNotConfigured
	}
	var balance *big.Int
	err := v.state.View(func(tx *state.Tx) error {
		var berr error
		balance, berr = tx.RewardBalance(trader, asset)
		return berr
	})
	return balance, err
}

// Balances lists every non-zero claimable balance held by trader.
func (v *Vault) Balances(trader common.Address) (map[common.Address]*big.Int, error) {
	if v == nil || v.state == nil {
		return nil, errStateNotConfigured
	}
	return v.state.RewardBalances(trader)
}

// Claim pays the trader's full balance in asset. The balance is zeroed and
// committed before the transfer is issued, so a transfer that calls back into
// Claim observes an empty balance. A failed transfer restores the balance.
func (v *Vault) Claim(ctx context.Context, trader, asset common.Address) (*big.Int, error) {
	if v == nil || v.state == nil || v.tokens == nil {
		return nil, errStateNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var amount *big.Int
	err := v.state.Update(func(tx *state.Tx) error {
		if err := nativecommon.Guard(tx); err != nil {
			return err
		}
		balance, err := tx.RewardBalance(trader, asset)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			return ErrNothingToClaim
		}
		amount = balance
		return tx.ClearReward(trader, asset)
	})
	if err != nil {
		v.metrics.RecordError(asset, claimReason(err))
		return nil, err
	}

	if pushErr := v.tokens.Push(ctx, asset, trader, amount); pushErr != nil {
		v.metrics.RecordError(asset, "transfer")
		if err := v.state.Update(func(tx *state.Tx) error {
			_, cerr := tx.CreditReward(trader, asset, amount)
			return cerr
		}); err != nil {
			v.logger.Error("vault balance restore failed",
				slog.String("trader", trader.Hex()),
				slog.String("asset", asset.Hex()),
				slog.String("amount", amount.String()),
				slog.Any("error", err))
			return nil, fmt.Errorf("vault: restore balance: %w", errors.Join(pushErr, err))
		}
		return nil, fmt.Errorf("vault: transfer: %w", pushErr)
	}

	v.metrics.RecordClaim(asset, amount)
	v.emitter.Emit(events.RewardClaimed{Trader: trader, Asset: asset, Amount: new(big.Int).Set(amount)})
	return new(big.Int).Set(amount), nil
}

func claimReason(err error) string {
	switch {
	case errors.Is(err, nativecommon.ErrSystemPaused):
		return "paused"
	case errors.Is(err, ErrNothingToClaim):
		return "empty"
	default:
		return "internal"
	}
}
