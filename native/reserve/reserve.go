package reserve

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
	"intentsettle/native/governance"
	"intentsettle/observability"
)

var (
	ErrInsufficientReserve = errors.New("reserve: insufficient reserve")
	ErrInvalidAmount       = errors.New("reserve: amount must be positive")

	errStateNotConfigured = errors.New("reserve: state not configured")
)

// Account releases accumulated insurance fees to the owner. Withdrawals are
// not timelocked and remain available while the breaker is engaged.
type Account struct {
	state   *state.Manager
	tokens  bank.Transferer
	emitter events.Emitter
	metrics *observability.PayoutMetrics
	logger  *slog.Logger
}

// New constructs a reserve account paying out through tokens.
func New(manager *state.Manager, tokens bank.Transferer) *Account {
	return &Account{
		state:   manager,
		tokens:  tokens,
		emitter: events.NoopEmitter{},
		metrics: observability.Payouts(),
		logger:  slog.Default(),
	}
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to a
// no-op implementation.
func (a *Account) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		a.emitter = events.NoopEmitter{}
		return
	}
	a.emitter = emitter
}

// SetLogger replaces the logger. Nil restores slog.Default().
func (a *Account) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	a.logger = logger
}

// Balance returns the reserve held for asset.
func (a *Account) Balance(asset common.Address) (*big.Int, error) {
	if a == nil || a.state == nil {
		return nil, errStateNotConfigured
	}
	var balance *big.Int
	err := a.state.View(func(tx *state.Tx) error {
		var berr error
		balance, berr = tx.ReserveBalance(asset)
		return berr
	})
	return balance, err
}

// Balances lists every non-zero reserve.
func (a *Account) Balances() (map[common.Address]*big.Int, error) {
	if a == nil || a.state == nil {
		return nil, errStateNotConfigured
	}
	return a.state.ReserveBalances()
}

// Withdraw transfers amount of asset from the reserve to the authorised owner.
// The reserve is decremented and committed before the transfer; a failed
// transfer restores it.
func (a *Account) Withdraw(ctx context.Context, auth governance.Capability, asset common.Address, amount *big.Int) (*big.Int, error) {
	if a == nil || a.state == nil || a.tokens == nil {
		return nil, errStateNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recipient := auth.Caller()
	var remaining *big.Int
	err := a.state.Update(func(tx *state.Tx) error {
		if err := governance.RequireOwner(tx, auth); err != nil {
			return err
		}
		balance, err := tx.ReserveBalance(asset)
		if err != nil {
			return err
		}
		if amount.Cmp(balance) > 0 {
			return fmt.Errorf("%w: requested %s, held %s", ErrInsufficientReserve, amount, balance)
		}
		remaining, err = tx.DebitReserve(asset, amount)
		return err
	})
	if err != nil {
		a.metrics.RecordError(asset, withdrawReason(err))
		return nil, err
	}

	if pushErr := a.tokens.Push(ctx, asset, recipient, amount); pushErr != nil {
		a.metrics.RecordError(asset, "transfer")
		if err := a.state.Update(func(tx *state.Tx) error {
			_, cerr := tx.CreditReserve(asset, amount)
			return cerr
		}); err != nil {
			a.logger.Error("reserve restore failed",
				slog.String("asset", asset.Hex()),
				slog.String("amount", amount.String()),
				slog.Any("error", err))
			return nil, fmt.Errorf("reserve: restore balance: %w", errors.Join(pushErr, err))
		}
		return nil, fmt.Errorf("reserve: transfer: %w", pushErr)
	}

	a.metrics.RecordWithdrawal(asset, amount)
	a.emitter.Emit(events.ReserveWithdrawn{
		Asset:     asset,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		Remaining: new(big.Int).Set(remaining),
	})
	return remaining, nil
}

func withdrawReason(err error) string {
	switch {
	case errors.Is(err, governance.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInsufficientReserve):
		return "insufficient"
	default:
		return "internal"
	}
}
