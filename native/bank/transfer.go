package bank

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/events"
	"intentsettle/core/state"
	"intentsettle/native/governance"
	"intentsettle/native/intent"
)

// Ledger is an in-state token ledger implementing Collaborator. Every call
// commits in its own state transaction, so it is safe to invoke from outside
// any settlement transaction but never from inside one.
type Ledger struct {
	state   *state.Manager
	custody common.Address
	chainID *big.Int
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewLedger constructs a ledger whose custody account is the settlement
// verifying contract.
func NewLedger(manager *state.Manager, chainID *big.Int, custody common.Address) *Ledger {
	id := new(big.Int)
	if chainID != nil {
		id.Set(chainID)
	}
	return &Ledger{
		state:   manager,
		custody: custody,
		chainID: id,
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetNowFunc overrides the clock used for permit deadlines.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	if now == nil {
		l.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	l.nowFn = now
}

// Custody returns the account holding settlement funds.
func (l *Ledger) Custody() common.Address { return l.custody }

// ChainID returns the chain the permit domain is bound to.
func (l *Ledger) ChainID() *big.Int { return new(big.Int).Set(l.chainID) }

// Mint credits freshly issued tokens to holder. It is the genesis and test
// path; operators issue through Issue.
func (l *Ledger) Mint(ctx context.Context, token, to common.Address, amount *big.Int) error {
	return l.mint(ctx, nil, token, to, amount)
}

// Issue mints on behalf of the governance owner. The role is confirmed in the
// same transaction as the credit.
func (l *Ledger) Issue(ctx context.Context, auth governance.Capability, token, to common.Address, amount *big.Int) error {
	return l.mint(ctx, func(tx *state.Tx) error { return governance.RequireOwner(tx, auth) }, token, to, amount)
}

func (l *Ledger) mint(ctx context.Context, check func(tx *state.Tx) error, token, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.state.Update(func(tx *state.Tx) error {
		if check != nil {
			if err := check(tx); err != nil {
				return err
			}
		}
		_, err := tx.CreditToken(token, to, amount)
		return err
	}); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenTransferred{Token: token, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Approve sets the allowance spender may pull from owner.
func (l *Ledger) Approve(ctx context.Context, token, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.state.Update(func(tx *state.Tx) error {
		return tx.PutTokenAllowance(token, owner, spender, amount)
	})
}

// Permit verifies the owner's signature over the grant at the owner's current
// permit nonce, then sets the allowance and advances the nonce.
func (l *Ledger) Permit(ctx context.Context, req PermitRequest) error {
	if req.Value == nil || req.Value.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	now := l.nowFn().Unix()
	if now < 0 {
		now = 0
	}
	if req.Deadline < uint64(now) {
		return ErrPermitExpired
	}
	var nonce uint64
	err := l.state.Update(func(tx *state.Tx) error {
		current, err := tx.PermitNonce(req.Token, req.Owner)
		if err != nil {
			return err
		}
		digest, err := PermitDigest(l.chainID, req, current)
		if err != nil {
			return err
		}
		signer, err := intent.RecoverSigner(digest, req.Signature)
		if err != nil || signer != req.Owner {
			return ErrPermitSignature
		}
		if err := tx.PutTokenAllowance(req.Token, req.Owner, req.Spender, req.Value); err != nil {
			return err
		}
		nonce = current
		return tx.PutPermitNonce(req.Token, req.Owner, current+1)
	})
	if err != nil {
		return err
	}
	l.emitter.Emit(events.PermitConsumed{
		Token:   req.Token,
		Owner:   req.Owner,
		Spender: req.Spender,
		Value:   new(big.Int).Set(req.Value),
		Nonce:   nonce,
	})
	return nil
}

// Pull spends the custody allowance granted by from and moves amount into
// custody.
func (l *Ledger) Pull(ctx context.Context, token, from common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := l.state.Update(func(tx *state.Tx) error {
		if _, err := tx.SpendTokenAllowance(token, from, l.custody, amount); err != nil {
			if errors.Is(err, state.ErrBalanceUnderflow) {
				return ErrInsufficientAllowance
			}
			return err
		}
		return move(tx, token, from, l.custody, amount)
	})
	if err != nil {
		return err
	}
	l.emitter.Emit(events.TokenTransferred{Token: token, From: from, To: l.custody, Amount: new(big.Int).Set(amount)})
	return nil
}

// Push pays amount out of custody to the recipient.
func (l *Ledger) Push(ctx context.Context, token, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.state.Update(func(tx *state.Tx) error {
		return move(tx, token, l.custody, to, amount)
	}); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenTransferred{Token: token, From: l.custody, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// PostSwap books a host-reported swap against custody. The pool's own
// liquidity lives with the host, so the venue account only accumulates what
// custody paid in; the output leg is credited to custody as reported.
func (l *Ledger) PostSwap(ctx context.Context, posting SwapPosting) error {
	if err := checkAmount(posting.AmountIn); err != nil {
		return err
	}
	if err := checkAmount(posting.AmountOut); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.state.Update(func(tx *state.Tx) error {
		if err := move(tx, posting.TokenIn, l.custody, posting.Venue, posting.AmountIn); err != nil {
			return err
		}
		_, err := tx.CreditToken(posting.TokenOut, l.custody, posting.AmountOut)
		return err
	}); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenTransferred{Token: posting.TokenIn, From: l.custody, To: posting.Venue, Amount: new(big.Int).Set(posting.AmountIn)})
	l.emitter.Emit(events.TokenTransferred{Token: posting.TokenOut, From: posting.Venue, To: l.custody, Amount: new(big.Int).Set(posting.AmountOut)})
	return nil
}

// BalanceOf returns the committed balance of holder.
func (l *Ledger) BalanceOf(token, holder common.Address) (*big.Int, error) {
	var balance *big.Int
	err := l.state.View(func(tx *state.Tx) error {
		var err error
		balance, err = tx.TokenBalance(token, holder)
		return err
	})
	return balance, err
}

// Allowance returns the committed allowance owner granted spender.
func (l *Ledger) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	err := l.state.View(func(tx *state.Tx) error {
		var err error
		allowance, err = tx.TokenAllowance(token, owner, spender)
		return err
	})
	return allowance, err
}

// PermitNonce returns the nonce the owner's next permit must be signed over.
func (l *Ledger) PermitNonce(token, owner common.Address) (uint64, error) {
	var nonce uint64
	err := l.state.View(func(tx *state.Tx) error {
		var err error
		nonce, err = tx.PermitNonce(token, owner)
		return err
	})
	return nonce, err
}

func move(tx *state.Tx, token, from, to common.Address, amount *big.Int) error {
	if _, err := tx.DebitToken(token, from, amount); err != nil {
		if errors.Is(err, state.ErrBalanceUnderflow) {
			return fmt.Errorf("%w: %s", ErrInsufficientBalance, from.Hex())
		}
		return err
	}
	_, err := tx.CreditToken(token, to, amount)
	return err
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
