package bank

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
	ErrPermitExpired         = errors.New("bank: permit expired")
	ErrPermitSignature       = errors.New("bank: invalid permit signature")
	ErrInvalidAmount         = errors.New("bank: amount must be positive")
	ErrInvalidRecipient      = errors.New("bank: recipient required")
)

// Transferer moves tokens between traders and the settlement custody account.
// Both primitives are atomic: they either fully succeed or leave balances
// untouched.
type Transferer interface {
	// Pull moves amount of token from the holder into custody.
	Pull(ctx context.Context, token, from common.Address, amount *big.Int) error
	// Push pays amount of token out of custody to the recipient.
	Push(ctx context.Context, token, to common.Address, amount *big.Int) error
}

// PermitRequest is a signed single-use allowance grant.
type PermitRequest struct {
	Token     common.Address
	Owner     common.Address
	Spender   common.Address
	Value     *big.Int
	Deadline  uint64
	Signature []byte
}

// Permitter consumes signed allowance grants.
type Permitter interface {
	Permit(ctx context.Context, req PermitRequest) error
}

// SwapPosting is a swap the host executed on behalf of custody: AmountIn of
// TokenIn left custody for the venue and AmountOut of TokenOut came back.
type SwapPosting struct {
	Venue     common.Address
	TokenIn   common.Address
	AmountIn  *big.Int
	TokenOut  common.Address
	AmountOut *big.Int
}

// SwapPoster is implemented by collaborators that keep their own books and
// must be told about host swaps. Token contracts that observe the swap
// directly do not implement it.
type SwapPoster interface {
	PostSwap(ctx context.Context, posting SwapPosting) error
}

// Collaborator is the full token surface the settlement core consumes.
type Collaborator interface {
	Transferer
	Permitter
}

// FuncTransferer adapts callback functions to the Collaborator interface. Nil
// callbacks succeed without side effects.
type FuncTransferer struct {
	PullFunc   func(ctx context.Context, token, from common.Address, amount *big.Int) error
	PushFunc   func(ctx context.Context, token, to common.Address, amount *big.Int) error
	PermitFunc func(ctx context.Context, req PermitRequest) error
}

// Pull delegates to the configured callback.
func (f FuncTransferer) Pull(ctx context.Context, token, from common.Address, amount *big.Int) error {
	if f.PullFunc == nil {
		return nil
	}
	return f.PullFunc(ctx, token, from, amount)
}

// Push delegates to the configured callback.
func (f FuncTransferer) Push(ctx context.Context, token, to common.Address, amount *big.Int) error {
	if f.PushFunc == nil {
		return nil
	}
	return f.PushFunc(ctx, token, to, amount)
}

// Permit delegates to the configured callback.
func (f FuncTransferer) Permit(ctx context.Context, req PermitRequest) error {
	if f.PermitFunc == nil {
		return nil
	}
	return f.PermitFunc(ctx, req)
}
