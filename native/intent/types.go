package intent

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrExpired            = errors.New("intent: expired")
	ErrReplayOrOutOfOrder = errors.New("intent: nonce replayed or out of order")
	ErrVenueMismatch      = errors.New("intent: venue mismatch")
	ErrBadSignature       = errors.New("intent: bad signature")
	ErrInvalidIntent      = errors.New("intent: invalid")
)

// Permit is the optional gasless pre-authorization granting the settlement
// custody account an allowance over the trader's input asset.
type Permit struct {
	Value     *big.Int
	Deadline  uint64
	Signature []byte
}

// Intent is a trader-signed trade instruction. It is consumed at most once:
// the trader's nonce advances when a settlement carrying it commits.
type Intent struct {
	Trader       common.Address
	Venue        VenueKey
	TokenIn      common.Address
	TokenOut     common.Address
	Amount       *big.Int
	MinAmountOut *big.Int
	Deadline     uint64
	Nonce        uint64
	// ExactInput selects whether Amount is the input spent (true) or the
	// output requested (false). An exact-output intent signs no input
	// ceiling: what the host may take is bounded only by the custody
	// allowance or the attached permit value.
	ExactInput bool
	Signature  []byte
	Permit     *Permit
}

// Validate checks the structural invariants every intent must satisfy before
// any verification work is spent on it.
func (i *Intent) Validate() error {
	if i == nil {
		return fmt.Errorf("%w: nil intent", ErrInvalidIntent)
	}
	if i.Trader == (common.Address{}) {
		return fmt.Errorf("%w: trader required", ErrInvalidIntent)
	}
	if i.TokenIn == i.TokenOut {
		return fmt.Errorf("%w: input and output asset must differ", ErrInvalidIntent)
	}
	if !i.Venue.Contains(i.TokenIn) || !i.Venue.Contains(i.TokenOut) {
		return fmt.Errorf("%w: assets not traded by venue", ErrInvalidIntent)
	}
	if i.Amount == nil || i.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidIntent)
	}
	if i.MinAmountOut == nil || i.MinAmountOut.Sign() < 0 {
		return fmt.Errorf("%w: minimum output must be non-negative", ErrInvalidIntent)
	}
	if i.Amount.BitLen() > 255 || i.MinAmountOut.BitLen() > 255 {
		return fmt.Errorf("%w: amount out of range", ErrInvalidIntent)
	}
	if err := i.Venue.Validate(); err != nil {
		return err
	}
	if i.Permit != nil {
		if i.Permit.Value == nil || i.Permit.Value.Sign() <= 0 {
			return fmt.Errorf("%w: permit value must be positive", ErrInvalidIntent)
		}
		if len(i.Permit.Signature) != 65 {
			return fmt.Errorf("%w: permit signature must be 65 bytes", ErrInvalidIntent)
		}
	}
	return nil
}

// ZeroForOne reports whether the intent sells currency0 for currency1.
func (i *Intent) ZeroForOne() bool {
	return i.TokenIn == i.Venue.Currency0
}

// Clone returns a deep copy of the intent.
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	cloned := *i
	cloned.Amount = cloneInt(i.Amount)
	cloned.MinAmountOut = cloneInt(i.MinAmountOut)
	cloned.Signature = append([]byte(nil), i.Signature...)
	if i.Permit != nil {
		cloned.Permit = &Permit{
			Value:     cloneInt(i.Permit.Value),
			Deadline:  i.Permit.Deadline,
			Signature: append([]byte(nil), i.Permit.Signature...),
		}
	}
	return &cloned
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
