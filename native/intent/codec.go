package intent

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// wireIntent is the RLP hook payload layout. RLP has no signed integers, so
// the tick spacing travels as its 32-bit two's complement.
type wireIntent struct {
	Trader          common.Address
	Currency0       common.Address
	Currency1       common.Address
	Fee             uint32
	TickSpacing     uint32
	Hooks           common.Address
	TokenIn         common.Address
	TokenOut        common.Address
	Amount          *big.Int
	MinAmountOut    *big.Int
	Deadline        uint64
	Nonce           uint64
	ExactInput      bool
	Signature       []byte
	PermitValue     *big.Int
	PermitDeadline  uint64
	PermitSignature []byte
}

// EncodePayload serialises the intent into the opaque hook payload carried
// through the AMM host.
func EncodePayload(i *Intent) ([]byte, error) {
	if i == nil {
		return nil, fmt.Errorf("%w: nil intent", ErrInvalidIntent)
	}
	wire := wireIntent{
		Trader:       i.Trader,
		Currency0:    i.Venue.Currency0,
		Currency1:    i.Venue.Currency1,
		Fee:          i.Venue.Fee,
		TickSpacing:  uint32(i.Venue.TickSpacing),
		Hooks:        i.Venue.Hooks,
		TokenIn:      i.TokenIn,
		TokenOut:     i.TokenOut,
		Amount:       orZero(i.Amount),
		MinAmountOut: orZero(i.MinAmountOut),
		Deadline:     i.Deadline,
		Nonce:        i.Nonce,
		ExactInput:   i.ExactInput,
		Signature:    i.Signature,
		PermitValue:  new(big.Int),
	}
	if i.Permit != nil {
		wire.PermitValue = orZero(i.Permit.Value)
		wire.PermitDeadline = i.Permit.Deadline
		wire.PermitSignature = i.Permit.Signature
	}
	return rlp.EncodeToBytes(&wire)
}

// DecodePayload parses a hook payload produced by EncodePayload.
func DecodePayload(data []byte) (*Intent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidIntent)
	}
	var wire wireIntent
	if err := rlp.DecodeBytes(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrInvalidIntent, err)
	}
	out := &Intent{
		Trader: wire.Trader,
		Venue: VenueKey{
			Currency0:   wire.Currency0,
			Currency1:   wire.Currency1,
			Fee:         wire.Fee,
			TickSpacing: int32(wire.TickSpacing),
			Hooks:       wire.Hooks,
		},
		TokenIn:      wire.TokenIn,
		TokenOut:     wire.TokenOut,
		Amount:       orZero(wire.Amount),
		MinAmountOut: orZero(wire.MinAmountOut),
		Deadline:     wire.Deadline,
		Nonce:        wire.Nonce,
		ExactInput:   wire.ExactInput,
		Signature:    wire.Signature,
	}
	if len(wire.PermitSignature) > 0 {
		out.Permit = &Permit{
			Value:     orZero(wire.PermitValue),
			Deadline:  wire.PermitDeadline,
			Signature: wire.PermitSignature,
		}
	}
	return out, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
