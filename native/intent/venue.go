package intent

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	maxFee         = 1<<24 - 1
	minTickSpacing = -(1 << 23)
	maxTickSpacing = 1<<23 - 1
)

// VenueKey identifies a concentrated-liquidity pool: the ordered currency
// pair, fee tier, tick spacing and hook contract.
type VenueKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address
}

// Validate enforces the ABI ranges of the key fields and currency ordering.
func (k VenueKey) Validate() error {
	if bytes.Compare(k.Currency0.Bytes(), k.Currency1.Bytes()) >= 0 {
		return fmt.Errorf("%w: venue currencies must be strictly ordered", ErrInvalidIntent)
	}
	if k.Fee > maxFee {
		return fmt.Errorf("%w: venue fee exceeds uint24", ErrInvalidIntent)
	}
	if k.TickSpacing < minTickSpacing || k.TickSpacing > maxTickSpacing {
		return fmt.Errorf("%w: venue tick spacing exceeds int24", ErrInvalidIntent)
	}
	return nil
}

// Contains reports whether asset is one side of the pair.
func (k VenueKey) Contains(asset common.Address) bool {
	return asset == k.Currency0 || asset == k.Currency1
}

// Encode returns the ABI encoding of the key: five 32-byte words.
func (k VenueKey) Encode() []byte {
	out := make([]byte, 0, 5*32)
	out = append(out, common.LeftPadBytes(k.Currency0.Bytes(), 32)...)
	out = append(out, common.LeftPadBytes(k.Currency1.Bytes(), 32)...)
	out = append(out, math.U256Bytes(new(big.Int).SetUint64(uint64(k.Fee)))...)
	out = append(out, math.U256Bytes(big.NewInt(int64(k.TickSpacing)))...)
	out = append(out, common.LeftPadBytes(k.Hooks.Bytes(), 32)...)
	return out
}

// ID returns the pool identifier, the keccak256 hash of the ABI encoding.
func (k VenueKey) ID() common.Hash {
	return ethcrypto.Keccak256Hash(k.Encode())
}

// Account is the address the venue's pool books its balances under.
func (k VenueKey) Account() common.Address {
	return common.BytesToAddress(k.ID().Bytes())
}

// Matches compares two keys by their canonical encoding.
func (k VenueKey) Matches(other VenueKey) bool {
	return bytes.Equal(k.Encode(), other.Encode())
}

func (k VenueKey) typedMessage() map[string]interface{} {
	return map[string]interface{}{
		"currency0":   k.Currency0.Hex(),
		"currency1":   k.Currency1.Hex(),
		"fee":         new(big.Int).SetUint64(uint64(k.Fee)),
		"tickSpacing": big.NewInt(int64(k.TickSpacing)),
		"hooks":       k.Hooks.Hex(),
	}
}
