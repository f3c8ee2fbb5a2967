package intent

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// NonceReader exposes the committed per-trader sequence numbers.
type NonceReader interface {
	Nonce(trader common.Address) (uint64, error)
}

// NonceStore extends NonceReader with the ability to stage an advance.
type NonceStore interface {
	NonceReader
	PutNonce(trader common.Address, next uint64) error
}

// CheckNonce fails with ErrReplayOrOutOfOrder unless nonce is exactly the
// next value expected from trader.
func CheckNonce(store NonceReader, trader common.Address, nonce uint64) error {
	if store == nil {
		return fmt.Errorf("intent: nonce store not configured")
	}
	expected, err := store.Nonce(trader)
	if err != nil {
		return err
	}
	if nonce != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrReplayOrOutOfOrder, expected, nonce)
	}
	return nil
}

// ConsumeNonce checks nonce and stages the advance to nonce+1. Callers run it
// inside the same transaction that commits the settlement.
func ConsumeNonce(store NonceStore, trader common.Address, nonce uint64) (uint64, error) {
	if err := CheckNonce(store, trader, nonce); err != nil {
		return 0, err
	}
	if nonce == math.MaxUint64 {
		return 0, fmt.Errorf("%w: nonce space exhausted", ErrReplayOrOutOfOrder)
	}
	next := nonce + 1
	if err := store.PutNonce(trader, next); err != nil {
		return 0, err
	}
	return next, nil
}
