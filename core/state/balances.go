package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrBalanceUnderflow indicates a debit larger than the stored balance.
var ErrBalanceUnderflow = errors.New("state: balance underflow")

func (tx *Tx) loadAmount(key []byte) (*big.Int, error) {
	value := new(big.Int)
	if _, err := tx.KVGet(key, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (tx *Tx) storeAmount(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return tx.KVDelete(key)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative amount for %q", key)
	}
	return tx.KVPut(key, amount)
}

func (tx *Tx) addAmount(key []byte, delta *big.Int) (*big.Int, error) {
	if delta == nil || delta.Sign() == 0 {
		return tx.loadAmount(key)
	}
	if delta.Sign() < 0 {
		return nil, fmt.Errorf("state: negative credit for %q", key)
	}
	current, err := tx.loadAmount(key)
	if err != nil {
		return nil, err
	}
	updated := new(big.Int).Add(current, delta)
	if err := tx.storeAmount(key, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (tx *Tx) subAmount(key []byte, delta *big.Int) (*big.Int, error) {
	current, err := tx.loadAmount(key)
	if err != nil {
		return nil, err
	}
	if delta == nil || delta.Sign() == 0 {
		return current, nil
	}
	if delta.Sign() < 0 {
		return nil, fmt.Errorf("state: negative debit for %q", key)
	}
	if current.Cmp(delta) < 0 {
		return nil, ErrBalanceUnderflow
	}
	updated := new(big.Int).Sub(current, delta)
	if err := tx.storeAmount(key, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// RewardBalance returns the claimable reward of trader denominated in asset.
func (tx *Tx) RewardBalance(trader, asset common.Address) (*big.Int, error) {
	return tx.loadAmount(rewardKey(trader, asset))
}

// CreditReward adds amount to the trader's claimable balance and returns the
// new total.
func (tx *Tx) CreditReward(trader, asset common.Address, amount *big.Int) (*big.Int, error) {
	return tx.addAmount(rewardKey(trader, asset), amount)
}

// ClearReward zeroes the trader's claimable balance for asset.
func (tx *Tx) ClearReward(trader, asset common.Address) error {
	return tx.KVDelete(rewardKey(trader, asset))
}

// ReserveBalance returns the accumulated protocol reserve for asset.
func (tx *Tx) ReserveBalance(asset common.Address) (*big.Int, error) {
	return tx.loadAmount(reserveKey(asset))
}

// CreditReserve adds amount to the reserve of asset.
func (tx *Tx) CreditReserve(asset common.Address, amount *big.Int) (*big.Int, error) {
	return tx.addAmount(reserveKey(asset), amount)
}

// DebitReserve removes amount from the reserve of asset. The reserve never
// drops below zero.
func (tx *Tx) DebitReserve(asset common.Address, amount *big.Int) (*big.Int, error) {
	return tx.subAmount(reserveKey(asset), amount)
}

// RewardBalances lists every non-zero committed reward balance held by trader.
func (m *Manager) RewardBalances(trader common.Address) (map[common.Address]*big.Int, error) {
	prefix := joinKey(rewardPrefix, trader)
	return m.scanAmounts(prefix)
}

// ReserveBalances lists every non-zero committed reserve balance.
func (m *Manager) ReserveBalances() (map[common.Address]*big.Int, error) {
	return m.scanAmounts(reservePrefix)
}

func (m *Manager) scanAmounts(prefix []byte) (map[common.Address]*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: database not configured")
	}
	out := make(map[common.Address]*big.Int)
	var decodeErr error
	err := m.db.Iterate(prefix, func(key, value []byte) bool {
		if len(key) != len(prefix)+common.AddressLength {
			return true
		}
		amount := new(big.Int)
		if err := rlp.DecodeBytes(value, amount); err != nil {
			decodeErr = fmt.Errorf("state: decode %q: %w", key, err)
			return false
		}
		out[common.BytesToAddress(key[len(prefix):])] = amount
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}
