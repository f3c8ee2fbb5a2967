package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestReserveDebitNeverUnderflows(t *testing.T) {
	manager := newTestManager(t)
	asset := common.Address{0xaa}

	if err := manager.Update(func(tx *Tx) error {
		_, err := tx.CreditReserve(asset, big.NewInt(10))
		return err
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := manager.Update(func(tx *Tx) error {
		_, err := tx.DebitReserve(asset, big.NewInt(11))
		return err
	})
	if !errors.Is(err, ErrBalanceUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}

	if err := manager.Update(func(tx *Tx) error {
		remaining, err := tx.DebitReserve(asset, big.NewInt(10))
		if err != nil {
			return err
		}
		if remaining.Sign() != 0 {
			t.Fatalf("expected empty reserve, got %s", remaining)
		}
		return nil
	}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	reserves, err := manager.ReserveBalances()
	if err != nil {
		t.Fatalf("list reserves: %v", err)
	}
	if len(reserves) != 0 {
		t.Fatalf("drained reserve should not be listed: %v", reserves)
	}
}

func TestRewardBalancesScopedToTrader(t *testing.T) {
	manager := newTestManager(t)
	alice := common.Address{0x01}
	bob := common.Address{0x02}
	usdc := common.Address{0x10}
	weth := common.Address{0x11}

	if err := manager.Update(func(tx *Tx) error {
		for _, credit := range []struct {
			trader common.Address
			asset  common.Address
			amount int64
		}{
			{alice, usdc, 5},
			{alice, weth, 6},
			{bob, usdc, 7},
			{alice, usdc, 1},
		} {
			if _, err := tx.CreditReward(credit.trader, credit.asset, big.NewInt(credit.amount)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	rewards, err := manager.RewardBalances(alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rewards) != 2 {
		t.Fatalf("expected two assets for alice, got %d", len(rewards))
	}
	if rewards[usdc].Cmp(big.NewInt(6)) != 0 || rewards[weth].Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("unexpected balances: %v", rewards)
	}
}

func TestNegativeCreditRejected(t *testing.T) {
	manager := newTestManager(t)
	err := manager.Update(func(tx *Tx) error {
		_, err := tx.CreditReserve(common.Address{0x01}, big.NewInt(-1))
		return err
	})
	if err == nil {
		t.Fatalf("expected negative credit to fail")
	}
}
