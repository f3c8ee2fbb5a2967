package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestUpdateCommitsAtomically(t *testing.T) {
	manager := newTestManager(t)
	trader := common.HexToAddress("0x1000000000000000000000000000000000000001")
	asset := common.HexToAddress("0x2000000000000000000000000000000000000002")

	if err := manager.Update(func(tx *Tx) error {
		if err := tx.PutNonce(trader, 1); err != nil {
			return err
		}
		_, err := tx.CreditReward(trader, asset, big.NewInt(7))
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	boom := errors.New("boom")
	err := manager.Update(func(tx *Tx) error {
		if err := tx.PutNonce(trader, 2); err != nil {
			return err
		}
		if _, err := tx.CreditReward(trader, asset, big.NewInt(100)); err != nil {
			return err
		}
		// Staged writes are visible inside the transaction.
		if nonce, _ := tx.Nonce(trader); nonce != 2 {
			t.Fatalf("expected staged nonce 2, got %d", nonce)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := manager.View(func(tx *Tx) error {
		nonce, err := tx.Nonce(trader)
		if err != nil {
			return err
		}
		if nonce != 1 {
			t.Fatalf("failed update leaked nonce: %d", nonce)
		}
		reward, err := tx.RewardBalance(trader, asset)
		if err != nil {
			return err
		}
		if reward.Cmp(big.NewInt(7)) != 0 {
			t.Fatalf("failed update leaked reward: %s", reward)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestViewRejectsWrites(t *testing.T) {
	manager := newTestManager(t)
	err := manager.View(func(tx *Tx) error {
		return tx.PutNonce(common.Address{1}, 5)
	})
	if !errors.Is(err, errReadOnly) {
		t.Fatalf("expected read-only error, got %v", err)
	}
}

func TestDeleteThenPutWithinTx(t *testing.T) {
	manager := newTestManager(t)
	trader := common.Address{0x01}
	asset := common.Address{0x02}
	if err := manager.Update(func(tx *Tx) error {
		if _, err := tx.CreditReward(trader, asset, big.NewInt(3)); err != nil {
			return err
		}
		if err := tx.ClearReward(trader, asset); err != nil {
			return err
		}
		balance, err := tx.RewardBalance(trader, asset)
		if err != nil {
			return err
		}
		if balance.Sign() != 0 {
			t.Fatalf("expected cleared balance, got %s", balance)
		}
		_, err = tx.CreditReward(trader, asset, big.NewInt(4))
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	rewards, err := manager.RewardBalances(trader)
	if err != nil {
		t.Fatalf("list rewards: %v", err)
	}
	if len(rewards) != 1 || rewards[asset].Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("unexpected rewards: %v", rewards)
	}
}

func TestUnconfiguredManager(t *testing.T) {
	var manager *Manager
	if err := manager.Update(func(*Tx) error { return nil }); err == nil {
		t.Fatalf("expected error from nil manager")
	}
}
