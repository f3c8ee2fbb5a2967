package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGovernanceRecordRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.View(func(tx *Tx) error {
		_, ok, err := tx.Governance()
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("expected no governance record")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}

	record := &GovernanceRecord{
		Owner:            common.Address{0x0a},
		Guardians:        []common.Address{{0x0b}, {0x0c}},
		Paused:           true,
		RewardBps:        200,
		HasPending:       true,
		PendingBps:       500,
		PendingMaturesAt: 1_700_000_000,
	}
	if err := manager.Update(func(tx *Tx) error { return tx.PutGovernance(record) }); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := manager.View(func(tx *Tx) error {
		loaded, ok, err := tx.Governance()
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected governance record")
		}
		if loaded.Owner != record.Owner || len(loaded.Guardians) != 2 || !loaded.Paused {
			t.Fatalf("unexpected record: %+v", loaded)
		}
		if loaded.RewardBps != 200 || !loaded.HasPending || loaded.PendingBps != 500 || loaded.PendingMaturesAt != record.PendingMaturesAt {
			t.Fatalf("unexpected timelock fields: %+v", loaded)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestBankAllowanceAndPermitNonce(t *testing.T) {
	manager := newTestManager(t)
	token := common.Address{0x01}
	owner := common.Address{0x02}
	spender := common.Address{0x03}

	if err := manager.Update(func(tx *Tx) error {
		if err := tx.PutTokenAllowance(token, owner, spender, big.NewInt(50)); err != nil {
			return err
		}
		if _, err := tx.SpendTokenAllowance(token, owner, spender, big.NewInt(20)); err != nil {
			return err
		}
		return tx.PutPermitNonce(token, owner, 1)
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := manager.View(func(tx *Tx) error {
		allowance, err := tx.TokenAllowance(token, owner, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(big.NewInt(30)) != 0 {
			t.Fatalf("unexpected allowance %s", allowance)
		}
		nonce, err := tx.PermitNonce(token, owner)
		if err != nil {
			return err
		}
		if nonce != 1 {
			t.Fatalf("unexpected permit nonce %d", nonce)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
