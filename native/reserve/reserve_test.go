package reserve

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/events"
	"intentsettle/core/state"
	"intentsettle/native/bank"
	"intentsettle/native/governance"
	"intentsettle/storage"
)

var (
	testAsset    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testCustody  = common.HexToAddress("0x9000000000000000000000000000000000000009")
	testOwner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testGuardian = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

type fixture struct {
	account    *Account
	governance *governance.Engine
	ledger     *bank.Ledger
	emitter    *captureEmitter
}

func newFixture(t *testing.T, held int64) *fixture {
	t.Helper()
	ctx := context.Background()
	manager := state.NewManager(storage.NewMemDB())
	gov := governance.NewEngine(manager)
	if _, err := gov.Init(governance.Genesis{Owner: testOwner, Guardians: []common.Address{testGuardian}, RewardBps: 200}); err != nil {
		t.Fatalf("init governance: %v", err)
	}
	ledger := bank.NewLedger(manager, big.NewInt(31337), testCustody)
	if err := ledger.Mint(ctx, testAsset, testCustody, big.NewInt(held)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := manager.Update(func(tx *state.Tx) error {
		_, err := tx.CreditReserve(testAsset, big.NewInt(held))
		return err
	}); err != nil {
		t.Fatalf("seed reserve: %v", err)
	}
	emitter := &captureEmitter{}
	account := New(manager, ledger)
	account.SetEmitter(emitter)
	return &fixture{account: account, governance: gov, ledger: ledger, emitter: emitter}
}

func (f *fixture) authorize(t *testing.T, caller common.Address) governance.Capability {
	t.Helper()
	auth, err := f.governance.Authorize(caller)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	return auth
}

func TestWithdrawByOwner(t *testing.T) {
	f := newFixture(t, 500)
	remaining, err := f.account.Withdraw(context.Background(), f.authorize(t, testOwner), testAsset, big.NewInt(200))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if remaining.Int64() != 300 {
		t.Fatalf("expected 300 remaining, got %s", remaining)
	}
	paid, err := f.ledger.BalanceOf(testAsset, testOwner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if paid.Int64() != 200 {
		t.Fatalf("expected owner to receive 200, got %s", paid)
	}
	if len(f.emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(f.emitter.events))
	}
	evt, ok := f.emitter.events[0].(events.ReserveWithdrawn)
	if !ok || evt.Remaining.Int64() != 300 {
		t.Fatalf("unexpected event %+v", f.emitter.events[0])
	}
}

func TestWithdrawRejectsNonOwner(t *testing.T) {
	f := newFixture(t, 500)
	_, err := f.account.Withdraw(context.Background(), f.authorize(t, testGuardian), testAsset, big.NewInt(1))
	if !errors.Is(err, governance.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	// A capability minted before ownership moved loses its rights.
	owner := f.authorize(t, testOwner)
	if err := f.governance.TransferOwnership(owner, testGuardian); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := f.account.Withdraw(context.Background(), owner, testAsset, big.NewInt(1)); !errors.Is(err, governance.ErrUnauthorized) {
		t.Fatalf("expected stale capability to be rejected, got %v", err)
	}
}

func TestWithdrawInsufficientReserve(t *testing.T) {
	f := newFixture(t, 500)
	_, err := f.account.Withdraw(context.Background(), f.authorize(t, testOwner), testAsset, big.NewInt(501))
	if !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected insufficient reserve, got %v", err)
	}
	balance, err := f.account.Balance(testAsset)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 500 {
		t.Fatalf("reserve changed to %s", balance)
	}
}

func TestWithdrawAllowedWhilePaused(t *testing.T) {
	f := newFixture(t, 500)
	owner := f.authorize(t, testOwner)
	if err := f.governance.Pause(owner, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.account.Withdraw(context.Background(), owner, testAsset, big.NewInt(500)); err != nil {
		t.Fatalf("withdraw while paused: %v", err)
	}
	balances, err := f.account.Balances()
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != 0 {
		t.Fatalf("expected empty reserve, got %v", balances)
	}
}

func TestWithdrawRestoresReserveOnTransferFailure(t *testing.T) {
	f := newFixture(t, 500)
	f.account.tokens = bank.FuncTransferer{
		PushFunc: func(ctx context.Context, token, to common.Address, amount *big.Int) error {
			return errors.New("transfer reverted")
		},
	}
	if _, err := f.account.Withdraw(context.Background(), f.authorize(t, testOwner), testAsset, big.NewInt(100)); err == nil {
		t.Fatalf("expected transfer failure")
	}
	balance, err := f.account.Balance(testAsset)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 500 {
		t.Fatalf("expected reserve restored to 500, got %s", balance)
	}
}
