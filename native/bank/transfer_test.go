package bank

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"intentsettle/core/state"
	"intentsettle/native/governance"
	"intentsettle/storage"
)

var (
	testToken   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testCustody = common.HexToAddress("0x9000000000000000000000000000000000000009")
	testNow     = time.Unix(1_700_000_000, 0).UTC()
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger := NewLedger(state.NewManager(storage.NewMemDB()), big.NewInt(31337), testCustody)
	ledger.SetNowFunc(func() time.Time { return testNow })
	return ledger
}

func TestPermitThenPull(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	owner := ethcrypto.PubkeyToAddress(key.PublicKey)

	require.NoError(t, ledger.Mint(ctx, testToken, owner, big.NewInt(1_000)))
	require.ErrorIs(t, ledger.Pull(ctx, testToken, owner, big.NewInt(10)), ErrInsufficientAllowance)

	req := PermitRequest{
		Token:    testToken,
		Owner:    owner,
		Spender:  testCustody,
		Value:    big.NewInt(600),
		Deadline: uint64(testNow.Add(time.Hour).Unix()),
	}
	signed, err := SignPermit(ledger.ChainID(), req, 0, key)
	require.NoError(t, err)
	require.NoError(t, ledger.Permit(ctx, signed))

	// The same signature cannot be replayed once the nonce advanced.
	require.ErrorIs(t, ledger.Permit(ctx, signed), ErrPermitSignature)

	nonce, err := ledger.PermitNonce(testToken, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	require.NoError(t, ledger.Pull(ctx, testToken, owner, big.NewInt(400)))
	custody, err := ledger.BalanceOf(testToken, testCustody)
	require.NoError(t, err)
	require.Equal(t, "400", custody.String())

	allowance, err := ledger.Allowance(testToken, owner, testCustody)
	require.NoError(t, err)
	require.Equal(t, "200", allowance.String())

	require.NoError(t, ledger.Push(ctx, testToken, owner, big.NewInt(150)))
	balance, err := ledger.BalanceOf(testToken, owner)
	require.NoError(t, err)
	require.Equal(t, "750", balance.String())
}

func TestPermitRejectsExpiredAndForeignSigner(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	intruder, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	owner := ethcrypto.PubkeyToAddress(key.PublicKey)

	req := PermitRequest{Token: testToken, Owner: owner, Spender: testCustody, Value: big.NewInt(1), Deadline: uint64(testNow.Unix()) - 1}
	signed, err := SignPermit(ledger.ChainID(), req, 0, key)
	require.NoError(t, err)
	require.ErrorIs(t, ledger.Permit(ctx, signed), ErrPermitExpired)

	req.Deadline = uint64(testNow.Add(time.Minute).Unix())
	forged, err := SignPermit(ledger.ChainID(), req, 0, intruder)
	require.NoError(t, err)
	require.ErrorIs(t, ledger.Permit(ctx, forged), ErrPermitSignature)

	allowance, err := ledger.Allowance(testToken, owner, testCustody)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())
}

func TestPullLeavesStateUntouchedOnShortBalance(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	owner := common.Address{0x01}
	require.NoError(t, ledger.Mint(ctx, testToken, owner, big.NewInt(5)))
	require.NoError(t, ledger.Approve(ctx, testToken, owner, testCustody, big.NewInt(100)))

	require.ErrorIs(t, ledger.Pull(ctx, testToken, owner, big.NewInt(6)), ErrInsufficientBalance)

	allowance, err := ledger.Allowance(testToken, owner, testCustody)
	require.NoError(t, err)
	require.Equal(t, "100", allowance.String())
}

func TestPushFromEmptyCustodyFails(t *testing.T) {
	ledger := newTestLedger(t)
	require.ErrorIs(t, ledger.Push(context.Background(), testToken, common.Address{0x02}, big.NewInt(1)), ErrInsufficientBalance)
	require.ErrorIs(t, ledger.Push(context.Background(), testToken, common.Address{0x02}, big.NewInt(0)), ErrInvalidAmount)
}

func TestFuncTransfererDefaults(t *testing.T) {
	var f FuncTransferer
	require.NoError(t, f.Pull(context.Background(), testToken, common.Address{}, big.NewInt(1)))
	require.NoError(t, f.Push(context.Background(), testToken, common.Address{}, big.NewInt(1)))
	require.NoError(t, f.Permit(context.Background(), PermitRequest{}))
}

func TestPostSwapBooksBothLegs(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	venue := common.HexToAddress("0x7000000000000000000000000000000000000007")
	output := common.HexToAddress("0x2000000000000000000000000000000000000002")

	posting := SwapPosting{Venue: venue, TokenIn: testToken, AmountIn: big.NewInt(300), TokenOut: output, AmountOut: big.NewInt(280)}
	require.ErrorIs(t, ledger.PostSwap(ctx, posting), ErrInsufficientBalance)

	require.NoError(t, ledger.Mint(ctx, testToken, testCustody, big.NewInt(300)))
	require.NoError(t, ledger.PostSwap(ctx, posting))

	paid, err := ledger.BalanceOf(testToken, venue)
	require.NoError(t, err)
	require.Equal(t, int64(300), paid.Int64())
	left, err := ledger.BalanceOf(testToken, testCustody)
	require.NoError(t, err)
	require.Zero(t, left.Sign())
	received, err := ledger.BalanceOf(output, testCustody)
	require.NoError(t, err)
	require.Equal(t, int64(280), received.Int64())
}

func TestIssueRequiresOwner(t *testing.T) {
	ctx := context.Background()
	manager := state.NewManager(storage.NewMemDB())
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	holder := common.HexToAddress("0x00000000000000000000000000000000000000c3")
	gov := governance.NewEngine(manager)
	_, err := gov.Init(governance.Genesis{Owner: owner, RewardBps: governance.DefaultRewardBps})
	require.NoError(t, err)
	ledger := NewLedger(manager, big.NewInt(31337), testCustody)

	stranger, err := gov.Authorize(holder)
	require.NoError(t, err)
	require.ErrorIs(t, ledger.Issue(ctx, stranger, testToken, holder, big.NewInt(50)), governance.ErrUnauthorized)

	auth, err := gov.Authorize(owner)
	require.NoError(t, err)
	require.ErrorIs(t, ledger.Issue(ctx, auth, testToken, common.Address{}, big.NewInt(50)), ErrInvalidRecipient)
	require.NoError(t, ledger.Issue(ctx, auth, testToken, holder, big.NewInt(50)))
	balance, err := ledger.BalanceOf(testToken, holder)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance.Int64())
}
