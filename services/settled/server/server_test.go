package server

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"intentsettle/core/events"
	"intentsettle/core/state"
	"intentsettle/native/bank"
	"intentsettle/native/governance"
	"intentsettle/native/intent"
	"intentsettle/native/reserve"
	"intentsettle/native/settlement"
	"intentsettle/native/vault"
	"intentsettle/storage"
)

const testHostToken = "host-secret"

var (
	testUSDC     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testWETH     = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testHook     = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testCustody  = common.HexToAddress("0x9000000000000000000000000000000000000009")
	testExecutor = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	testChainID  = big.NewInt(31337)
	testNow      = time.Unix(1_700_000_000, 0).UTC()
)

type testEnv struct {
	server  *Server
	ledger  *bank.Ledger
	manager *state.Manager
	stream  *events.Broadcaster
	owner   *ecdsa.PrivateKey
	trader  *ecdsa.PrivateKey
	now     time.Time
}

func newTestEnv(t *testing.T, limit RateLimit) *testEnv {
	t.Helper()
	ctx := context.Background()
	manager := state.NewManager(storage.NewMemDB())

	owner, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate owner key: %v", err)
	}
	trader, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	env := &testEnv{manager: manager, owner: owner, trader: trader, now: testNow}

	gov := governance.NewEngine(manager)
	gov.SetNowFunc(env.clock)
	if _, err := gov.Init(governance.Genesis{
		Owner:     ethcrypto.PubkeyToAddress(owner.PublicKey),
		RewardBps: governance.DefaultRewardBps,
	}); err != nil {
		t.Fatalf("init governance: %v", err)
	}

	ledger := bank.NewLedger(manager, testChainID, testCustody)
	ledger.SetNowFunc(env.clock)
	traderAddr := ethcrypto.PubkeyToAddress(trader.PublicKey)
	if err := ledger.Mint(ctx, testUSDC, traderAddr, big.NewInt(10_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint(ctx, testWETH, testCustody, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(ctx, testUSDC, traderAddr, testCustody, big.NewInt(10_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stream := events.NewBroadcaster(0)
	verifier := intent.NewVerifier(intent.NewDomain(testChainID, testCustody))
	verifier.SetNowFunc(env.clock)
	engine := settlement.NewEngine(manager, verifier, ledger)
	engine.SetNowFunc(env.clock)
	engine.SetEmitter(stream)

	srv, err := New(Config{
		Engine:     engine,
		Governance: gov,
		Vault:      vault.New(manager, ledger),
		Reserve:    reserve.New(manager, ledger),
		Ledger:     ledger,
		Stream:     stream,
		HostToken:  testHostToken,
		RateLimit:  limit,
		Now:        env.clock,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	env.server = srv
	env.ledger = ledger
	env.stream = stream
	return env
}

func (e *testEnv) clock() time.Time { return e.now }

func generousLimit() RateLimit { return RateLimit{RequestsPerSecond: 1000, Burst: 1000} }

func (e *testEnv) signedIntent(t *testing.T, nonce uint64) *intent.Intent {
	t.Helper()
	in := &intent.Intent{
		Trader:       ethcrypto.PubkeyToAddress(e.trader.PublicKey),
		Venue:        intent.VenueKey{Currency0: testUSDC, Currency1: testWETH, Fee: 3000, TickSpacing: 60, Hooks: testHook},
		TokenIn:      testUSDC,
		TokenOut:     testWETH,
		Amount:       big.NewInt(2_000),
		MinAmountOut: big.NewInt(1_800),
		Nonce:        nonce,
		Deadline:     uint64(testNow.Add(time.Minute).Unix()),
		ExactInput:   true,
	}
	sig, err := intent.NewDomain(testChainID, testCustody).Sign(in, e.trader)
	if err != nil {
		t.Fatalf("sign intent: %v", err)
	}
	in.Signature = sig
	return in
}

func hookBody(t *testing.T, in *intent.Intent, delta *deltaJSON) []byte {
	t.Helper()
	payload, err := intent.EncodePayload(in)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	params := settlement.ParamsFor(in)
	body, err := json.Marshal(hookRequest{
		Sender: testExecutor.Hex(),
		Venue:  in.Venue,
		Params: swapParamsJSON{
			ZeroForOne:      params.ZeroForOne,
			AmountSpecified: params.AmountSpecified.String(),
		},
		Delta:    delta,
		HookData: hexutil.Encode(payload),
	})
	if err != nil {
		t.Fatalf("marshal hook request: %v", err)
	}
	return body
}

func (e *testEnv) hostRequest(t *testing.T, path string, body []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signedRequest(t *testing.T, key *ecdsa.PrivateKey, path string, payload interface{}, at time.Time) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	timestamp := strconv.FormatInt(at.Unix(), 10)
	sig, err := SignRequest(key, http.MethodPost, path, timestamp, body)
	if err != nil {
		t.Fatalf("sign request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(HeaderCaller, ethcrypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, sig)
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) settle(t *testing.T, nonce uint64) hookResponse {
	t.Helper()
	in := e.signedIntent(t, nonce)
	rec := e.hostRequest(t, "/v1/hooks/before-swap", hookBody(t, in, nil), testHostToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("before-swap status %d: %s", rec.Code, rec.Body.String())
	}
	var before hookResponse
	decodeResponse(t, rec.Body, &before)
	if before.Selector != settlement.BeforeSwapSelector.String() {
		t.Fatalf("before-swap selector %s", before.Selector)
	}
	rec = e.hostRequest(t, "/v1/hooks/after-swap", hookBody(t, in, &deltaJSON{Amount0: "-2000", Amount1: "1850"}), testHostToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("after-swap status %d: %s", rec.Code, rec.Body.String())
	}
	var after hookResponse
	decodeResponse(t, rec.Body, &after)
	return after
}

func decodeResponse(t *testing.T, body io.Reader, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	decodeResponse(t, rec.Body, &resp)
	return resp.Error.Code
}

func TestHooksRequireHostToken(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	body := hookBody(t, env.signedIntent(t, 0), nil)

	rec := env.hostRequest(t, "/v1/hooks/before-swap", body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = env.hostRequest(t, "/v1/hooks/before-swap", body, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "Unauthenticated" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestHookFlowSettlesAndStreams(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	after := env.settle(t, 0)

	if after.Selector != settlement.AfterSwapSelector.String() {
		t.Fatalf("after-swap selector %s", after.Selector)
	}
	if after.Receipt == nil {
		t.Fatalf("expected receipt")
	}
	if after.Receipt.Reward != "1" || after.Receipt.ReserveFee != "0" || after.Receipt.TraderNet != "1849" {
		t.Fatalf("unexpected split %+v", after.Receipt)
	}

	rec := env.get(t, "/v1/nonces/"+ethcrypto.PubkeyToAddress(env.trader.PublicKey).Hex())
	var nonce struct {
		Nonce uint64 `json:"nonce"`
	}
	decodeResponse(t, rec.Body, &nonce)
	if nonce.Nonce != 1 {
		t.Fatalf("expected nonce 1, got %d", nonce.Nonce)
	}

	records := env.stream.History("")
	if len(records) == 0 || records[len(records)-1].Event.Type != events.TypeIntentSettled {
		t.Fatalf("expected settled event in stream history, got %+v", records)
	}

	// Replaying the consumed intent is rejected at admission.
	in := env.signedIntent(t, 0)
	rec = env.hostRequest(t, "/v1/hooks/before-swap", hookBody(t, in, nil), testHostToken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ReplayOrOutOfOrder" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestAfterSwapWithoutSessionIsUnknown(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	in := env.signedIntent(t, 0)
	rec := env.hostRequest(t, "/v1/hooks/after-swap", hookBody(t, in, &deltaJSON{Amount0: "-2000", Amount1: "1850"}), testHostToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAbortReleasesSession(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	in := env.signedIntent(t, 0)
	rec := env.hostRequest(t, "/v1/hooks/before-swap", hookBody(t, in, nil), testHostToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("before-swap status %d", rec.Code)
	}
	digest, err := intent.NewDomain(testChainID, testCustody).Digest(in)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	body, _ := json.Marshal(abortRequest{Digest: digest.Hex(), Reason: "pool_reverted"})
	rec = env.hostRequest(t, "/v1/hooks/abort", body, testHostToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("abort status %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.hostRequest(t, "/v1/hooks/abort", body, testHostToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second abort expected 404, got %d", rec.Code)
	}
}

func TestSignedClaimAndReplay(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	env.settle(t, 0)

	traderAddr := ethcrypto.PubkeyToAddress(env.trader.PublicKey)
	body, _ := json.Marshal(claimRequest{Asset: testWETH.Hex()})
	timestamp := strconv.FormatInt(testNow.Unix(), 10)
	sig, err := SignRequest(env.trader, http.MethodPost, "/v1/claim", timestamp, body)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/claim", bytes.NewReader(body))
		req.Header.Set(HeaderCaller, traderAddr.Hex())
		req.Header.Set(HeaderTimestamp, timestamp)
		req.Header.Set(HeaderSignature, sig)
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		return rec
	}

	rec := send()
	if rec.Code != http.StatusOK {
		t.Fatalf("claim status %d: %s", rec.Code, rec.Body.String())
	}
	var claim claimResponse
	decodeResponse(t, rec.Body, &claim)
	if claim.Amount != "1" {
		t.Fatalf("expected claim of 1, got %s", claim.Amount)
	}
	bal, err := env.ledger.BalanceOf(testWETH, traderAddr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Int64() != 1_850 {
		t.Fatalf("expected trader WETH 1850, got %s", bal)
	}

	rec = send()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected replayed signature to be rejected, got %d", rec.Code)
	}

	rec = env.signedRequest(t, env.trader, "/v1/claim", claimRequest{Asset: testWETH.Hex()}, testNow.Add(time.Second))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected NothingToClaim conflict, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "NothingToClaim" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestSignedRequestOutsideSkewRejected(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	rec := env.signedRequest(t, env.trader, "/v1/claim", claimRequest{Asset: testWETH.Hex()}, testNow.Add(-10*time.Minute))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale timestamp, got %d", rec.Code)
	}
}

func TestSignatureMustMatchCaller(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	body, _ := json.Marshal(claimRequest{Asset: testWETH.Hex()})
	timestamp := strconv.FormatInt(testNow.Unix(), 10)
	sig, err := SignRequest(env.trader, http.MethodPost, "/v1/claim", timestamp, body)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/claim", bytes.NewReader(body))
	req.Header.Set(HeaderCaller, ethcrypto.PubkeyToAddress(env.owner.PublicKey).Hex())
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderSignature, sig)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for mismatched caller, got %d", rec.Code)
	}
}

func TestGovernanceRequiresOwner(t *testing.T) {
	env := newTestEnv(t, generousLimit())

	rec := env.signedRequest(t, env.trader, "/v1/governance/reward-rate/propose", proposeRateRequest{RewardBps: 500}, testNow)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}

	rec = env.signedRequest(t, env.owner, "/v1/governance/reward-rate/propose", proposeRateRequest{RewardBps: 500}, testNow)
	if rec.Code != http.StatusOK {
		t.Fatalf("propose status %d: %s", rec.Code, rec.Body.String())
	}
	var proposed proposeRateResponse
	decodeResponse(t, rec.Body, &proposed)
	if !proposed.MaturesAt.Equal(testNow.Add(governance.TimelockDelay)) {
		t.Fatalf("unexpected maturity %s", proposed.MaturesAt)
	}

	rec = env.signedRequest(t, env.owner, "/v1/governance/reward-rate/apply", struct{}{}, testNow.Add(time.Second))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected NotMatured conflict, got %d", rec.Code)
	}

	env.now = testNow.Add(governance.TimelockDelay)
	rec = env.signedRequest(t, env.owner, "/v1/governance/reward-rate/apply", struct{}{}, env.now)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status %d: %s", rec.Code, rec.Body.String())
	}

	var snapshot governance.Snapshot
	decodeResponse(t, env.get(t, "/v1/governance").Body, &snapshot)
	if snapshot.RewardBps != 500 || snapshot.Pending != nil {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestPauseBlocksHooks(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	rec := env.signedRequest(t, env.owner, "/v1/governance/pause", pauseRequest{Paused: true}, testNow)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status %d: %s", rec.Code, rec.Body.String())
	}
	in := env.signedIntent(t, 0)
	rec = env.hostRequest(t, "/v1/hooks/before-swap", hookBody(t, in, nil), testHostToken)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while paused, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "SystemPaused" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestReserveWithdrawByOwner(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	// 20_000 * 5 / 10_000 = 10 lands in the reserve.
	in := env.signedIntent(t, 0)
	rec := env.hostRequest(t, "/v1/hooks/before-swap", hookBody(t, in, nil), testHostToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("before-swap status %d", rec.Code)
	}
	rec = env.hostRequest(t, "/v1/hooks/after-swap", hookBody(t, in, &deltaJSON{Amount0: "-2000", Amount1: "20000"}), testHostToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("after-swap status %d: %s", rec.Code, rec.Body.String())
	}

	var reserveBalance assetAmount
	decodeResponse(t, env.get(t, "/v1/reserves/"+testWETH.Hex()).Body, &reserveBalance)
	if reserveBalance.Amount != "10" {
		t.Fatalf("expected reserve 10, got %s", reserveBalance.Amount)
	}

	rec = env.signedRequest(t, env.trader, "/v1/reserve/withdraw", withdrawRequest{Asset: testWETH.Hex(), Amount: "4"}, testNow)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}
	rec = env.signedRequest(t, env.owner, "/v1/reserve/withdraw", withdrawRequest{Asset: testWETH.Hex(), Amount: "4"}, testNow)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw status %d: %s", rec.Code, rec.Body.String())
	}
	var withdrawn withdrawResponse
	decodeResponse(t, rec.Body, &withdrawn)
	if withdrawn.Remaining != "6" {
		t.Fatalf("expected remaining 6, got %s", withdrawn.Remaining)
	}
	rec = env.signedRequest(t, env.owner, "/v1/reserve/withdraw", withdrawRequest{Asset: testWETH.Hex(), Amount: "7"}, testNow.Add(time.Second))
	if code := errorCode(t, rec); code != "InsufficientReserve" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestRateLimitThrottlesReads(t *testing.T) {
	env := newTestEnv(t, RateLimit{RequestsPerSecond: 1, Burst: 2})
	for i := 0; i < 2; i++ {
		if rec := env.get(t, "/v1/reserves"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status %d", i, rec.Code)
		}
	}
	rec := env.get(t, "/v1/reserves")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "RateLimited" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestDomainEndpoint(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	var domain domainResponse
	decodeResponse(t, env.get(t, "/v1/domain").Body, &domain)
	if domain.ChainID != "31337" || common.HexToAddress(domain.VerifyingContract) != testCustody {
		t.Fatalf("unexpected domain %+v", domain)
	}
	expected, err := intent.NewDomain(testChainID, testCustody).Separator()
	if err != nil {
		t.Fatalf("separator: %v", err)
	}
	if domain.Separator != expected.Hex() {
		t.Fatalf("separator mismatch %s != %s", domain.Separator, expected.Hex())
	}
}

func TestInvalidPathAddressIsBadRequest(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	rec := env.get(t, "/v1/rewards/not-an-address")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHooksAcceptMintedHostToken(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	body := hookBody(t, env.signedIntent(t, 0), nil)

	token, err := MintHostToken(testHostToken, testNow, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	rec := env.hostRequest(t, "/v1/hooks/before-swap", body, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected minted token to be accepted, got %d: %s", rec.Code, rec.Body.String())
	}

	expired, err := MintHostToken(testHostToken, testNow.Add(-time.Hour), time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	rec = env.hostRequest(t, "/v1/hooks/before-swap", body, expired)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected expired token to be rejected, got %d", rec.Code)
	}

	foreign, err := MintHostToken("other-secret", testNow, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	rec = env.hostRequest(t, "/v1/hooks/before-swap", body, foreign)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected foreign token to be rejected, got %d", rec.Code)
	}
}

func TestBankMintAndApprove(t *testing.T) {
	env := newTestEnv(t, generousLimit())
	fresh, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	holder := ethcrypto.PubkeyToAddress(fresh.PublicKey)
	mint := mintRequest{Token: testUSDC.Hex(), To: holder.Hex(), Amount: "750"}

	rec := env.signedRequest(t, env.trader, "/v1/bank/mint", mint, env.now)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner mint, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.signedRequest(t, env.owner, "/v1/bank/mint", mint, env.now)
	if rec.Code != http.StatusOK {
		t.Fatalf("mint status %d: %s", rec.Code, rec.Body.String())
	}
	var minted tokenAmount
	decodeResponse(t, rec.Body, &minted)
	if minted.Amount != "750" || minted.Holder != holder.Hex() {
		t.Fatalf("unexpected mint response %+v", minted)
	}

	rec = env.signedRequest(t, fresh, "/v1/bank/approve", approveRequest{Token: testUSDC.Hex(), Amount: "500"}, env.now)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.get(t, "/v1/bank/balances/"+testUSDC.Hex()+"/"+holder.Hex())
	var balance tokenAmount
	decodeResponse(t, rec.Body, &balance)
	if balance.Amount != "750" {
		t.Fatalf("expected balance 750, got %+v", balance)
	}
	rec = env.get(t, "/v1/bank/allowances/"+testUSDC.Hex()+"/"+holder.Hex())
	var allowance tokenAmount
	decodeResponse(t, rec.Body, &allowance)
	if allowance.Amount != "500" {
		t.Fatalf("expected allowance 500, got %+v", allowance)
	}
}
