package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"intentsettle/core/events"
	"intentsettle/core/state"
	"intentsettle/native/bank"
	nativecommon "intentsettle/native/common"
	"intentsettle/native/governance"
	"intentsettle/native/intent"
	"intentsettle/observability"
	telemetry "intentsettle/observability/otel"
)

// DefaultSessionTTL bounds how long a before-swap admission stays reserved
// without a matching after-swap or abort.
const DefaultSessionTTL = 2 * time.Minute

// Receipt describes a committed settlement.
type Receipt struct {
	Digest         common.Hash
	Trader         common.Address
	Executor       common.Address
	Nonce          uint64
	AmountIn       *big.Int
	Proceeds       *big.Int
	Split          Split
	RewardBps      uint32
	PayoutDeferred bool
}

type session struct {
	digest   common.Hash
	intent   *intent.Intent
	executor common.Address
	opened   time.Time
}

// Engine implements the AMM hook pair around a swap. BeforeSwap admits an
// intent and reserves a per-trader session; AfterSwap attributes the swap
// result, commits nonce and credits atomically, then pays the trader.
//
// Token transfers are never issued from inside a state transaction.
type Engine struct {
	state    *state.Manager
	verifier *intent.Verifier
	tokens   bank.Collaborator
	custody  common.Address
	emitter  events.Emitter
	metrics  *observability.SettlementMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
	nowFn    func() time.Time
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[common.Address]*session
}

// NewEngine wires the settlement engine. The custody address receives pulled
// input and funds trader payouts; it is the verifying contract of the intent
// domain.
func NewEngine(manager *state.Manager, verifier *intent.Verifier, tokens bank.Collaborator) *Engine {
	return &Engine{
		state:    manager,
		verifier: verifier,
		tokens:   tokens,
		custody:  verifier.Domain().VerifyingContract,
		emitter:  events.NoopEmitter{},
		metrics:  observability.Settlement(),
		logger:   slog.Default(),
		tracer:   telemetry.Tracer("intentsettle/native/settlement"),
		nowFn:    func() time.Time { return time.Now().UTC() },
		ttl:      DefaultSessionTTL,
		sessions: make(map[common.Address]*session),
	}
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used for session expiry. The verifier keeps
// its own clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// SetLogger replaces the logger. Nil restores slog.Default().
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetSessionTTL overrides how long admitted sessions remain reserved.
func (e *Engine) SetSessionTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	e.ttl = ttl
}

// BeforeSwap admits the intent carried in hookData. It verifies the intent
// against committed state without mutating it, checks that the host is
// executing exactly the signed swap, and reserves a session for the trader.
func (e *Engine) BeforeSwap(ctx context.Context, caller common.Address, venue intent.VenueKey, params SwapParams, hookData []byte) (Selector, error) {
	ctx, span := e.tracer.Start(ctx, "settlement.before_swap")
	defer span.End()

	in, digest, err := e.admit(ctx, venue, params, hookData)
	if err != nil {
		e.reject(span, "before_swap", err)
		return Selector{}, err
	}
	span.SetAttributes(attribute.String("trader", in.Trader.Hex()), attribute.String("digest", digest.Hex()))

	now := e.nowFn()
	e.mu.Lock()
	if existing, ok := e.sessions[in.Trader]; ok && now.Sub(existing.opened) < e.ttl {
		e.mu.Unlock()
		err := fmt.Errorf("%w: settlement already in flight", intent.ErrReplayOrOutOfOrder)
		e.reject(span, "before_swap", err)
		return Selector{}, err
	}
	e.sessions[in.Trader] = &session{digest: digest, intent: in, executor: caller, opened: now}
	inFlight := len(e.sessions)
	e.mu.Unlock()
	e.metrics.SetInFlight(inFlight)
	return BeforeSwapSelector, nil
}

func (e *Engine) admit(ctx context.Context, venue intent.VenueKey, params SwapParams, hookData []byte) (*intent.Intent, common.Hash, error) {
	if e == nil || e.state == nil || e.verifier == nil {
		return nil, common.Hash{}, errStateNotConfigured
	}
	if err := e.guard(); err != nil {
		return nil, common.Hash{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, common.Hash{}, err
	}
	in, err := intent.DecodePayload(hookData)
	if err != nil {
		return nil, common.Hash{}, err
	}
	var digest common.Hash
	err = e.state.View(func(tx *state.Tx) error {
		var verr error
		digest, verr = e.verifier.Verify(tx, in, venue)
		return verr
	})
	if err != nil {
		return nil, common.Hash{}, err
	}
	if err := checkParams(in, params); err != nil {
		return nil, common.Hash{}, err
	}
	return in, digest, nil
}

// AfterSwap settles the session opened by BeforeSwap using the host's
// balance delta. Any failure releases the session; the host is expected to
// revert the swap when no selector is returned.
func (e *Engine) AfterSwap(ctx context.Context, caller common.Address, venue intent.VenueKey, params SwapParams, delta BalanceDelta, hookData []byte) (Selector, *Receipt, error) {
	ctx, span := e.tracer.Start(ctx, "settlement.after_swap")
	defer span.End()

	receipt, err := e.afterSwap(ctx, caller, venue, params, delta, hookData)
	if err != nil {
		e.reject(span, "after_swap", err)
		return Selector{}, nil, err
	}
	span.SetAttributes(
		attribute.String("trader", receipt.Trader.Hex()),
		attribute.String("digest", receipt.Digest.Hex()),
		attribute.Bool("payout_deferred", receipt.PayoutDeferred),
	)
	return AfterSwapSelector, receipt, nil
}

func (e *Engine) afterSwap(ctx context.Context, caller common.Address, venue intent.VenueKey, params SwapParams, delta BalanceDelta, hookData []byte) (*Receipt, error) {
	if e == nil || e.state == nil || e.verifier == nil || e.tokens == nil {
		return nil, errStateNotConfigured
	}
	// The breaker outranks every other check. A paused host still gets its
	// session back.
	if err := e.guard(); err != nil {
		e.releasePayload(hookData)
		return nil, err
	}
	in, err := intent.DecodePayload(hookData)
	if err != nil {
		return nil, err
	}
	digest, err := e.verifier.Domain().Digest(in)
	if err != nil {
		return nil, err
	}
	sess, err := e.takeSession(in.Trader, digest)
	if err != nil {
		return nil, err
	}
	defer e.releaseSession(in.Trader, digest)
	// The payload may carry a different permit than the one admitted; only
	// the admitted intent is settled.
	in = sess.intent

	if !in.Venue.Matches(venue) {
		return nil, intent.ErrVenueMismatch
	}
	if err := checkParams(in, params); err != nil {
		return nil, err
	}
	amountIn, proceeds, err := attributeDelta(in, delta)
	if err != nil {
		return nil, err
	}
	// Pre-flight the split against the committed rate so an obviously
	// failing settlement never moves funds.
	var rate uint32
	if err := e.state.View(func(tx *state.Tx) error {
		var rerr error
		rate, rerr = governance.LiveRewardBps(tx)
		return rerr
	}); err != nil {
		return nil, err
	}
	if _, err := ComputeSplit(proceeds, in.MinAmountOut, rate); err != nil {
		return nil, err
	}

	if in.Permit != nil {
		if err := e.tokens.Permit(ctx, bank.PermitRequest{
			Token:     in.TokenIn,
			Owner:     in.Trader,
			Spender:   e.custody,
			Value:     new(big.Int).Set(in.Permit.Value),
			Deadline:  in.Permit.Deadline,
			Signature: append([]byte(nil), in.Permit.Signature...),
		}); err != nil {
			return nil, fmt.Errorf("settlement: permit: %w", err)
		}
	}
	if err := e.tokens.Pull(ctx, in.TokenIn, in.Trader, amountIn); err != nil {
		return nil, fmt.Errorf("settlement: pull input: %w", err)
	}

	var split Split
	err = e.state.Update(func(tx *state.Tx) error {
		if err := nativecommon.Guard(tx); err != nil {
			return err
		}
		// The session may have outlived the signed deadline.
		if err := e.verifier.CheckDeadline(in); err != nil {
			return err
		}
		if _, err := intent.ConsumeNonce(tx, in.Trader, in.Nonce); err != nil {
			return err
		}
		live, err := governance.LiveRewardBps(tx)
		if err != nil {
			return err
		}
		computed, err := ComputeSplit(proceeds, in.MinAmountOut, live)
		if err != nil {
			return err
		}
		if _, err := tx.CreditReserve(in.TokenOut, computed.ReserveFee); err != nil {
			return err
		}
		if _, err := tx.CreditReward(in.Trader, in.TokenOut, computed.Reward); err != nil {
			return err
		}
		split = computed
		rate = live
		return nil
	})
	if err != nil {
		// Nothing committed: hand the pulled input back.
		if refundErr := e.tokens.Push(context.WithoutCancel(ctx), in.TokenIn, in.Trader, amountIn); refundErr != nil {
			e.logger.Error("settlement refund failed",
				slog.String("trader", in.Trader.Hex()),
				slog.String("digest", digest.Hex()),
				slog.String("amount", amountIn.String()),
				slog.Any("error", refundErr))
			return nil, errors.Join(err, fmt.Errorf("settlement: refund input: %w", refundErr))
		}
		return nil, err
	}

	if poster, ok := e.tokens.(bank.SwapPoster); ok {
		if err := poster.PostSwap(context.WithoutCancel(ctx), bank.SwapPosting{
			Venue:     in.Venue.Account(),
			TokenIn:   in.TokenIn,
			AmountIn:  amountIn,
			TokenOut:  in.TokenOut,
			AmountOut: proceeds,
		}); err != nil {
			// Committed regardless; a custody shortfall surfaces as a
			// deferred payout below.
			e.logger.Error("swap posting failed",
				slog.String("trader", in.Trader.Hex()),
				slog.String("digest", digest.Hex()),
				slog.Any("error", err))
		}
	}

	deferred := false
	if split.TraderNet.Sign() > 0 {
		if pushErr := e.tokens.Push(context.WithoutCancel(ctx), in.TokenOut, in.Trader, split.TraderNet); pushErr != nil {
			deferred = true
			e.logger.Warn("trader payout deferred to vault",
				slog.String("trader", in.Trader.Hex()),
				slog.String("digest", digest.Hex()),
				slog.Any("error", pushErr))
			if err := e.state.Update(func(tx *state.Tx) error {
				_, cerr := tx.CreditReward(in.Trader, in.TokenOut, split.TraderNet)
				return cerr
			}); err != nil {
				e.logger.Error("deferred payout credit failed",
					slog.String("trader", in.Trader.Hex()),
					slog.String("digest", digest.Hex()),
					slog.String("amount", split.TraderNet.String()),
					slog.Any("error", err))
				return nil, fmt.Errorf("settlement: defer payout: %w", errors.Join(pushErr, err))
			}
		}
	}

	receipt := &Receipt{
		Digest:         digest,
		Trader:         in.Trader,
		Executor:       sess.executor,
		Nonce:          in.Nonce,
		AmountIn:       amountIn,
		Proceeds:       proceeds,
		Split:          split,
		RewardBps:      rate,
		PayoutDeferred: deferred,
	}
	if caller != (common.Address{}) && receipt.Executor == (common.Address{}) {
		receipt.Executor = caller
	}
	e.emitter.Emit(events.IntentSettled{
		Digest:         digest,
		Trader:         in.Trader,
		Executor:       receipt.Executor,
		Venue:          in.Venue.ID(),
		TokenIn:        in.TokenIn,
		TokenOut:       in.TokenOut,
		Nonce:          in.Nonce,
		AmountIn:       new(big.Int).Set(amountIn),
		Proceeds:       new(big.Int).Set(proceeds),
		ReserveFee:     new(big.Int).Set(split.ReserveFee),
		Reward:         new(big.Int).Set(split.Reward),
		TraderNet:      new(big.Int).Set(split.TraderNet),
		RewardBps:      rate,
		PayoutDeferred: deferred,
	})
	e.metrics.RecordSettled(in.TokenOut, proceeds, split.ReserveFee, split.Reward, deferred, e.nowFn().Sub(sess.opened))
	return receipt, nil
}

// Abort releases the session identified by digest without settling it.
func (e *Engine) Abort(digest common.Hash, reason string) error {
	e.mu.Lock()
	var found *session
	for trader, sess := range e.sessions {
		if sess.digest == digest {
			found = sess
			delete(e.sessions, trader)
			break
		}
	}
	inFlight := len(e.sessions)
	e.mu.Unlock()
	if found == nil {
		return ErrUnknownSession
	}
	e.metrics.SetInFlight(inFlight)
	e.emitter.Emit(events.SessionAborted{
		Digest: digest,
		Trader: found.intent.Trader,
		Nonce:  found.intent.Nonce,
		Reason: reason,
	})
	return nil
}

// InFlight reports the number of sessions that have not lapsed.
func (e *Engine) InFlight() int {
	now := e.nowFn()
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, sess := range e.sessions {
		if now.Sub(sess.opened) < e.ttl {
			count++
		}
	}
	return count
}

// Nonce returns the committed next nonce for trader.
func (e *Engine) Nonce(trader common.Address) (uint64, error) {
	var nonce uint64
	err := e.state.View(func(tx *state.Tx) error {
		var nerr error
		nonce, nerr = tx.Nonce(trader)
		return nerr
	})
	return nonce, err
}

// Domain returns the signing domain intents must be signed under.
func (e *Engine) Domain() intent.Domain { return e.verifier.Domain() }

func (e *Engine) takeSession(trader common.Address, digest common.Hash) (*session, error) {
	now := e.nowFn()
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[trader]
	if !ok || sess.digest != digest {
		return nil, ErrUnknownSession
	}
	if now.Sub(sess.opened) >= e.ttl {
		delete(e.sessions, trader)
		return nil, fmt.Errorf("%w: session lapsed", ErrUnknownSession)
	}
	return sess, nil
}

func (e *Engine) guard() error {
	return e.state.View(func(tx *state.Tx) error { return nativecommon.Guard(tx) })
}

// releasePayload drops the session belonging to the intent in hookData, if
// the payload decodes at all.
func (e *Engine) releasePayload(hookData []byte) {
	in, err := intent.DecodePayload(hookData)
	if err != nil {
		return
	}
	digest, err := e.verifier.Domain().Digest(in)
	if err != nil {
		return
	}
	e.releaseSession(in.Trader, digest)
}

func (e *Engine) releaseSession(trader common.Address, digest common.Hash) {
	e.mu.Lock()
	if sess, ok := e.sessions[trader]; ok && sess.digest == digest {
		delete(e.sessions, trader)
	}
	inFlight := len(e.sessions)
	e.mu.Unlock()
	e.metrics.SetInFlight(inFlight)
}

func (e *Engine) reject(span trace.Span, stage string, err error) {
	reason := Reason(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	e.metrics.RecordRejection(stage, reason)
}
