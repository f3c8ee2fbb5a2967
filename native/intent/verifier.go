package intent

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "intentsettle/native/common"
)

// VerifierState is the read-only view consulted during verification.
type VerifierState interface {
	nativecommon.PauseView
	NonceReader
}

// Verifier checks intents against a fixed signing domain.
type Verifier struct {
	domain Domain
	nowFn  func() time.Time
}

// NewVerifier constructs a verifier bound to domain using the UTC wall clock.
func NewVerifier(domain Domain) *Verifier {
	return &Verifier{
		domain: domain,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used for expiry checks. Nil restores the
// default UTC clock.
func (v *Verifier) SetNowFunc(now func() time.Time) {
	if now == nil {
		v.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	v.nowFn = now
}

// Domain returns the signing domain the verifier enforces.
func (v *Verifier) Domain() Domain { return v.domain }

// Now returns the verifier's notion of the current time.
func (v *Verifier) Now() time.Time { return v.nowFn() }

// CheckDeadline fails with ErrExpired once the verifier clock has passed the
// intent deadline.
func (v *Verifier) CheckDeadline(in *Intent) error {
	now := v.nowFn().Unix()
	if now < 0 {
		now = 0
	}
	if in.Deadline < uint64(now) {
		return ErrExpired
	}
	return nil
}

// Verify runs every admission check in order: circuit breaker, structure,
// expiry, nonce, venue binding and finally signature recovery. It never
// mutates state; the caller advances the nonce when the settlement commits.
// The intent digest is returned on success.
func (v *Verifier) Verify(state VerifierState, in *Intent, venue VenueKey) (common.Hash, error) {
	if state == nil {
		return common.Hash{}, fmt.Errorf("intent: verifier state not configured")
	}
	if err := nativecommon.Guard(state); err != nil {
		return common.Hash{}, err
	}
	if err := in.Validate(); err != nil {
		return common.Hash{}, err
	}
	if err := v.CheckDeadline(in); err != nil {
		return common.Hash{}, err
	}
	if err := CheckNonce(state, in.Trader, in.Nonce); err != nil {
		return common.Hash{}, err
	}
	if !in.Venue.Matches(venue) {
		return common.Hash{}, ErrVenueMismatch
	}
	digest, err := v.domain.Digest(in)
	if err != nil {
		return common.Hash{}, err
	}
	signer, err := RecoverSigner(digest, in.Signature)
	if err != nil {
		return common.Hash{}, err
	}
	if signer != in.Trader {
		return common.Hash{}, ErrBadSignature
	}
	return digest, nil
}
