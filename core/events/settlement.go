package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/types"
)

const (
	// TypeIntentSettled is emitted once a settlement has committed and the
	// trader payout has been attempted.
	TypeIntentSettled = "settle.settled"
	// TypeSessionAborted is emitted when an in-flight settlement is released
	// without committing.
	TypeSessionAborted = "settle.aborted"
)

// IntentSettled captures the committed outcome of a settlement.
type IntentSettled struct {
	Digest         common.Hash
	Trader         common.Address
	Executor       common.Address
	Venue          common.Hash
	TokenIn        common.Address
	TokenOut       common.Address
	Nonce          uint64
	AmountIn       *big.Int
	Proceeds       *big.Int
	ReserveFee     *big.Int
	Reward         *big.Int
	TraderNet      *big.Int
	RewardBps      uint32
	PayoutDeferred bool
}

func (IntentSettled) EventType() string { return TypeIntentSettled }

func (e IntentSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeIntentSettled,
		Attributes: map[string]string{
			"digest":         e.Digest.Hex(),
			"trader":         formatAddress(e.Trader),
			"executor":       formatAddress(e.Executor),
			"venue":          e.Venue.Hex(),
			"tokenIn":        formatAddress(e.TokenIn),
			"tokenOut":       formatAddress(e.TokenOut),
			"nonce":          uintToString(e.Nonce),
			"amountIn":       formatAmount(e.AmountIn),
			"proceeds":       formatAmount(e.Proceeds),
			"reserveFee":     formatAmount(e.ReserveFee),
			"reward":         formatAmount(e.Reward),
			"traderNet":      formatAmount(e.TraderNet),
			"rewardBps":      uintToString(uint64(e.RewardBps)),
			"payoutDeferred": boolToString(e.PayoutDeferred),
		},
	}
}

// SessionAborted records the release of an uncommitted settlement session.
type SessionAborted struct {
	Digest common.Hash
	Trader common.Address
	Nonce  uint64
	Reason string
}

func (SessionAborted) EventType() string { return TypeSessionAborted }

func (e SessionAborted) Event() *types.Event {
	return &types.Event{
		Type: TypeSessionAborted,
		Attributes: map[string]string{
			"digest": e.Digest.Hex(),
			"trader": formatAddress(e.Trader),
			"nonce":  uintToString(e.Nonce),
			"reason": e.Reason,
		},
	}
}
