package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/types"
)

const (
	TypeRewardClaimed   = "vault.claimed"
	TypeReserveWithdraw = "reserve.withdrawn"
)

type RewardClaimed struct {
	Trader common.Address
	Asset  common.Address
	Amount *big.Int
}

func (RewardClaimed) EventType() string { return TypeRewardClaimed }

func (e RewardClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardClaimed,
		Attributes: map[string]string{
			"trader": formatAddress(e.Trader),
			"asset":  formatAddress(e.Asset),
			"amount": formatAmount(e.Amount),
		},
	}
}

type ReserveWithdrawn struct {
	Asset     common.Address
	Recipient common.Address
	Amount    *big.Int
	Remaining *big.Int
}

func (ReserveWithdrawn) EventType() string { return TypeReserveWithdraw }

func (e ReserveWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeReserveWithdraw,
		Attributes: map[string]string{
			"asset":     formatAddress(e.Asset),
			"recipient": formatAddress(e.Recipient),
			"amount":    formatAmount(e.Amount),
			"remaining": formatAmount(e.Remaining),
		},
	}
}
