package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/types"
)

const (
	TypeTokenTransferred = "bank.transfer"
	TypePermitConsumed   = "bank.permit"
)

type TokenTransferred struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (TokenTransferred) EventType() string { return TypeTokenTransferred }

func (e TokenTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenTransferred,
		Attributes: map[string]string{
			"token":  formatAddress(e.Token),
			"from":   formatAddress(e.From),
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

type PermitConsumed struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Value   *big.Int
	Nonce   uint64
}

func (PermitConsumed) EventType() string { return TypePermitConsumed }

func (e PermitConsumed) Event() *types.Event {
	return &types.Event{
		Type: TypePermitConsumed,
		Attributes: map[string]string{
			"token":   formatAddress(e.Token),
			"owner":   formatAddress(e.Owner),
			"spender": formatAddress(e.Spender),
			"value":   formatAmount(e.Value),
			"nonce":   uintToString(e.Nonce),
		},
	}
}
