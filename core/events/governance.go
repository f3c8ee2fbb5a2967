package events

import (
	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/types"
)

const (
	// TypeRewardRateQueued marks a reward-rate proposal entering the timelock.
	TypeRewardRateQueued = "gov.rate_queued"
	// TypeRewardRateApplied marks a matured proposal becoming live.
	TypeRewardRateApplied = "gov.rate_applied"
	// TypeGuardianUpdated is emitted when the owner toggles a guardian.
	TypeGuardianUpdated = "gov.guardian_updated"
	// TypePauseToggled is emitted whenever the circuit breaker changes state.
	TypePauseToggled = "gov.pause_toggled"
	// TypeOwnershipTransferred is emitted when the owner hands over control.
	TypeOwnershipTransferred = "gov.owner_transferred"
)

type RewardRateQueued struct {
	Proposer  common.Address
	Current   uint32
	Proposed  uint32
	MaturesAt int64
}

func (RewardRateQueued) EventType() string { return TypeRewardRateQueued }

func (e RewardRateQueued) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardRateQueued,
		Attributes: map[string]string{
			"proposer":  formatAddress(e.Proposer),
			"current":   uintToString(uint64(e.Current)),
			"proposed":  uintToString(uint64(e.Proposed)),
			"maturesAt": uintToString(uint64(e.MaturesAt)),
		},
	}
}

type RewardRateApplied struct {
	Previous uint32
	Applied  uint32
}

func (RewardRateApplied) EventType() string { return TypeRewardRateApplied }

func (e RewardRateApplied) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardRateApplied,
		Attributes: map[string]string{
			"previous": uintToString(uint64(e.Previous)),
			"applied":  uintToString(uint64(e.Applied)),
		},
	}
}

type GuardianUpdated struct {
	Guardian common.Address
	Enabled  bool
}

func (GuardianUpdated) EventType() string { return TypeGuardianUpdated }

func (e GuardianUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeGuardianUpdated,
		Attributes: map[string]string{
			"guardian": formatAddress(e.Guardian),
			"enabled":  boolToString(e.Enabled),
		},
	}
}

type PauseToggled struct {
	By     common.Address
	Paused bool
}

func (PauseToggled) EventType() string { return TypePauseToggled }

func (e PauseToggled) Event() *types.Event {
	return &types.Event{
		Type: TypePauseToggled,
		Attributes: map[string]string{
			"by":     formatAddress(e.By),
			"paused": boolToString(e.Paused),
		},
	}
}

type OwnershipTransferred struct {
	Previous common.Address
	Owner    common.Address
}

func (OwnershipTransferred) EventType() string { return TypeOwnershipTransferred }

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeOwnershipTransferred,
		Attributes: map[string]string{
			"previous": formatAddress(e.Previous),
			"owner":    formatAddress(e.Owner),
		},
	}
}
