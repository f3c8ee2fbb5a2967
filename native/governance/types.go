package governance

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MaxRewardBps caps the governed reward rate (10%).
	MaxRewardBps uint32 = 1_000
	// DefaultRewardBps is the rate in effect at genesis.
	DefaultRewardBps uint32 = 200
	// TimelockDelay is the mandatory observation window between proposing and
	// applying a reward-rate change.
	TimelockDelay = 48 * time.Hour
	// MaxGuardians bounds the circuit-breaker set.
	MaxGuardians = 32
)

var (
	ErrUnauthorized     = errors.New("governance: unauthorized")
	ErrNotMatured       = errors.New("governance: pending change not matured")
	ErrNoPendingChange  = errors.New("governance: no pending change")
	ErrRateTooHigh      = errors.New("governance: reward rate exceeds maximum")
	ErrNotInitialised   = errors.New("governance: not initialised")
	ErrInvalidAddress   = errors.New("governance: invalid address")
	ErrTooManyGuardians = errors.New("governance: guardian set full")

	errStateNotConfigured = errors.New("governance: state not configured")
)

// Genesis seeds the governance record on first start.
type Genesis struct {
	Owner     common.Address
	Guardians []common.Address
	RewardBps uint32
}

// Snapshot is the read-only view of governance state.
type Snapshot struct {
	Owner     common.Address   `json:"owner"`
	Guardians []common.Address `json:"guardians"`
	Paused    bool             `json:"paused"`
	RewardBps uint32           `json:"rewardBps"`
	Pending   *PendingView     `json:"pending,omitempty"`
}

// PendingView describes a queued reward-rate change.
type PendingView struct {
	Proposed  uint32    `json:"proposed"`
	MaturesAt time.Time `json:"maturesAt"`
}
