package governance

import (
	"fmt"
	"time"

	"intentsettle/core/state"
)

// RateState is the reward-rate timelock. It is either Active, with a single
// live value, or Pending, carrying the live value alongside a queued one.
// Apply is the only way out of Pending.
type RateState interface {
	// Live returns the rate in effect.
	Live() uint32
	isRateState()
}

// Active holds a live rate with nothing queued.
type Active struct {
	Value uint32
}

// Pending holds the live rate and a proposed replacement that may be applied
// once MaturesAt is reached.
type Pending struct {
	Current   uint32
	Proposed  uint32
	MaturesAt time.Time
}

func (a Active) Live() uint32  { return a.Value }
func (p Pending) Live() uint32 { return p.Current }
func (Active) isRateState()    {}
func (Pending) isRateState()   {}

// Matured reports whether the change may be applied at now.
func (p Pending) Matured(now time.Time) bool {
	return !now.Before(p.MaturesAt)
}

// Propose queues value behind the timelock, replacing any change already
// pending.
func Propose(s RateState, value uint32, now time.Time) (Pending, error) {
	if value > MaxRewardBps {
		return Pending{}, fmt.Errorf("%w: %d > %d", ErrRateTooHigh, value, MaxRewardBps)
	}
	return Pending{Current: s.Live(), Proposed: value, MaturesAt: now.Add(TimelockDelay)}, nil
}

// Apply promotes a matured pending value.
func Apply(s RateState, now time.Time) (Active, error) {
	pending, ok := s.(Pending)
	if !ok {
		return Active{}, ErrNoPendingChange
	}
	if !pending.Matured(now) {
		return Active{}, fmt.Errorf("%w: matures at %s", ErrNotMatured, pending.MaturesAt.UTC().Format(time.RFC3339))
	}
	return Active{Value: pending.Proposed}, nil
}

func rateStateOf(record *state.GovernanceRecord) RateState {
	if record.HasPending {
		return Pending{
			Current:   record.RewardBps,
			Proposed:  record.PendingBps,
			MaturesAt: time.Unix(int64(record.PendingMaturesAt), 0).UTC(),
		}
	}
	return Active{Value: record.RewardBps}
}

func storeRateState(record *state.GovernanceRecord, s RateState) {
	switch v := s.(type) {
	case Active:
		record.RewardBps = v.Value
		record.HasPending = false
		record.PendingBps = 0
		record.PendingMaturesAt = 0
	case Pending:
		record.RewardBps = v.Current
		record.HasPending = true
		record.PendingBps = v.Proposed
		// Round up so a stored deadline never matures earlier than proposed.
		secs := v.MaturesAt.Unix()
		if v.MaturesAt.Nanosecond() > 0 {
			secs++
		}
		record.PendingMaturesAt = uint64(secs)
	}
}
