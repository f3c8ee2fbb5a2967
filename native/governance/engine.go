package governance

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/core/events"
	"intentsettle/core/state"
)

// Engine applies owner and guardian actions to the governance record.
type Engine struct {
	state   *state.Manager
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewEngine constructs a governance engine with default no-op dependencies.
func NewEngine(manager *state.Manager) *Engine {
	return &Engine{
		state:   manager,
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
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

// SetNowFunc overrides the time source used for timelock maturity. Nil restores
// the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// Init writes the genesis record unless one already exists. It reports whether
// the record was created.
func (e *Engine) Init(genesis Genesis) (bool, error) {
	if e == nil || e.state == nil {
		return false, errStateNotConfigured
	}
	if genesis.Owner == (common.Address{}) {
		return false, fmt.Errorf("%w: owner required", ErrInvalidAddress)
	}
	if genesis.RewardBps > MaxRewardBps {
		return false, ErrRateTooHigh
	}
	guardians, err := normaliseGuardians(genesis.Guardians)
	if err != nil {
		return false, err
	}
	created := false
	err = e.state.Update(func(tx *state.Tx) error {
		_, ok, err := tx.Governance()
		if err != nil || ok {
			return err
		}
		created = true
		return tx.PutGovernance(&state.GovernanceRecord{
			Owner:     genesis.Owner,
			Guardians: guardians,
			RewardBps: genesis.RewardBps,
		})
	})
	return created, err
}

// Authorize resolves the roles caller holds in committed state.
func (e *Engine) Authorize(caller common.Address) (Capability, error) {
	var auth Capability
	err := e.view(func(record *state.GovernanceRecord) error {
		auth = NewCapability(caller, rolesOf(record, caller))
		return nil
	})
	return auth, err
}

// ProposeRewardRate queues bps behind the timelock. Only the owner may
// propose; a new proposal replaces any pending one.
func (e *Engine) ProposeRewardRate(auth Capability, bps uint32) (Pending, error) {
	now := e.nowFn()
	var pending Pending
	err := e.update(func(record *state.GovernanceRecord) error {
		if err := auth.require(record, RoleOwner); err != nil {
			return err
		}
		next, err := Propose(rateStateOf(record), bps, now)
		if err != nil {
			return err
		}
		storeRateState(record, next)
		pending = rateStateOf(record).(Pending)
		return nil
	})
	if err != nil {
		return Pending{}, err
	}
	e.emitter.Emit(events.RewardRateQueued{
		Proposer:  auth.Caller(),
		Current:   pending.Current,
		Proposed:  pending.Proposed,
		MaturesAt: pending.MaturesAt.Unix(),
	})
	return pending, nil
}

// ApplyRewardRate makes a matured proposal live. Only the owner may apply.
func (e *Engine) ApplyRewardRate(auth Capability) (uint32, error) {
	now := e.nowFn()
	var previous, applied uint32
	err := e.update(func(record *state.GovernanceRecord) error {
		if err := auth.require(record, RoleOwner); err != nil {
			return err
		}
		current := rateStateOf(record)
		next, err := Apply(current, now)
		if err != nil {
			return err
		}
		previous = current.Live()
		applied = next.Value
		storeRateState(record, next)
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.emitter.Emit(events.RewardRateApplied{Previous: previous, Applied: applied})
	return applied, nil
}

// SetGuardian adds or removes a circuit-breaker guardian. Owner only.
func (e *Engine) SetGuardian(auth Capability, guardian common.Address, enabled bool) error {
	if guardian == (common.Address{}) {
		return fmt.Errorf("%w: guardian required", ErrInvalidAddress)
	}
	changed := false
	err := e.update(func(record *state.GovernanceRecord) error {
		if err := auth.require(record, RoleOwner); err != nil {
			return err
		}
		index := -1
		for i, existing := range record.Guardians {
			if existing == guardian {
				index = i
				break
			}
		}
		switch {
		case enabled && index < 0:
			if len(record.Guardians) >= MaxGuardians {
				return ErrTooManyGuardians
			}
			record.Guardians = append(record.Guardians, guardian)
			sortAddresses(record.Guardians)
			changed = true
		case !enabled && index >= 0:
			record.Guardians = append(record.Guardians[:index], record.Guardians[index+1:]...)
			changed = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		e.emitter.Emit(events.GuardianUpdated{Guardian: guardian, Enabled: enabled})
	}
	return nil
}

// Pause engages or releases the circuit breaker immediately. Callable by the
// owner or any active guardian.
func (e *Engine) Pause(auth Capability, paused bool) error {
	changed := false
	err := e.update(func(record *state.GovernanceRecord) error {
		if err := auth.require(record, RoleOwner|RoleGuardian); err != nil {
			return err
		}
		changed = record.Paused != paused
		record.Paused = paused
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		e.emitter.Emit(events.PauseToggled{By: auth.Caller(), Paused: paused})
	}
	return nil
}

// TransferOwnership hands the owner role to newOwner. Owner only.
func (e *Engine) TransferOwnership(auth Capability, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: owner required", ErrInvalidAddress)
	}
	var previous common.Address
	err := e.update(func(record *state.GovernanceRecord) error {
		if err := auth.require(record, RoleOwner); err != nil {
			return err
		}
		previous = record.Owner
		record.Owner = newOwner
		return nil
	})
	if err != nil {
		return err
	}
	e.emitter.Emit(events.OwnershipTransferred{Previous: previous, Owner: newOwner})
	return nil
}

// Snapshot returns the committed governance state.
func (e *Engine) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := e.view(func(record *state.GovernanceRecord) error {
		snap = snapshotOf(record)
		return nil
	})
	return snap, err
}

// RateState returns the committed timelock state.
func (e *Engine) RateState() (RateState, error) {
	var s RateState
	err := e.view(func(record *state.GovernanceRecord) error {
		s = rateStateOf(record)
		return nil
	})
	return s, err
}

// LiveRewardBps reads the reward rate in effect within tx.
func LiveRewardBps(tx *state.Tx) (uint32, error) {
	record, ok, err := tx.Governance()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotInitialised
	}
	return rateStateOf(record).Live(), nil
}

// RequireOwner confirms auth holds the owner role against the record in tx.
// Other modules use it to gate owner-only operations inside their own
// transactions.
func RequireOwner(tx *state.Tx, auth Capability) error {
	record, ok, err := tx.Governance()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialised
	}
	return auth.require(record, RoleOwner)
}

func snapshotOf(record *state.GovernanceRecord) Snapshot {
	snap := Snapshot{
		Owner:     record.Owner,
		Guardians: append([]common.Address(nil), record.Guardians...),
		Paused:    record.Paused,
		RewardBps: record.RewardBps,
	}
	if pending, ok := rateStateOf(record).(Pending); ok {
		snap.Pending = &PendingView{Proposed: pending.Proposed, MaturesAt: pending.MaturesAt}
	}
	return snap
}

func (e *Engine) update(fn func(record *state.GovernanceRecord) error) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	return e.state.Update(func(tx *state.Tx) error {
		record, ok, err := tx.Governance()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInitialised
		}
		if err := fn(record); err != nil {
			return err
		}
		return tx.PutGovernance(record)
	})
}

func (e *Engine) view(fn func(record *state.GovernanceRecord) error) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	return e.state.View(func(tx *state.Tx) error {
		record, ok, err := tx.Governance()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInitialised
		}
		return fn(record)
	})
}

func normaliseGuardians(in []common.Address) ([]common.Address, error) {
	seen := make(map[common.Address]struct{}, len(in))
	out := make([]common.Address, 0, len(in))
	for _, guardian := range in {
		if guardian == (common.Address{}) {
			return nil, fmt.Errorf("%w: guardian required", ErrInvalidAddress)
		}
		if _, dup := seen[guardian]; dup {
			continue
		}
		seen[guardian] = struct{}{}
		out = append(out, guardian)
	}
	if len(out) > MaxGuardians {
		return nil, ErrTooManyGuardians
	}
	sortAddresses(out)
	return out, nil
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
