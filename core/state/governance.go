package state

import "github.com/ethereum/go-ethereum/common"

// GovernanceRecord is the single persisted record holding ownership, the
// guardian set, the global pause flag and the reward-rate timelock.
type GovernanceRecord struct {
	Owner            common.Address
	Guardians        []common.Address
	Paused           bool
	RewardBps        uint32
	HasPending       bool
	PendingBps       uint32
	PendingMaturesAt uint64
}

// Governance loads the governance record. The boolean reports whether the
// record has been initialised.
func (tx *Tx) Governance() (*GovernanceRecord, bool, error) {
	record := new(GovernanceRecord)
	ok, err := tx.KVGet(governanceKey, record)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record, true, nil
}

// PutGovernance stages the governance record.
func (tx *Tx) PutGovernance(record *GovernanceRecord) error {
	return tx.KVPut(governanceKey, record)
}

// IsPaused reports the circuit-breaker flag. An uninitialised record counts as
// unpaused.
func (tx *Tx) IsPaused() (bool, error) {
	record, ok, err := tx.Governance()
	if err != nil || !ok {
		return false, err
	}
	return record.Paused, nil
}
