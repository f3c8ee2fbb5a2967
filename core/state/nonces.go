package state

import "github.com/ethereum/go-ethereum/common"

// Nonce returns the next sequence number expected from trader. Traders that
// never settled start at zero.
func (tx *Tx) Nonce(trader common.Address) (uint64, error) {
	var value uint64
	if _, err := tx.KVGet(nonceKey(trader), &value); err != nil {
		return 0, err
	}
	return value, nil
}

// PutNonce stages the next expected sequence number for trader.
func (tx *Tx) PutNonce(trader common.Address, next uint64) error {
	return tx.KVPut(nonceKey(trader), next)
}
