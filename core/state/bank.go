package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenBalance returns the ledger balance of holder for token.
func (tx *Tx) TokenBalance(token, holder common.Address) (*big.Int, error) {
	return tx.loadAmount(bankBalanceKey(token, holder))
}

// CreditToken adds amount to holder's token balance.
func (tx *Tx) CreditToken(token, holder common.Address, amount *big.Int) (*big.Int, error) {
	return tx.addAmount(bankBalanceKey(token, holder), amount)
}

// DebitToken removes amount from holder's token balance, failing with
// ErrBalanceUnderflow when the holder cannot cover it.
func (tx *Tx) DebitToken(token, holder common.Address, amount *big.Int) (*big.Int, error) {
	return tx.subAmount(bankBalanceKey(token, holder), amount)
}

// TokenAllowance returns how much spender may pull from owner.
func (tx *Tx) TokenAllowance(token, owner, spender common.Address) (*big.Int, error) {
	return tx.loadAmount(bankAllowanceKey(token, owner, spender))
}

// PutTokenAllowance overwrites the allowance granted by owner to spender.
func (tx *Tx) PutTokenAllowance(token, owner, spender common.Address, amount *big.Int) error {
	return tx.storeAmount(bankAllowanceKey(token, owner, spender), amount)
}

// SpendTokenAllowance decrements the allowance by amount.
func (tx *Tx) SpendTokenAllowance(token, owner, spender common.Address, amount *big.Int) (*big.Int, error) {
	return tx.subAmount(bankAllowanceKey(token, owner, spender), amount)
}

// PermitNonce returns the next permit nonce expected from owner for token.
func (tx *Tx) PermitNonce(token, owner common.Address) (uint64, error) {
	var value uint64
	if _, err := tx.KVGet(bankPermitNonceKey(token, owner), &value); err != nil {
		return 0, err
	}
	return value, nil
}

// PutPermitNonce stages the next permit nonce for owner.
func (tx *Tx) PutPermitNonce(token, owner common.Address, next uint64) error {
	return tx.KVPut(bankPermitNonceKey(token, owner), next)
}
