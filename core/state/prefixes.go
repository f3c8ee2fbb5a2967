package state

import "github.com/ethereum/go-ethereum/common"

var (
	noncePrefix        = []byte("settle/nonce/")
	rewardPrefix       = []byte("settle/reward/")
	reservePrefix      = []byte("settle/reserve/")
	governanceKey      = []byte("settle/governance")
	bankBalancePrefix  = []byte("bank/balance/")
	bankAllowancePref  = []byte("bank/allowance/")
	bankPermitNoncePre = []byte("bank/permit-nonce/")
)

func joinKey(prefix []byte, parts ...common.Address) []byte {
	buf := make([]byte, len(prefix), len(prefix)+len(parts)*common.AddressLength)
	copy(buf, prefix)
	for _, part := range parts {
		buf = append(buf, part.Bytes()...)
	}
	return buf
}

func nonceKey(trader common.Address) []byte { return joinKey(noncePrefix, trader) }

func rewardKey(trader, asset common.Address) []byte {
	return joinKey(rewardPrefix, trader, asset)
}

func reserveKey(asset common.Address) []byte { return joinKey(reservePrefix, asset) }

func bankBalanceKey(token, holder common.Address) []byte {
	return joinKey(bankBalancePrefix, token, holder)
}

func bankAllowanceKey(token, owner, spender common.Address) []byte {
	return joinKey(bankAllowancePref, token, owner, spender)
}

func bankPermitNonceKey(token, owner common.Address) []byte {
	return joinKey(bankPermitNoncePre, token, owner)
}
