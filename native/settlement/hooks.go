package settlement

import (
	"encoding/hex"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Selector is the 4-byte acknowledgment a hook returns to the host. The host
// rejects the whole swap unless it receives the expected value.
type Selector [4]byte

// String renders the selector as 0x-prefixed hex.
func (s Selector) String() string { return "0x" + hex.EncodeToString(s[:]) }

func selectorOf(signature string) Selector {
	var out Selector
	copy(out[:], ethcrypto.Keccak256([]byte(signature))[:4])
	return out
}

var (
	// BeforeSwapSelector acknowledges a successful before-swap callback.
	BeforeSwapSelector = selectorOf("beforeSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),bytes)")
	// AfterSwapSelector acknowledges a successful after-swap callback.
	AfterSwapSelector = selectorOf("afterSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),int256,bytes)")
)
