package settlement

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// InsuranceFeeBps is the fixed reserve cut taken from every settlement.
	InsuranceFeeBps = 5
	// BpsDenominator is the basis-point scale.
	BpsDenominator = 10_000
)

// Split is the derived division of proceeds. ReserveFee + Reward + TraderNet
// always equals the proceeds it was computed from.
type Split struct {
	ReserveFee *big.Int
	Reward     *big.Int
	TraderNet  *big.Int
}

// ComputeSplit divides proceeds with truncating basis-point arithmetic:
//
//	reserveFee = proceeds * InsuranceFeeBps / 10000
//	rewardBase = proceeds - reserveFee
//	reward     = max(0, rewardBase - minOut) * rewardBps / 10000
//	traderNet  = rewardBase - reward
//
// Truncation remainders stay with the trader. The split fails with
// ErrSlippageExceeded when proceeds or traderNet fall below minOut.
func ComputeSplit(proceeds, minOut *big.Int, rewardBps uint32) (Split, error) {
	if proceeds == nil || proceeds.Sign() <= 0 {
		return Split{}, fmt.Errorf("%w: proceeds must be positive", ErrInvalidDeltaDirection)
	}
	if minOut == nil || minOut.Sign() < 0 {
		return Split{}, fmt.Errorf("settlement: minimum output must be non-negative")
	}
	if rewardBps > BpsDenominator {
		return Split{}, fmt.Errorf("settlement: reward rate %d exceeds denominator", rewardBps)
	}
	p, overflow := uint256.FromBig(proceeds)
	if overflow {
		return Split{}, fmt.Errorf("settlement: proceeds overflow")
	}
	floor, overflow := uint256.FromBig(minOut)
	if overflow {
		return Split{}, fmt.Errorf("settlement: minimum output overflow")
	}
	if p.Lt(floor) {
		return Split{}, fmt.Errorf("%w: proceeds %s below minimum %s", ErrSlippageExceeded, proceeds, minOut)
	}

	denominator := uint256.NewInt(BpsDenominator)
	fee, overflow := new(uint256.Int).MulDivOverflow(p, uint256.NewInt(InsuranceFeeBps), denominator)
	if overflow {
		return Split{}, fmt.Errorf("settlement: reserve fee overflow")
	}
	rewardBase := new(uint256.Int).Sub(p, fee)

	surplus := new(uint256.Int)
	if rewardBase.Gt(floor) {
		surplus.Sub(rewardBase, floor)
	}
	reward, overflow := new(uint256.Int).MulDivOverflow(surplus, uint256.NewInt(uint64(rewardBps)), denominator)
	if overflow {
		return Split{}, fmt.Errorf("settlement: reward overflow")
	}
	traderNet := new(uint256.Int).Sub(rewardBase, reward)
	if traderNet.Lt(floor) {
		return Split{}, fmt.Errorf("%w: trader net %s below minimum %s", ErrSlippageExceeded, traderNet.Dec(), minOut)
	}
	return Split{
		ReserveFee: fee.ToBig(),
		Reward:     reward.ToBig(),
		TraderNet:  traderNet.ToBig(),
	}, nil
}
