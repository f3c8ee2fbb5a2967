package server

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"intentsettle/native/intent"
	"intentsettle/native/settlement"
)

const maxRequestBody = 1 << 20

type swapParamsJSON struct {
	ZeroForOne        bool   `json:"zeroForOne"`
	AmountSpecified   string `json:"amountSpecified"`
	SqrtPriceLimitX96 string `json:"sqrtPriceLimitX96,omitempty"`
}

type deltaJSON struct {
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

type hookRequest struct {
	Sender   string          `json:"sender"`
	Venue    intent.VenueKey `json:"venue"`
	Params   swapParamsJSON  `json:"params"`
	Delta    *deltaJSON      `json:"delta,omitempty"`
	HookData string          `json:"hookData"`
}

type receiptJSON struct {
	Digest         string `json:"digest"`
	Trader         string `json:"trader"`
	Executor       string `json:"executor"`
	Nonce          uint64 `json:"nonce"`
	AmountIn       string `json:"amountIn"`
	Proceeds       string `json:"proceeds"`
	ReserveFee     string `json:"reserveFee"`
	Reward         string `json:"reward"`
	TraderNet      string `json:"traderNet"`
	RewardBps      uint32 `json:"rewardBps"`
	PayoutDeferred bool   `json:"payoutDeferred"`
}

type hookResponse struct {
	Selector string       `json:"selector"`
	Receipt  *receiptJSON `json:"receipt,omitempty"`
}

func receiptToJSON(r *settlement.Receipt) *receiptJSON {
	if r == nil {
		return nil
	}
	return &receiptJSON{
		Digest:         r.Digest.Hex(),
		Trader:         r.Trader.Hex(),
		Executor:       r.Executor.Hex(),
		Nonce:          r.Nonce,
		AmountIn:       r.AmountIn.String(),
		Proceeds:       r.Proceeds.String(),
		ReserveFee:     r.Split.ReserveFee.String(),
		Reward:         r.Split.Reward.String(),
		TraderNet:      r.Split.TraderNet.String(),
		RewardBps:      r.RewardBps,
		PayoutDeferred: r.PayoutDeferred,
	}
}

func decodeBody(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func parseAddressField(field, value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%w: %s must be a hex address", errBadRequest, field)
	}
	return common.HexToAddress(trimmed), nil
}

// parseSignedInt parses a base-10 integer that may be negative.
func parseSignedInt(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %s required", errBadRequest, field)
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a base-10 integer", errBadRequest, field)
	}
	return parsed, nil
}

func parsePositiveInt(field, value string) (*big.Int, error) {
	parsed, err := parseSignedInt(field, value)
	if err != nil {
		return nil, err
	}
	if parsed.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s must be positive", errBadRequest, field)
	}
	return parsed, nil
}

func (p swapParamsJSON) decode() (settlement.SwapParams, error) {
	amount, err := parseSignedInt("params.amountSpecified", p.AmountSpecified)
	if err != nil {
		return settlement.SwapParams{}, err
	}
	params := settlement.SwapParams{ZeroForOne: p.ZeroForOne, AmountSpecified: amount}
	if strings.TrimSpace(p.SqrtPriceLimitX96) != "" {
		limit, err := parseSignedInt("params.sqrtPriceLimitX96", p.SqrtPriceLimitX96)
		if err != nil {
			return settlement.SwapParams{}, err
		}
		params.SqrtPriceLimitX96 = limit
	}
	return params, nil
}

func (d *deltaJSON) decode() (settlement.BalanceDelta, error) {
	if d == nil {
		return settlement.BalanceDelta{}, fmt.Errorf("%w: delta required", errBadRequest)
	}
	amount0, err := parseSignedInt("delta.amount0", d.Amount0)
	if err != nil {
		return settlement.BalanceDelta{}, err
	}
	amount1, err := parseSignedInt("delta.amount1", d.Amount1)
	if err != nil {
		return settlement.BalanceDelta{}, err
	}
	return settlement.BalanceDelta{Amount0: amount0, Amount1: amount1}, nil
}

func (h hookRequest) decode() (common.Address, settlement.SwapParams, []byte, error) {
	sender, err := parseAddressField("sender", h.Sender)
	if err != nil {
		return common.Address{}, settlement.SwapParams{}, nil, err
	}
	params, err := h.Params.decode()
	if err != nil {
		return common.Address{}, settlement.SwapParams{}, nil, err
	}
	data, err := hexutil.Decode(strings.TrimSpace(h.HookData))
	if err != nil {
		return common.Address{}, settlement.SwapParams{}, nil, fmt.Errorf("%w: hookData: %v", errBadRequest, err)
	}
	return sender, params, data, nil
}
