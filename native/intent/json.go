package intent

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type venueJSON struct {
	Currency0   string `json:"currency0"`
	Currency1   string `json:"currency1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tickSpacing"`
	Hooks       string `json:"hooks"`
}

type permitJSON struct {
	Value     string `json:"value"`
	Deadline  uint64 `json:"deadline"`
	Signature string `json:"signature"`
}

type intentJSON struct {
	Trader       string      `json:"trader"`
	Venue        venueJSON   `json:"venue"`
	TokenIn      string      `json:"tokenIn"`
	TokenOut     string      `json:"tokenOut"`
	Amount       string      `json:"amount"`
	MinAmountOut string      `json:"minAmountOut"`
	Deadline     uint64      `json:"deadline"`
	Nonce        uint64      `json:"nonce"`
	ExactInput   bool        `json:"exactInput"`
	Signature    string      `json:"signature,omitempty"`
	Permit       *permitJSON `json:"permit,omitempty"`
}

// MarshalJSON encodes the venue with hex addresses.
func (k VenueKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(venueToJSON(k))
}

// UnmarshalJSON decodes a venue, rejecting malformed addresses.
func (k *VenueKey) UnmarshalJSON(data []byte) error {
	if k == nil {
		return fmt.Errorf("venue: nil receiver")
	}
	var payload venueJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	decoded, err := venueFromJSON(payload)
	if err != nil {
		return err
	}
	*k = decoded
	return nil
}

func venueToJSON(k VenueKey) venueJSON {
	return venueJSON{
		Currency0:   k.Currency0.Hex(),
		Currency1:   k.Currency1.Hex(),
		Fee:         k.Fee,
		TickSpacing: k.TickSpacing,
		Hooks:       k.Hooks.Hex(),
	}
}

func venueFromJSON(payload venueJSON) (VenueKey, error) {
	c0, err := parseAddress("venue.currency0", payload.Currency0)
	if err != nil {
		return VenueKey{}, err
	}
	c1, err := parseAddress("venue.currency1", payload.Currency1)
	if err != nil {
		return VenueKey{}, err
	}
	hooks := common.Address{}
	if strings.TrimSpace(payload.Hooks) != "" {
		if hooks, err = parseAddress("venue.hooks", payload.Hooks); err != nil {
			return VenueKey{}, err
		}
	}
	return VenueKey{Currency0: c0, Currency1: c1, Fee: payload.Fee, TickSpacing: payload.TickSpacing, Hooks: hooks}, nil
}

// MarshalJSON encodes the intent into the representation used by the CLI and
// HTTP clients. Amounts are decimal strings and byte fields are 0x-hex.
func (i Intent) MarshalJSON() ([]byte, error) {
	payload := intentJSON{
		Trader:       i.Trader.Hex(),
		Venue:        venueToJSON(i.Venue),
		TokenIn:      i.TokenIn.Hex(),
		TokenOut:     i.TokenOut.Hex(),
		Amount:       orZero(i.Amount).String(),
		MinAmountOut: orZero(i.MinAmountOut).String(),
		Deadline:     i.Deadline,
		Nonce:        i.Nonce,
		ExactInput:   i.ExactInput,
	}
	if len(i.Signature) > 0 {
		payload.Signature = hexutil.Encode(i.Signature)
	}
	if i.Permit != nil {
		payload.Permit = &permitJSON{
			Value:     orZero(i.Permit.Value).String(),
			Deadline:  i.Permit.Deadline,
			Signature: hexutil.Encode(i.Permit.Signature),
		}
	}
	return json.Marshal(payload)
}

// UnmarshalJSON decodes the client representation of an intent.
func (i *Intent) UnmarshalJSON(data []byte) error {
	if i == nil {
		return fmt.Errorf("intent: nil receiver")
	}
	var payload intentJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	trader, err := parseAddress("trader", payload.Trader)
	if err != nil {
		return err
	}
	venue, err := venueFromJSON(payload.Venue)
	if err != nil {
		return err
	}
	tokenIn, err := parseAddress("tokenIn", payload.TokenIn)
	if err != nil {
		return err
	}
	tokenOut, err := parseAddress("tokenOut", payload.TokenOut)
	if err != nil {
		return err
	}
	amount, err := parseAmount("amount", payload.Amount)
	if err != nil {
		return err
	}
	minOut, err := parseAmount("minAmountOut", payload.MinAmountOut)
	if err != nil {
		return err
	}
	decoded := Intent{
		Trader:       trader,
		Venue:        venue,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Amount:       amount,
		MinAmountOut: minOut,
		Deadline:     payload.Deadline,
		Nonce:        payload.Nonce,
		ExactInput:   payload.ExactInput,
	}
	if sig := strings.TrimSpace(payload.Signature); sig != "" {
		if decoded.Signature, err = hexutil.Decode(sig); err != nil {
			return fmt.Errorf("intent: signature: %w", err)
		}
	}
	if payload.Permit != nil {
		value, err := parseAmount("permit.value", payload.Permit.Value)
		if err != nil {
			return err
		}
		sig, err := hexutil.Decode(strings.TrimSpace(payload.Permit.Signature))
		if err != nil {
			return fmt.Errorf("intent: permit.signature: %w", err)
		}
		decoded.Permit = &Permit{Value: value, Deadline: payload.Permit.Deadline, Signature: sig}
	}
	*i = decoded
	return nil
}

func parseAddress(field, value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("intent: %s: invalid address %q", field, value)
	}
	return common.HexToAddress(trimmed), nil
}

func parseAmount(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("intent: %s required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("intent: %s: invalid amount %q", field, value)
	}
	return amount, nil
}
