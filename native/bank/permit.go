package bank

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"intentsettle/native/intent"
)

const (
	permitDomainName    = "IntentSettlement Token"
	permitDomainVersion = "1"
)

var permitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Permit": {
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// PermitDigest returns the typed-data digest an owner signs to grant spender
// an allowance of value over token. The token address is the verifying
// contract so a permit cannot be replayed against another asset.
func PermitDigest(chainID *big.Int, req PermitRequest, nonce uint64) (common.Hash, error) {
	if req.Value == nil || req.Value.Sign() < 0 {
		return common.Hash{}, ErrInvalidAmount
	}
	id := new(big.Int)
	if chainID != nil {
		id.Set(chainID)
	}
	typed := apitypes.TypedData{
		Types:       permitTypes,
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              permitDomainName,
			Version:           permitDomainVersion,
			ChainId:           (*math.HexOrDecimal256)(id),
			VerifyingContract: req.Token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    req.Owner.Hex(),
			"spender":  req.Spender.Hex(),
			"value":    new(big.Int).Set(req.Value),
			"nonce":    new(big.Int).SetUint64(nonce),
			"deadline": new(big.Int).SetUint64(req.Deadline),
		},
	}
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("bank: permit digest: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// SignPermit signs req with key for the supplied owner nonce and returns the
// request with its signature populated.
func SignPermit(chainID *big.Int, req PermitRequest, nonce uint64, key *ecdsa.PrivateKey) (PermitRequest, error) {
	digest, err := PermitDigest(chainID, req, nonce)
	if err != nil {
		return PermitRequest{}, err
	}
	sig, err := intent.SignHash(digest, key)
	if err != nil {
		return PermitRequest{}, err
	}
	req.Signature = sig
	return req, nil
}
