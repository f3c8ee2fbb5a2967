package intent

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	// DomainName and DomainVersion pin the typed-data domain. Bumping the
	// version invalidates every previously signed intent.
	DomainName    = "IntentSettlement"
	DomainVersion = "1"

	primaryType = "Intent"
)

var intentTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"VenueKey": {
		{Name: "currency0", Type: "address"},
		{Name: "currency1", Type: "address"},
		{Name: "fee", Type: "uint24"},
		{Name: "tickSpacing", Type: "int24"},
		{Name: "hooks", Type: "address"},
	},
	"Intent": {
		{Name: "trader", Type: "address"},
		{Name: "venue", Type: "VenueKey"},
		{Name: "tokenIn", Type: "address"},
		{Name: "tokenOut", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "minAmountOut", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "exactInput", Type: "bool"},
	},
}

// Domain binds intent signatures to one deployment: a chain and the
// settlement contract (custody) address.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewDomain returns the versioned settlement domain for the deployment.
func NewDomain(chainID *big.Int, verifyingContract common.Address) Domain {
	id := new(big.Int)
	if chainID != nil {
		id.Set(chainID)
	}
	return Domain{
		Name:              DomainName,
		Version:           DomainVersion,
		ChainID:           id,
		VerifyingContract: verifyingContract,
	}
}

// TypedDataDomain renders the domain in the form expected by the EIP-712
// encoder.
func (d Domain) TypedDataDomain() apitypes.TypedDataDomain {
	chainID := new(big.Int)
	if d.ChainID != nil {
		chainID.Set(d.ChainID)
	}
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(chainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

// Separator returns the EIP-712 domain separator.
func (d Domain) Separator() (common.Hash, error) {
	typed := apitypes.TypedData{Types: intentTypes, Domain: d.TypedDataDomain()}
	hash, err := typed.HashStruct("EIP712Domain", typed.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("intent: domain separator: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// TypedData assembles the full EIP-712 document for the intent, suitable for
// wallets that sign typed data directly.
func (d Domain) TypedData(i *Intent) (apitypes.TypedData, error) {
	if i == nil {
		return apitypes.TypedData{}, fmt.Errorf("%w: nil intent", ErrInvalidIntent)
	}
	if i.Amount == nil || i.MinAmountOut == nil {
		return apitypes.TypedData{}, fmt.Errorf("%w: amounts required", ErrInvalidIntent)
	}
	return apitypes.TypedData{
		Types:       intentTypes,
		PrimaryType: primaryType,
		Domain:      d.TypedDataDomain(),
		Message: apitypes.TypedDataMessage{
			"trader":       i.Trader.Hex(),
			"venue":        i.Venue.typedMessage(),
			"tokenIn":      i.TokenIn.Hex(),
			"tokenOut":     i.TokenOut.Hex(),
			"amount":       new(big.Int).Set(i.Amount),
			"minAmountOut": new(big.Int).Set(i.MinAmountOut),
			"deadline":     new(big.Int).SetUint64(i.Deadline),
			"nonce":        new(big.Int).SetUint64(i.Nonce),
			"exactInput":   i.ExactInput,
		},
	}, nil
}

// Digest computes the canonical digest covering every intent field except
// the signatures.
func (d Domain) Digest(i *Intent) (common.Hash, error) {
	typed, err := d.TypedData(i)
	if err != nil {
		return common.Hash{}, err
	}
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("intent: digest: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// Sign produces the trader signature for the intent in wallet form (v is 27
// or 28). The intent itself is not modified.
func (d Domain) Sign(i *Intent, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("intent: signing key required")
	}
	digest, err := d.Digest(i)
	if err != nil {
		return nil, err
	}
	return SignHash(digest, key)
}

// SignHash signs a 32-byte digest and returns a 65-byte signature with v
// shifted to 27/28.
func SignHash(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// RecoverSigner recovers the address that produced sig over digest. Both the
// 0/1 and 27/28 recovery id conventions are accepted. High-s signatures are
// rejected to rule out malleated copies.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, ErrBadSignature
	}
	normalized := append([]byte(nil), sig...)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !ethcrypto.ValidateSignatureValues(normalized[64], r, s, true) {
		return common.Address{}, ErrBadSignature
	}
	pubKey, err := ethcrypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, ErrBadSignature
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}
