package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"intentsettle/crypto"
	"intentsettle/native/bank"
	"intentsettle/native/intent"
)

const defaultChainID = 31337

type domainFlags struct {
	chainID           uint64
	verifyingContract string
}

func (d *domainFlags) register(fs *flag.FlagSet) {
	fs.Uint64Var(&d.chainID, "chain-id", defaultChainID, "chain id of the settlement domain")
	fs.StringVar(&d.verifyingContract, "verifying-contract", "", "verifying contract (custody) address")
}

func (d *domainFlags) domain() (intent.Domain, error) {
	contract, err := crypto.ParseAddress(d.verifyingContract)
	if err != nil {
		return intent.Domain{}, fmt.Errorf("--verifying-contract: %w", err)
	}
	return intent.NewDomain(new(big.Int).SetUint64(d.chainID), contract), nil
}

func readIntent(path string) (*intent.Intent, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--intent is required")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read intent: %w", err)
	}
	var in intent.Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &in, nil
}

func runDigest(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var domainOpts domainFlags
	domainOpts.register(fs)
	path := fs.String("intent", "", "intent JSON file, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	domain, err := domainOpts.domain()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	in, err := readIntent(*path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	digest, err := domain.Digest(in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, digest.Hex())
	return 0
}

type signedIntentOutput struct {
	Digest   string         `json:"digest"`
	HookData string         `json:"hookData"`
	Intent   *intent.Intent `json:"intent"`
}

func runSignIntent(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sign-intent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var domainOpts domainFlags
	domainOpts.register(fs)
	path := fs.String("intent", "", "intent JSON file, or - for stdin")
	keystore := fs.String("keystore", "", "trader keystore")
	permitValue := fs.String("permit-value", "", "attach a permit for this allowance")
	permitDeadline := fs.Uint64("permit-deadline", 0, "permit deadline (unix seconds); defaults to the intent deadline")
	permitNonce := fs.Uint64("permit-nonce", 0, "current permit nonce of the trader on the input token")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	domain, err := domainOpts.domain()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	in, err := readIntent(*path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := loadKey(*keystore)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if key.Address() != in.Trader {
		fmt.Fprintf(stderr, "Error: keystore address %s does not match intent trader %s\n", key.Address().Hex(), in.Trader.Hex())
		return 1
	}
	if strings.TrimSpace(*permitValue) != "" {
		value, ok := new(big.Int).SetString(strings.TrimSpace(*permitValue), 10)
		if !ok || value.Sign() <= 0 {
			fmt.Fprintln(stderr, "Error: --permit-value must be a positive base-10 integer")
			return 1
		}
		deadline := *permitDeadline
		if deadline == 0 {
			deadline = in.Deadline
		}
		signed, err := bank.SignPermit(domain.ChainID, bank.PermitRequest{
			Token:    in.TokenIn,
			Owner:    in.Trader,
			Spender:  domain.VerifyingContract,
			Value:    value,
			Deadline: deadline,
		}, *permitNonce, key.PrivateKey)
		if err != nil {
			fmt.Fprintf(stderr, "Error: sign permit: %v\n", err)
			return 1
		}
		in.Permit = &intent.Permit{Value: value, Deadline: deadline, Signature: signed.Signature}
	}
	sig, err := domain.Sign(in, key.PrivateKey)
	if err != nil {
		fmt.Fprintf(stderr, "Error: sign intent: %v\n", err)
		return 1
	}
	in.Signature = sig
	digest, err := domain.Digest(in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	payload, err := intent.EncodePayload(in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: encode payload: %v\n", err)
		return 1
	}
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(signedIntentOutput{Digest: digest.Hex(), HookData: hexutil.Encode(payload), Intent: in}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
