package config

import (
	"fmt"
	"math/big"
	"strings"

	"intentsettle/crypto"
)

// MaxRewardBps mirrors the governance ceiling so a bad genesis fails at load.
const MaxRewardBps = 1_000

// MaxGuardians mirrors the governance guardian cap.
const MaxGuardians = 32

// ParseAmount parses a positive base-10 token amount.
func ParseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%q is not a positive integer", value)
	}
	return amount, nil
}

// Validate enforces structural bounds. Addresses must parse and the genesis
// rate must sit under the governance ceiling.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("chain_id must be positive")
	}
	if _, err := crypto.ParseAddress(c.VerifyingContract); err != nil {
		return fmt.Errorf("verifying_contract: %w", err)
	}
	if strings.TrimSpace(c.Governance.Owner) != "" {
		if _, err := crypto.ParseAddress(c.Governance.Owner); err != nil {
			return fmt.Errorf("governance.owner: %w", err)
		}
	}
	if len(c.Governance.Guardians) > MaxGuardians {
		return fmt.Errorf("governance.guardians: at most %d allowed", MaxGuardians)
	}
	for _, guardian := range c.Governance.Guardians {
		if _, err := crypto.ParseAddress(guardian); err != nil {
			return fmt.Errorf("governance.guardians: %w", err)
		}
	}
	if c.Governance.RewardBps > MaxRewardBps {
		return fmt.Errorf("governance.reward_bps %d exceeds %d", c.Governance.RewardBps, MaxRewardBps)
	}
	for i, balance := range c.Bank.Genesis {
		if _, err := crypto.ParseAddress(balance.Token); err != nil {
			return fmt.Errorf("bank.genesis[%d].token: %w", i, err)
		}
		if _, err := crypto.ParseAddress(balance.Holder); err != nil {
			return fmt.Errorf("bank.genesis[%d].holder: %w", i, err)
		}
		if _, err := ParseAmount(balance.Amount); err != nil {
			return fmt.Errorf("bank.genesis[%d].amount: %w", i, err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Archive.Driver)) {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Archive.DSN) == "" {
			return fmt.Errorf("archive.dsn required for driver %s", c.Archive.Driver)
		}
	default:
		return fmt.Errorf("archive.driver %q not supported", c.Archive.Driver)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be positive")
	}
	return nil
}
