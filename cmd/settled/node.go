package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"intentsettle/config"
	"intentsettle/core/events"
	"intentsettle/core/state"
	"intentsettle/crypto"
	"intentsettle/native/bank"
	"intentsettle/native/governance"
	"intentsettle/native/intent"
	"intentsettle/native/reserve"
	"intentsettle/native/settlement"
	"intentsettle/native/vault"
)

// node is the settlement core as the daemon runs it.
type node struct {
	custody    common.Address
	governance *governance.Engine
	ledger     *bank.Ledger
	engine     *settlement.Engine
	vault      *vault.Vault
	reserve    *reserve.Account
}

// assemble wires the core over manager. Genesis governance and ledger
// balances are written only on first start.
func assemble(ctx context.Context, cfg *config.Config, manager *state.Manager, emitter events.Emitter, logger *slog.Logger) (*node, error) {
	gov := governance.NewEngine(manager)
	gov.SetEmitter(emitter)
	genesis, err := genesisFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	created, err := gov.Init(genesis)
	if err != nil {
		return nil, fmt.Errorf("init governance: %w", err)
	}

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	custody := common.HexToAddress(cfg.VerifyingContract)
	ledger := bank.NewLedger(manager, chainID, custody)
	ledger.SetEmitter(emitter)

	if created {
		if err := seedLedger(ctx, ledger, cfg.Bank.Genesis); err != nil {
			return nil, err
		}
		logger.Info("genesis written",
			"owner", genesis.Owner.Hex(),
			"guardians", len(genesis.Guardians),
			"rewardBps", genesis.RewardBps,
			"balances", len(cfg.Bank.Genesis))
	}

	verifier := intent.NewVerifier(intent.NewDomain(chainID, custody))
	engine := settlement.NewEngine(manager, verifier, ledger)
	engine.SetEmitter(emitter)
	engine.SetLogger(logger)
	engine.SetSessionTTL(time.Duration(cfg.SessionTTLSeconds) * time.Second)

	rewards := vault.New(manager, ledger)
	rewards.SetEmitter(emitter)
	rewards.SetLogger(logger)

	reserves := reserve.New(manager, ledger)
	reserves.SetEmitter(emitter)
	reserves.SetLogger(logger)

	return &node{
		custody:    custody,
		governance: gov,
		ledger:     ledger,
		engine:     engine,
		vault:      rewards,
		reserve:    reserves,
	}, nil
}

func seedLedger(ctx context.Context, ledger *bank.Ledger, balances []config.Balance) error {
	for i, balance := range balances {
		token, err := crypto.ParseAddress(balance.Token)
		if err != nil {
			return fmt.Errorf("bank genesis %d: %w", i, err)
		}
		holder, err := crypto.ParseAddress(balance.Holder)
		if err != nil {
			return fmt.Errorf("bank genesis %d: %w", i, err)
		}
		amount, err := config.ParseAmount(balance.Amount)
		if err != nil {
			return fmt.Errorf("bank genesis %d: %w", i, err)
		}
		if err := ledger.Mint(ctx, token, holder, amount); err != nil {
			return fmt.Errorf("bank genesis %d: %w", i, err)
		}
		if balance.Approve {
			if err := ledger.Approve(ctx, token, holder, ledger.Custody(), amount); err != nil {
				return fmt.Errorf("bank genesis %d: %w", i, err)
			}
		}
	}
	return nil
}
