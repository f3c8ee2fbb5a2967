package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"intentsettle/config"
	"intentsettle/core/events"
	"intentsettle/core/state"
	"intentsettle/crypto"
	"intentsettle/native/governance"
	"intentsettle/observability"
	"intentsettle/observability/logging"
	telemetry "intentsettle/observability/otel"
	"intentsettle/services/settled/archive"
	"intentsettle/services/settled/server"
	"intentsettle/storage"
)

func main() {
	configPath := flag.String("config", "./settled.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.SetupWithOptions(logging.Options{
		Service:    "settled",
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("settled exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "settled",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
		Attributes: map[string]string{
			"settle.chain_id":           fmt.Sprintf("%d", cfg.ChainID),
			"settle.verifying_contract": cfg.VerifyingContract,
		},
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
	}
	defer db.Close()
	manager := state.NewManager(db)

	stream := events.NewBroadcaster(cfg.Stream.HistoryLimit)
	emitters := events.MultiEmitter{stream, observability.Events()}
	var store *archive.Store
	if driver := strings.TrimSpace(cfg.Archive.Driver); driver != "" {
		gdb, err := archive.Open(driver, cfg.Archive.DSN)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		if err := archive.AutoMigrate(gdb); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
		store = archive.NewStore(gdb, logger)
		emitters = append(emitters, store)
	}

	core, err := assemble(ctx, cfg, manager, emitters, logger)
	if err != nil {
		return err
	}

	// config.Load has already folded the HostTokenEnv override in.
	hostToken := strings.TrimSpace(cfg.HostToken)
	if hostToken == "" {
		logger.Warn("no host token configured; hook endpoints will reject every request",
			"env", cfg.HostTokenEnv)
	} else {
		logger.Debug("host token configured", logging.MaskField("hostToken", hostToken))
	}

	srv, err := server.New(server.Config{
		Engine:     core.engine,
		Governance: core.governance,
		Vault:      core.vault,
		Reserve:    core.reserve,
		Ledger:     core.ledger,
		Stream:     stream,
		Archive:    store,
		HostToken:  hostToken,
		MaxSkew:    time.Duration(cfg.Auth.MaxSkewSeconds) * time.Second,
		RateLimit: server.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(srv, "settled"),
		ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeaderSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.Timeouts.ReadSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Timeouts.WriteSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Timeouts.IdleSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("settled listening",
			"address", cfg.ListenAddress,
			"chainId", cfg.ChainID,
			"verifyingContract", core.custody.Hex())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// genesisFromConfig builds the first-start governance record. Without a
// configured owner the operator keystore address takes the role.
func genesisFromConfig(cfg *config.Config) (governance.Genesis, error) {
	genesis := governance.Genesis{RewardBps: cfg.Governance.RewardBps}
	owner := strings.TrimSpace(cfg.Governance.Owner)
	if owner != "" {
		addr, err := crypto.ParseAddress(owner)
		if err != nil {
			return governance.Genesis{}, fmt.Errorf("governance owner: %w", err)
		}
		genesis.Owner = addr
	} else if path := strings.TrimSpace(cfg.OperatorKeystorePath); path != "" {
		addr, err := crypto.KeystoreAddress(path)
		if err != nil {
			return governance.Genesis{}, fmt.Errorf("operator keystore: %w", err)
		}
		genesis.Owner = addr
	} else {
		return governance.Genesis{}, errors.New("governance owner or operator keystore required")
	}
	for _, guardian := range cfg.Governance.Guardians {
		addr, err := crypto.ParseAddress(guardian)
		if err != nil {
			return governance.Genesis{}, fmt.Errorf("governance guardian: %w", err)
		}
		genesis.Guardians = append(genesis.Guardians, addr)
	}
	return genesis, nil
}
