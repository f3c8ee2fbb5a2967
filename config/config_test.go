package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"intentsettle/crypto"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesTOML(t *testing.T) {
	path := writeConfig(t, "settled.toml", `ListenAddress = "127.0.0.1:9000"
DataDir = "./data"
ChainID = 8453
VerifyingContract = "0x9000000000000000000000000000000000000009"
SessionTTLSeconds = 30

[governance]
Owner = "0x00000000000000000000000000000000000000a1"
Guardians = ["0x00000000000000000000000000000000000000b2"]
RewardBps = 150

[[bank.Genesis]]
Token = "0x1000000000000000000000000000000000000001"
Holder = "0x00000000000000000000000000000000000000c3"
Amount = "10000"
Approve = true

[archive]
Driver = "sqlite"
DSN = "file::memory:"

[rate_limit]
RequestsPerSecond = 5.5
Burst = 11
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" || cfg.ChainID != 8453 {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Governance.RewardBps != 150 || len(cfg.Governance.Guardians) != 1 {
		t.Fatalf("unexpected governance section: %+v", cfg.Governance)
	}
	if cfg.RateLimit.RequestsPerSecond != 5.5 || cfg.RateLimit.Burst != 11 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if len(cfg.Bank.Genesis) != 1 || cfg.Bank.Genesis[0].Amount != "10000" || !cfg.Bank.Genesis[0].Approve {
		t.Fatalf("unexpected bank genesis: %+v", cfg.Bank)
	}
	if cfg.SessionTTLSeconds != 30 {
		t.Fatalf("expected session ttl 30, got %d", cfg.SessionTTLSeconds)
	}
	// Untouched sections fall back to defaults.
	if cfg.Auth.MaxSkewSeconds != 120 || cfg.Stream.HistoryLimit != 2048 {
		t.Fatalf("defaults not applied: auth=%+v stream=%+v", cfg.Auth, cfg.Stream)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeConfig(t, "settled.yaml", `listen: ":9100"
chain_id: 10
verifying_contract: "0x9000000000000000000000000000000000000009"
governance:
  owner: "0x00000000000000000000000000000000000000a1"
  reward_bps: 0
telemetry:
  traces: true
  sample_ratio: 0.25
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9100" || cfg.ChainID != 10 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.SampleRatio != 0.25 {
		t.Fatalf("unexpected telemetry: %+v", cfg.Telemetry)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging level %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	tomlPath := writeConfig(t, "settled.toml", "ListenAdress = \":1\"\n")
	if _, err := Load(tomlPath); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	yamlPath := writeConfig(t, "settled.yml", "lisen: \":1\"\n")
	if _, err := Load(yamlPath); err == nil {
		t.Fatalf("expected unknown yaml field to fail")
	}
}

func TestLoadCreatesDefaultWithOperatorKeystore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settled.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OperatorKeystorePath != filepath.Join(dir, "operator.keystore") {
		t.Fatalf("unexpected keystore path %q", cfg.OperatorKeystorePath)
	}
	addr, err := crypto.KeystoreAddress(cfg.OperatorKeystorePath)
	if err != nil {
		t.Fatalf("read keystore: %v", err)
	}
	if cfg.Governance.Owner != addr.Hex() {
		t.Fatalf("expected operator %s as owner, got %s", addr.Hex(), cfg.Governance.Owner)
	}

	// A second load reads the persisted file instead of minting a new key.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Governance.Owner != cfg.Governance.Owner {
		t.Fatalf("owner changed across reload")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SETTLED_ENV", "staging")
	t.Setenv("TEST_HOST_TOKEN", "s3cret")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "authorization=Bearer abc, x-tenant = settle ,broken")
	path := writeConfig(t, "settled.toml", `VerifyingContract = "0x9000000000000000000000000000000000000009"
HostTokenEnv = "TEST_HOST_TOKEN"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Fatalf("expected staging env, got %q", cfg.Environment)
	}
	if cfg.HostToken != "s3cret" {
		t.Fatalf("expected host token from env")
	}
	if cfg.Telemetry.Headers["authorization"] != "Bearer abc" || cfg.Telemetry.Headers["x-tenant"] != "settle" {
		t.Fatalf("unexpected headers %v", cfg.Telemetry.Headers)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad contract":   func(c *Config) { c.VerifyingContract = "0x123" },
		"bad owner":      func(c *Config) { c.Governance.Owner = "owner" },
		"bad guardian":   func(c *Config) { c.Governance.Guardians = []string{"nope"} },
		"rate too high":  func(c *Config) { c.Governance.RewardBps = MaxRewardBps + 1 },
		"unknown driver": func(c *Config) { c.Archive.Driver = "mysql"; c.Archive.DSN = "x" },
		"missing dsn":    func(c *Config) { c.Archive.Driver = "postgres" },
		"sample ratio":   func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
		"genesis amount": func(c *Config) {
			c.Bank.Genesis = []Balance{{Token: DefaultVerifyingContract, Holder: DefaultVerifyingContract, Amount: "-5"}}
		},
		"genesis holder": func(c *Config) {
			c.Bank.Genesis = []Balance{{Token: DefaultVerifyingContract, Holder: "bob", Amount: "5"}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
