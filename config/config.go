package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"intentsettle/crypto"
)

// Config is the settlement daemon configuration.
type Config struct {
	ListenAddress        string `toml:"ListenAddress" yaml:"listen"`
	Environment          string `toml:"Environment" yaml:"environment"`
	DataDir              string `toml:"DataDir" yaml:"data_dir"`
	ChainID              uint64 `toml:"ChainID" yaml:"chain_id"`
	VerifyingContract    string `toml:"VerifyingContract" yaml:"verifying_contract"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath" yaml:"operator_keystore"`
	// HostToken authenticates the AMM host on the hook endpoints. Prefer
	// HostTokenEnv so the secret stays out of the file.
	HostToken    string `toml:"HostToken" yaml:"host_token"`
	HostTokenEnv string `toml:"HostTokenEnv" yaml:"host_token_env"`
	// SessionTTLSeconds bounds how long an admitted hook session stays open.
	SessionTTLSeconds int `toml:"SessionTTLSeconds" yaml:"session_ttl_seconds"`

	Governance Governance `toml:"governance" yaml:"governance"`
	Bank       Bank       `toml:"bank" yaml:"bank"`
	Archive    Archive    `toml:"archive" yaml:"archive"`
	RateLimit  RateLimit  `toml:"rate_limit" yaml:"rate_limit"`
	Auth       Auth       `toml:"auth" yaml:"auth"`
	Stream     Stream     `toml:"stream" yaml:"stream"`
	Logging    Logging    `toml:"logging" yaml:"logging"`
	Telemetry  Telemetry  `toml:"telemetry" yaml:"telemetry"`
	Timeouts   Timeouts   `toml:"timeouts" yaml:"timeouts"`
}

const (
	DefaultListenAddress     = ":8480"
	DefaultDataDir           = "./settle-data"
	DefaultChainID           = 31337
	DefaultVerifyingContract = "0x000000000000000000000000000000000000dEaD"
	DefaultRewardBps         = 200
	DefaultHostTokenEnv      = "SETTLED_HOST_TOKEN"
)

// Default returns a configuration populated with every default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads the configuration from the given path. Files ending in .yaml or
// .yml are decoded as YAML, everything else as TOML. A missing TOML file is
// created with defaults and a fresh operator keystore whose address becomes
// the genesis owner. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path required")
	}
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if isYAML(path) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		created, err := createDefault(path)
		if err != nil {
			return nil, err
		}
		cfg = created
	} else {
		decoded, err := decode(path)
		if err != nil {
			return nil, err
		}
		cfg = decoded
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func decode(path string) (*Config, error) {
	cfg := &Config{}
	if isYAML(path) {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0].String())
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	if c.ChainID == 0 {
		c.ChainID = DefaultChainID
	}
	if strings.TrimSpace(c.VerifyingContract) == "" {
		c.VerifyingContract = DefaultVerifyingContract
	}
	if strings.TrimSpace(c.HostTokenEnv) == "" {
		c.HostTokenEnv = DefaultHostTokenEnv
	}
	if c.SessionTTLSeconds <= 0 {
		c.SessionTTLSeconds = 120
	}
	if c.Governance.Guardians == nil {
		c.Governance.Guardians = []string{}
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 40
	}
	if c.Auth.MaxSkewSeconds <= 0 {
		c.Auth.MaxSkewSeconds = 120
	}
	if c.Stream.HistoryLimit <= 0 {
		c.Stream.HistoryLimit = 2048
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Timeouts.ReadHeaderSeconds <= 0 {
		c.Timeouts.ReadHeaderSeconds = 5
	}
	if c.Timeouts.ReadSeconds <= 0 {
		c.Timeouts.ReadSeconds = 15
	}
	if c.Timeouts.WriteSeconds <= 0 {
		c.Timeouts.WriteSeconds = 15
	}
	if c.Timeouts.IdleSeconds <= 0 {
		c.Timeouts.IdleSeconds = 60
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.OperatorKeystorePath = keystorePath
	cfg.Governance = Governance{
		Owner:     key.Address().Hex(),
		Guardians: []string{},
		RewardBps: DefaultRewardBps,
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
