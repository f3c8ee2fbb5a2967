package config

// Governance seeds the genesis governance record on first start. Later
// changes go through the governance endpoints, never through config.
type Governance struct {
	Owner     string   `toml:"Owner" yaml:"owner"`
	Guardians []string `toml:"Guardians" yaml:"guardians"`
	RewardBps uint32   `toml:"RewardBps" yaml:"reward_bps"`
}

// Balance seeds one token ledger balance on first start.
type Balance struct {
	Token  string `toml:"Token" yaml:"token"`
	Holder string `toml:"Holder" yaml:"holder"`
	Amount string `toml:"Amount" yaml:"amount"`
	// Approve also grants custody an allowance of Amount.
	Approve bool `toml:"Approve" yaml:"approve"`
}

// Bank configures the in-state token ledger. Genesis balances are applied
// once, together with the genesis governance record.
type Bank struct {
	Genesis []Balance `toml:"Genesis" yaml:"genesis"`
}

// Archive selects the event archive backend. An empty driver disables it.
type Archive struct {
	Driver string `toml:"Driver" yaml:"driver"`
	DSN    string `toml:"DSN" yaml:"dsn"`
}

// RateLimit bounds requests per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond" yaml:"requests_per_second"`
	Burst             int     `toml:"Burst" yaml:"burst"`
}

// Auth controls signed-request verification.
type Auth struct {
	MaxSkewSeconds int `toml:"MaxSkewSeconds" yaml:"max_skew_seconds"`
}

// Stream sizes the in-memory event history served to late subscribers.
type Stream struct {
	HistoryLimit int `toml:"HistoryLimit" yaml:"history_limit"`
}

// Logging mirrors observability/logging.Options.
type Logging struct {
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"max_size_mb"`
	MaxBackups int    `toml:"MaxBackups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"max_age_days"`
}

// Telemetry mirrors observability/otel.Config.
type Telemetry struct {
	Endpoint    string            `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool              `toml:"Insecure" yaml:"insecure"`
	Headers     map[string]string `toml:"Headers" yaml:"headers"`
	Metrics     bool              `toml:"Metrics" yaml:"metrics"`
	Traces      bool              `toml:"Traces" yaml:"traces"`
	SampleRatio float64           `toml:"SampleRatio" yaml:"sample_ratio"`
}

// Timeouts are HTTP server timeouts in seconds.
type Timeouts struct {
	ReadHeaderSeconds int `toml:"ReadHeaderSeconds" yaml:"read_header_seconds"`
	ReadSeconds       int `toml:"ReadSeconds" yaml:"read_seconds"`
	WriteSeconds      int `toml:"WriteSeconds" yaml:"write_seconds"`
	IdleSeconds       int `toml:"IdleSeconds" yaml:"idle_seconds"`
}
