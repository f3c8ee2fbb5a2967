package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnv layers environment overrides on top of the decoded file.
func (c *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv("SETTLED_ENV")); env != "" {
		c.Environment = env
	}
	if listen := strings.TrimSpace(os.Getenv("SETTLED_LISTEN")); listen != "" {
		c.ListenAddress = listen
	}
	if token := strings.TrimSpace(os.Getenv(c.HostTokenEnv)); token != "" {
		c.HostToken = token
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		c.Telemetry.Endpoint = endpoint
	}
	if insecure := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); insecure != "" {
		if parsed, err := strconv.ParseBool(insecure); err == nil {
			c.Telemetry.Insecure = parsed
		}
	}
	if headers := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); headers != "" {
		if c.Telemetry.Headers == nil {
			c.Telemetry.Headers = make(map[string]string)
		}
		for _, pair := range strings.Split(headers, ",") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			c.Telemetry.Headers[key] = strings.TrimSpace(value)
		}
	}
}
