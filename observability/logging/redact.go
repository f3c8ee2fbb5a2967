package logging

import (
	"encoding/hex"
	"log/slog"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RedactedValue replaces secrets that must not reach the log sink.
const RedactedValue = "[REDACTED]"

// Settlement identifiers are public on-chain data and stay readable.
var publicKeys = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"trader":    {},
	"caller":    {},
	"asset":     {},
	"digest":    {},
	"nonce":     {},
	"venue":     {},
	"route":     {},
}

// IsPublic reports whether key is logged verbatim.
func IsPublic(key string) bool {
	_, ok := publicKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Fingerprint returns a redacted marker carrying the first four bytes of the
// value's keccak hash, so two lines about the same signature or token can be
// matched without exposing it.
func Fingerprint(value string) string {
	sum := ethcrypto.Keccak256([]byte(value))
	return strings.TrimSuffix(RedactedValue, "]") + ":" + hex.EncodeToString(sum[:4]) + "]"
}

// MaskField logs value under key, fingerprinted unless key is public. Empty
// values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsPublic(key) {
		return slog.String(key, value)
	}
	return slog.String(key, Fingerprint(value))
}
