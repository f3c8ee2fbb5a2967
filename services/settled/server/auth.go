package server

import (
	"bytes"
	"container/list"
	"context"
	"crypto/ecdsa"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	jwt "github.com/golang-jwt/jwt/v5"

	"intentsettle/native/intent"
	"intentsettle/observability"
	"intentsettle/observability/logging"
)

const (
	// HeaderCaller carries the claimed caller address.
	HeaderCaller = "X-Caller"
	// HeaderTimestamp is the unix timestamp (seconds) used when signing the request.
	HeaderTimestamp = "X-Timestamp"
	// HeaderSignature carries the hex personal-sign signature over the request.
	HeaderSignature = "X-Signature"
	// MaxBodyForSignature is the maximum body size we will hash when authenticating.
	MaxBodyForSignature int = 1 << 20 // 1 MiB
	// HostTokenAudience is the audience minted host tokens must carry.
	HostTokenAudience = "settled-hooks"

	defaultTimestampSkew = 2 * time.Minute
	defaultReplayCap     = 16384
)

var errUnauthenticated = errors.New("unauthenticated")

type callerKey struct{}

// callerFrom returns the authenticated caller stored by requireSignature.
func callerFrom(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	return caller, ok
}

// RequestDigest is the personal-sign digest over the canonical request:
// METHOD, path with sorted query, timestamp and keccak of the body, joined by
// newlines.
func RequestDigest(method, path, timestamp string, body []byte) []byte {
	payload := strings.Join([]string{
		strings.ToUpper(method),
		path,
		timestamp,
		ethcrypto.Keccak256Hash(body).Hex(),
	}, "\n")
	return accounts.TextHash([]byte(payload))
}

// SignRequest produces the X-Signature value for a request.
func SignRequest(key *ecdsa.PrivateKey, method, path, timestamp string, body []byte) (string, error) {
	sig, err := intent.SignHash(common.BytesToHash(RequestDigest(method, path, timestamp, body)), key)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// CanonicalRequestPath normalises URL paths and query ordering for signing.
func CanonicalRequestPath(r *http.Request) string {
	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	if r.URL.RawQuery != "" {
		parts := strings.Split(r.URL.RawQuery, "&")
		sort.Strings(parts)
		path += "?" + strings.Join(parts, "&")
	}
	return path
}

// signatureAuth verifies wallet-signed requests. Each signature is accepted
// once within the skew window.
type signatureAuth struct {
	skew   time.Duration
	nowFn  func() time.Time
	replay *replayCache
}

func newSignatureAuth(skew time.Duration, nowFn func() time.Time) *signatureAuth {
	if skew <= 0 {
		skew = defaultTimestampSkew
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	// Entries only need to outlive the window on either side of now.
	return &signatureAuth{skew: skew, nowFn: nowFn, replay: newReplayCache(2*skew, defaultReplayCap)}
}

func (a *signatureAuth) authenticate(r *http.Request, body []byte) (common.Address, error) {
	if len(body) > MaxBodyForSignature {
		return common.Address{}, fmt.Errorf("%w: request body exceeds %d bytes", errUnauthenticated, MaxBodyForSignature)
	}
	callerHeader := strings.TrimSpace(r.Header.Get(HeaderCaller))
	if !common.IsHexAddress(callerHeader) {
		return common.Address{}, fmt.Errorf("%w: missing or invalid %s header", errUnauthenticated, HeaderCaller)
	}
	caller := common.HexToAddress(callerHeader)
	timestamp := strings.TrimSpace(r.Header.Get(HeaderTimestamp))
	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: invalid %s header", errUnauthenticated, HeaderTimestamp)
	}
	now := a.nowFn().UTC()
	skew := now.Sub(time.Unix(secs, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.skew {
		return common.Address{}, fmt.Errorf("%w: timestamp outside allowed skew of %s", errUnauthenticated, a.skew)
	}
	sig, err := hexutil.Decode(strings.TrimSpace(r.Header.Get(HeaderSignature)))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: invalid %s header", errUnauthenticated, HeaderSignature)
	}
	digest := RequestDigest(r.Method, CanonicalRequestPath(r), timestamp, body)
	signer, err := intent.RecoverSigner(common.BytesToHash(digest), sig)
	if err != nil || signer != caller {
		return common.Address{}, fmt.Errorf("%w: signature does not match caller", errUnauthenticated)
	}
	if a.replay.Seen(ethcrypto.Keccak256Hash(sig).Hex(), now) {
		observability.ModuleMetrics().RecordThrottle("settled", "replayed_signature")
		return common.Address{}, fmt.Errorf("%w: signature already used", errUnauthenticated)
	}
	return caller, nil
}

func (s *Server) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, int64(MaxBodyForSignature)+1))
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: read body: %v", errBadRequest, err))
			return
		}
		_ = r.Body.Close()
		caller, err := s.sigAuth.authenticate(r, body)
		if err != nil {
			s.logger.Debug("signed request rejected",
				"route", r.URL.Path,
				"caller", r.Header.Get(HeaderCaller),
				logging.MaskField("signature", r.Header.Get(HeaderSignature)),
				"error", err)
			s.writeError(w, r, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireHost admits the AMM host by bearer token: either the configured
// secret itself or a short-lived HS256 token minted from it. Without a
// configured secret the hook endpoints reject every request.
func (s *Server) requireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if s.hostToken == "" || !ok {
			s.writeError(w, r, fmt.Errorf("%w: host token required", errUnauthenticated))
			return
		}
		if err := s.checkHostToken(strings.TrimSpace(token)); err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkHostToken(token string) error {
	if strings.Count(token, ".") != 2 {
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.hostToken)) != 1 {
			return fmt.Errorf("%w: host token required", errUnauthenticated)
		}
		return nil
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.hostToken), nil
	},
		jwt.WithAudience(HostTokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.sigAuth.skew),
		jwt.WithTimeFunc(s.sigAuth.nowFn),
	)
	if err != nil || !parsed.Valid {
		observability.ModuleMetrics().RecordThrottle("settled", "invalid_host_token")
		return fmt.Errorf("%w: invalid host token", errUnauthenticated)
	}
	return nil
}

// MintHostToken issues an HS256 host token valid for ttl from now.
func MintHostToken(secret string, now time.Time, ttl time.Duration) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("server: host secret required")
	}
	if ttl <= 0 {
		return "", errors.New("server: host token ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Subject:   "amm-host",
		Audience:  jwt.ClaimStrings{HostTokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// replayCache remembers keys for ttl, evicting the oldest entries once
// capacity is reached.
type replayCache struct {
	ttl      time.Duration
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

type replayEntry struct {
	key string
	ts  time.Time
}

func newReplayCache(ttl time.Duration, capacity int) *replayCache {
	if capacity <= 0 {
		capacity = defaultReplayCap
	}
	return &replayCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Seen reports whether key was already observed within the TTL and records it
// otherwise.
func (c *replayCache) Seen(key string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpired(now.Add(-c.ttl))
	if _, exists := c.entries[key]; exists {
		return true
	}
	for c.order.Len() >= c.capacity {
		c.evictFront()
	}
	c.entries[key] = c.order.PushBack(replayEntry{key: key, ts: now})
	return false
}

func (c *replayCache) evictExpired(cutoff time.Time) {
	for {
		front := c.order.Front()
		if front == nil {
			return
		}
		if !front.Value.(replayEntry).ts.Before(cutoff) {
			return
		}
		c.evictFront()
	}
}

func (c *replayCache) evictFront() {
	front := c.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(replayEntry)
	c.order.Remove(front)
	delete(c.entries, entry.key)
}
