package transportcrypto

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/packfwd/relay/lib/clock"
)

const (
	minNonceLen = 8
	maxNonceLen = 256
)

var (
	errMissingTimestamp = errors.New("transportcrypto: metadata is missing a numeric timestamp")
	errMissingNonce     = errors.New("transportcrypto: metadata is missing a nonce")
	errNonceLength      = fmt.Errorf("transportcrypto: nonce must be between %d and %d bytes", minNonceLen, maxNonceLen)
	errTimestampExpired = errors.New("transportcrypto: timestamp is outside the replay window")
	errNonceReplayed    = errors.New("transportcrypto: nonce has already been used")
)

// ReplayCache enforces first-seen-wins nonce uniqueness within a
// sliding TTL window, alongside absolute timestamp bounds. It is safe
// for concurrent use.
type ReplayCache struct {
	mu    sync.Mutex
	seen  map[string]time.Time // nonce -> expiry
	ttl   time.Duration
	skew  time.Duration
	clock clock.Clock
}

// NewReplayCache builds a cache that accepts timestamps within [now-ttl,
// now+skew] and remembers nonces for ttl past their first sighting.
func NewReplayCache(ttl, skew time.Duration, clk clock.Clock) *ReplayCache {
	return &ReplayCache{
		seen:  make(map[string]time.Time),
		ttl:   ttl,
		skew:  skew,
		clock: clk,
	}
}

// Validate checks timestampMs and nonce against the replay window and,
// if both are acceptable, records the nonce as seen. It returns an
// error on the first violation: malformed nonce, an out-of-window
// timestamp, or a nonce reused within the TTL.
func (c *ReplayCache) Validate(nonce string, timestampMs int64) error {
	if len(nonce) < minNonceLen || len(nonce) > maxNonceLen {
		return errNonceLength
	}

	now := c.clock.Now()
	claimed := time.UnixMilli(timestampMs)
	if claimed.Before(now.Add(-c.ttl)) {
		return errTimestampExpired
	}
	if claimed.After(now.Add(c.skew)) {
		return errTimestampExpired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, ok := c.seen[nonce]; ok && now.Before(expiry) {
		return errNonceReplayed
	}
	c.seen[nonce] = now.Add(c.ttl)
	return nil
}

// Sweep removes nonces whose TTL has elapsed. Safe to call concurrently
// with Validate.
func (c *ReplayCache) Sweep() {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for nonce, expiry := range c.seen {
		if !now.Before(expiry) {
			delete(c.seen, nonce)
		}
	}
}

// Run sweeps the cache on interval until ctx is done. Intended to run
// in its own goroutine for the life of the process.
func (c *ReplayCache) Run(ctx context.Context, interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// extractReplayFields pulls the timestamp and nonce out of decrypted
// metadata and removes them, since they are transport plumbing rather
// than application data.
func extractReplayFields(metadata map[string]any) (timestampMs int64, nonce string, err error) {
	rawTimestamp, ok := metadata["timestamp"]
	if !ok {
		return 0, "", errMissingTimestamp
	}
	timestampFloat, ok := rawTimestamp.(float64)
	if !ok {
		return 0, "", errMissingTimestamp
	}

	rawNonce, ok := metadata["nonce"]
	if !ok {
		return 0, "", errMissingNonce
	}
	nonce, ok = rawNonce.(string)
	if !ok {
		return 0, "", errMissingNonce
	}

	delete(metadata, "timestamp")
	delete(metadata, "nonce")
	return int64(timestampFloat), nonce, nil
}
