// Package thinking implements the signature cache and cross-model
// recovery policy described in spec.md section 4.2: binding opaque
// reasoning signatures to the model family that produced them, and
// repairing a transcript when a conversation crosses a model-family
// boundary.
package thinking

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/brightloop/antigravity-gateway/internal/message"
)

// SkipSentinel is the upstream's documented "skip validation" marker
// attached to a functionCall's thoughtSignature when the real signature
// cannot be proven to belong to the target family.
const SkipSentinel = "skip_thought_signature_validator"

// DefaultCapacity is the cache's bounded size (spec.md section 4.2).
const DefaultCapacity = 4096

type entry struct {
	family     message.Family
	insertedAt time.Time
}

// cacheKey scopes a signature to the conversation it was seen in, so
// entries from one conversation cannot resurrect a signature into
// another's history (spec.md section 4.2).
type cacheKey struct {
	sessionID string
	sigDigest string
}

// Cache is the process-wide, bounded, LRU-backed signature cache.
type Cache struct {
	lru *lru.Cache[cacheKey, entry]
}

// New constructs a Cache with the given capacity. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[cacheKey, entry](capacity)
	if err != nil {
		// lru.New only errors on a non-positive size, which is excluded above.
		panic(err)
	}
	return &Cache{lru: c}
}

func digest(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:])
}

// Remember inserts or refreshes the family binding for a signature within
// a conversation. A blank signature or session id is a no-op.
func (c *Cache) Remember(sessionID, signature string, family message.Family) {
	if sessionID == "" || signature == "" {
		return
	}
	key := cacheKey{sessionID: sessionID, sigDigest: digest(signature)}
	c.lru.Add(key, entry{family: family, insertedAt: time.Now()})
}

// Lookup returns the family bound to a signature within a conversation, or
// "" if unknown.
func (c *Cache) Lookup(sessionID, signature string) message.Family {
	if sessionID == "" || signature == "" {
		return ""
	}
	key := cacheKey{sessionID: sessionID, sigDigest: digest(signature)}
	e, ok := c.lru.Get(key)
	if !ok {
		return ""
	}
	return e.family
}

// Len reports the number of live entries, for GET /health and
// GET /account-limits style diagnostics.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// HasFamily reports whether any live signature for the given conversation
// is bound to family. Used to detect a conversation whose history crosses
// a model-family boundary (spec.md section 4.2).
func (c *Cache) HasFamily(sessionID string, family message.Family) bool {
	if sessionID == "" {
		return false
	}
	for _, key := range c.lru.Keys() {
		if key.sessionID != sessionID {
			continue
		}
		e, ok := c.lru.Peek(key)
		if ok && e.family == family {
			return true
		}
	}
	return false
}
