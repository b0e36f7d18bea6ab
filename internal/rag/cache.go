package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/vzdr/docuquery-rag/internal/cache"
	"github.com/vzdr/docuquery-rag/internal/vector"
)

// ModelSettings is the subset of the LLM call's settings that participates
// in the response cache key (§4.G).
type ModelSettings struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// ResponseEntry is the value stored per cached answer.
type ResponseEntry struct {
	Answer       string                  `json:"answer"`
	Sources      []vector.RetrievedChunk `json:"sources"`
	Model        string                  `json:"model"`
	TokensUsed   int                     `json:"tokens_used"`
	FinishReason string                  `json:"finish_reason,omitempty"`
}

// ResponseCache is the §4.G Response Cache: an LRU-with-TTL keyed by a
// deterministic fingerprint of (question, context ids, model settings).
// Built on the shared internal/cache engine also used by the Embedding
// Client's cache, per SPEC_FULL.md's "one generic LRU+TTL engine" decision.
type ResponseCache struct {
	cache      *cache.Cache[ResponseEntry]
	defaultTTL time.Duration
}

// NewResponseCache constructs a response cache from the §4.G configuration.
func NewResponseCache(cfg ResponseCacheConfig) *ResponseCache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultResponseCacheConfig().MaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultResponseCacheConfig().DefaultTTL
	}
	return &ResponseCache{
		cache:      cache.New[ResponseEntry](cfg.MaxSize, cfg.DefaultTTL),
		defaultTTL: cfg.DefaultTTL,
	}
}

// keyMaterial is the canonical JSON shape hashed into a cache key; field
// order is fixed by the struct tags so two equal (q,c,s) triples always
// serialize identically.
type keyMaterial struct {
	Q string        `json:"q"`
	C string        `json:"c"`
	S ModelSettings `json:"s"`
}

// GenerateCacheKey derives the deterministic §4.G cache key: SHA-256 of the
// canonical JSON form of {q: lowercase_trim(question), c: context
// identifier, s: model settings}. The context identifier is the
// pipe-joined context files when present, else the raw inline context
// string, else empty — per §4.G's "context_identifier" rule.
func GenerateCacheKey(question string, contextFiles []string, inlineContext string, settings ModelSettings) string {
	q := strings.ToLower(strings.TrimSpace(question))

	var c string
	switch {
	case len(contextFiles) > 0:
		c = strings.Join(contextFiles, "|")
	case inlineContext != "":
		c = inlineContext
	default:
		c = ""
	}

	material := keyMaterial{Q: q, C: c, S: settings}
	canonical, _ := json.Marshal(material)

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached entry for key, if present and unexpired.
func (r *ResponseCache) Get(key string) (ResponseEntry, bool) {
	return r.cache.Get(key)
}

// Set stores value under key with the given ttl (zero uses the cache's
// default_ttl). At capacity, eviction follows the shared engine's LRU
// discipline (smallest last_accessed, ties by insertion order).
func (r *ResponseCache) Set(key string, value ResponseEntry, ttl time.Duration) {
	r.cache.SetWithTTL(key, value, ttl)
}

// Cleanup sweeps expired entries; safe to call periodically from a
// background task (§4.G recommends every 5 minutes).
func (r *ResponseCache) Cleanup() int {
	return r.cache.EvictExpired()
}

// Clear empties the cache, e.g. on DELETE /query/cache.
func (r *ResponseCache) Clear() {
	r.cache.Clear()
}

// DefaultTTL returns the cache's configured default entry lifetime, for
// callers that want Set's ttl==0 default made explicit.
func (r *ResponseCache) DefaultTTL() time.Duration {
	return r.defaultTTL
}

// Stats returns the §4.G statistics envelope.
func (r *ResponseCache) Stats() cache.Stats {
	return r.cache.Stats()
}
