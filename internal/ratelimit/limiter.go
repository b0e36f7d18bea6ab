// Package ratelimit implements the Rate Limiter + Throttler (§4.H): a
// multi-policy token-bucket chain plus a complementary sliding-window
// throttler.
//
// Grounded on the teacher's rate limiting middleware
// (54b3r-tfai-go/internal/server/ratelimit.go) — a single named policy
// guarding per-IP token buckets via golang.org/x/time/rate, with a
// background eviction loop trimming stale entries — generalized here into
// several named policies chained in order, each tracking its own
// per-subject bucket table, all swept by one shared eviction loop.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PolicyName identifies one of the named token-bucket policies in §4.H's
// table.
type PolicyName string

const (
	PolicyUser    PolicyName = "user"
	PolicyIP      PolicyName = "ip"
	PolicyGlobal  PolicyName = "global"
	PolicyBurst   PolicyName = "burst"
	PolicyAIQuery PolicyName = "ai_query"
	PolicyDefault PolicyName = "default"
)

// Subject identifies the caller a request is rate-limited on behalf of.
type Subject struct {
	UserID string
	IP     string
}

// identity is the subject's canonical key for statistics purposes:
// authenticated subject id when present, otherwise IP.
func (s Subject) identity() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.IP
}

// Policy is one named token-bucket rule: limit requests per window, keyed
// by KeyFunc.
type Policy struct {
	Name    PolicyName
	Window  time.Duration
	Limit   int
	KeyFunc func(Subject) string
}

// DefaultPolicies returns the six policies from §4.H's table in the order
// they are chained, starting with the one-minute burst check.
func DefaultPolicies() []Policy {
	return []Policy{
		{Name: PolicyBurst, Window: time.Minute, Limit: 10, KeyFunc: Subject.identity},
		{Name: PolicyUser, Window: time.Hour, Limit: 60, KeyFunc: Subject.identity},
		{Name: PolicyIP, Window: time.Hour, Limit: 100, KeyFunc: func(s Subject) string { return s.IP }},
		{Name: PolicyAIQuery, Window: time.Hour, Limit: 30, KeyFunc: Subject.identity},
		{Name: PolicyGlobal, Window: time.Hour, Limit: 1000, KeyFunc: func(Subject) string { return "global" }},
		{Name: PolicyDefault, Window: 15 * time.Minute, Limit: 30, KeyFunc: func(s Subject) string { return s.IP }},
	}
}

// Stats reports §4.H's per-subject statistics.
type Stats struct {
	TotalRequests   int64     `json:"total_requests"`
	BlockedRequests int64     `json:"blocked_requests"`
	ActiveWindows   int       `json:"active_windows"`
	LastReset       time.Time `json:"last_reset"`
}

// Result is the outcome of a Limiter.Allow call.
type Result struct {
	Allowed    bool
	Policy     PolicyName
	RetryAfter time.Duration
	Limit      int
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// policyState is one policy's per-key bucket table.
type policyState struct {
	policy  Policy
	mu      sync.Mutex
	entries map[string]*bucketEntry
}

func newPolicyState(p Policy) *policyState {
	return &policyState{policy: p, entries: make(map[string]*bucketEntry)}
}

func (ps *policyState) get(key string) *bucketEntry {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	e, ok := ps.entries[key]
	if !ok {
		r := rate.Limit(float64(ps.policy.Limit) / ps.policy.Window.Seconds())
		e = &bucketEntry{limiter: rate.NewLimiter(r, ps.policy.Limit)}
		ps.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e
}

// evict drops entries unseen for longer than the policy's own window,
// since by then their bucket would have refilled completely anyway.
func (ps *policyState) evict() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	cutoff := time.Now().Add(-ps.policy.Window)
	for key, e := range ps.entries {
		if e.lastSeen.Before(cutoff) {
			delete(ps.entries, key)
		}
	}
}

func (ps *policyState) activeWindows() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.entries)
}

// Limiter is the multi-strategy chain described by §4.H: policies are
// evaluated in the order supplied, and the first rejection short-circuits
// the chain.
type Limiter struct {
	policies []*policyState

	statsMu sync.Mutex
	stats   map[string]*Stats

	stopCh chan struct{}
}

// NewLimiter builds a Limiter over policies and starts its background
// eviction loop (one tick per minute, mirroring the teacher's
// evictLoop/evict cadence).
func NewLimiter(policies []Policy) *Limiter {
	l := &Limiter{
		stats:  make(map[string]*Stats),
		stopCh: make(chan struct{}),
	}
	for _, p := range policies {
		l.policies = append(l.policies, newPolicyState(p))
	}
	go l.evictLoop()
	return l
}

// Stop ends the background eviction loop.
func (l *Limiter) Stop() { close(l.stopCh) }

func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			for _, ps := range l.policies {
				ps.evict()
			}
		}
	}
}

// Allow runs subj through every chained policy in order. The first policy
// to reject the request short-circuits the chain and is reported in the
// Result.
func (l *Limiter) Allow(subj Subject) Result {
	id := subj.identity()
	st := l.statsFor(id)

	l.statsMu.Lock()
	st.TotalRequests++
	l.statsMu.Unlock()

	for _, ps := range l.policies {
		key := ps.policy.KeyFunc(subj)
		entry := ps.get(key)
		if !entry.limiter.Allow() {
			l.statsMu.Lock()
			st.BlockedRequests++
			l.statsMu.Unlock()

			return Result{
				Allowed:    false,
				Policy:     ps.policy.Name,
				RetryAfter: retryAfter(ps.policy),
				Limit:      ps.policy.Limit,
			}
		}
	}

	return Result{Allowed: true}
}

func retryAfter(p Policy) time.Duration {
	if p.Limit <= 0 {
		return p.Window
	}
	return p.Window / time.Duration(p.Limit)
}

// statsFor returns (creating if needed) the Stats record for a subject
// identity, shared across all policies.
func (l *Limiter) statsFor(id string) *Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()

	st, ok := l.stats[id]
	if !ok {
		st = &Stats{LastReset: time.Now()}
		l.stats[id] = st
	}
	return st
}

// StatsFor reports the tracked statistics for a subject identity, summing
// active windows across every policy's bucket table.
func (l *Limiter) StatsFor(id string) Stats {
	l.statsMu.Lock()
	st, ok := l.stats[id]
	var snapshot Stats
	if ok {
		snapshot = *st
	} else {
		snapshot = Stats{LastReset: time.Now()}
	}
	l.statsMu.Unlock()

	active := 0
	for _, ps := range l.policies {
		active += ps.activeWindows()
	}
	snapshot.ActiveWindows = active
	return snapshot
}

// Reset clears a subject's tracked statistics, starting a fresh window.
func (l *Limiter) Reset(id string) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	l.stats[id] = &Stats{LastReset: time.Now()}
}
