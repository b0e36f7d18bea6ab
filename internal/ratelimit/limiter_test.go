package ratelimit

import (
	"testing"
	"time"
)

func singlePolicyLimiter(limit int, window time.Duration) *Limiter {
	return NewLimiter([]Policy{
		{Name: PolicyDefault, Window: window, Limit: limit, KeyFunc: Subject.identity},
	})
}

func TestLimiter_Allow_AdmitsUpToBurstThenBlocks(t *testing.T) {
	l := singlePolicyLimiter(3, time.Minute)
	defer l.Stop()

	subj := Subject{IP: "10.0.0.1"}
	for i := 0; i < 3; i++ {
		if res := l.Allow(subj); !res.Allowed {
			t.Fatalf("request %d: expected allowed, got blocked by policy %q", i, res.Policy)
		}
	}

	res := l.Allow(subj)
	if res.Allowed {
		t.Fatal("expected the 4th request within the window to be blocked")
	}
	if res.Policy != PolicyDefault {
		t.Errorf("expected the blocking policy to be reported, got %q", res.Policy)
	}
	if res.RetryAfter <= 0 {
		t.Error("expected a positive RetryAfter on block")
	}
}

func TestLimiter_Allow_TracksPerSubjectIndependently(t *testing.T) {
	l := singlePolicyLimiter(1, time.Minute)
	defer l.Stop()

	a := Subject{IP: "10.0.0.1"}
	b := Subject{IP: "10.0.0.2"}

	if !l.Allow(a).Allowed {
		t.Fatal("expected subject a's first request to be allowed")
	}
	if l.Allow(a).Allowed {
		t.Fatal("expected subject a's second request to be blocked")
	}
	if !l.Allow(b).Allowed {
		t.Error("expected subject b to have an independent bucket")
	}
}

func TestLimiter_Allow_ChainShortCircuitsOnFirstRejectingPolicy(t *testing.T) {
	l := NewLimiter([]Policy{
		{Name: PolicyBurst, Window: time.Minute, Limit: 1, KeyFunc: Subject.identity},
		{Name: PolicyGlobal, Window: time.Minute, Limit: 1000, KeyFunc: func(Subject) string { return "global" }},
	})
	defer l.Stop()

	subj := Subject{UserID: "u1"}
	if !l.Allow(subj).Allowed {
		t.Fatal("expected the first request to pass both policies")
	}
	res := l.Allow(subj)
	if res.Allowed {
		t.Fatal("expected the burst policy to reject the second request")
	}
	if res.Policy != PolicyBurst {
		t.Errorf("expected PolicyBurst to be reported as the blocking policy, got %q", res.Policy)
	}
}

func TestLimiter_StatsFor_CountsTotalAndBlocked(t *testing.T) {
	l := singlePolicyLimiter(1, time.Minute)
	defer l.Stop()

	subj := Subject{UserID: "u1"}
	l.Allow(subj)
	l.Allow(subj)
	l.Allow(subj)

	stats := l.StatsFor("u1")
	if stats.TotalRequests != 3 {
		t.Errorf("expected TotalRequests 3, got %d", stats.TotalRequests)
	}
	if stats.BlockedRequests != 2 {
		t.Errorf("expected BlockedRequests 2, got %d", stats.BlockedRequests)
	}
}

func TestLimiter_Reset_ClearsTrackedStatistics(t *testing.T) {
	l := singlePolicyLimiter(1, time.Minute)
	defer l.Stop()

	subj := Subject{UserID: "u1"}
	l.Allow(subj)
	l.Allow(subj)

	l.Reset("u1")
	stats := l.StatsFor("u1")
	if stats.TotalRequests != 0 || stats.BlockedRequests != 0 {
		t.Errorf("expected statistics to be cleared after Reset, got %+v", stats)
	}
}

func TestSubject_Identity_PrefersUserIDOverIP(t *testing.T) {
	s := Subject{UserID: "u1", IP: "10.0.0.1"}
	if s.identity() != "u1" {
		t.Errorf("expected identity to prefer UserID, got %q", s.identity())
	}
	anon := Subject{IP: "10.0.0.1"}
	if anon.identity() != "10.0.0.1" {
		t.Errorf("expected identity to fall back to IP, got %q", anon.identity())
	}
}

func TestDefaultPolicies_OrdersBurstBeforeLessRestrictivePolicies(t *testing.T) {
	policies := DefaultPolicies()
	if len(policies) == 0 {
		t.Fatal("expected a non-empty default policy chain")
	}
	if policies[0].Name != PolicyBurst {
		t.Errorf("expected PolicyBurst to be evaluated first, got %q", policies[0].Name)
	}
}
