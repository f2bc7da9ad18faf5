package ratelimit

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ViolationKind classifies why an admission was rejected.
type ViolationKind int

const (
	// KindBurst means the burst-window ceiling was exceeded.
	KindBurst ViolationKind = iota
	// KindSustained means the sustained-window ceiling was exceeded.
	KindSustained
	// KindBlocked means the key is blocked after repeated violations.
	KindBlocked
	// KindDenied means the key matched the denylist.
	KindDenied
)

// String returns the string representation of the violation kind.
func (k ViolationKind) String() string {
	switch k {
	case KindBurst:
		return "burst_limit"
	case KindSustained:
		return "sustained_limit"
	case KindBlocked:
		return "blocked"
	case KindDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Violation describes a rejection. RetryAfter is how long until the
// violated window resets; zero means the rejection does not clear on its
// own (blocked or denied keys).
type Violation struct {
	Kind       ViolationKind
	RetryAfter time.Duration
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// Violation is set when Allowed is false.
	Violation *Violation
	// Remaining is the number of requests left in the sustained window.
	Remaining int
	// Suspicious reports whether the key is flagged by anomaly detection.
	Suspicious bool
}

// Err converts a rejected decision into a *LimitError. Returns nil for
// allowed decisions.
func (d Decision) Err(key string) error {
	if d.Allowed {
		return nil
	}
	le := &LimitError{Key: key}
	if d.Violation != nil {
		le.Kind = d.Violation.Kind
		le.RetryAfter = d.Violation.RetryAfter
	}
	return le
}

// RequestMeta carries request attributes consulted by anomaly detection.
type RequestMeta struct {
	// Agent is the client's declared identity string (for example an HTTP
	// User-Agent). Empty skips signature matching.
	Agent string
}

// Config configures a Limiter. Duration and count fields use their
// documented default when zero; a negative value disables the check.
type Config struct {
	// Window is the sustained accounting window.
	// Default: 1 minute
	Window time.Duration

	// MaxRequests is the sustained ceiling per key per Window.
	// Default: 100
	MaxRequests int

	// BurstWindow is the short accounting window, checked before the
	// sustained one.
	// Default: 10 seconds
	BurstWindow time.Duration

	// BurstLimit is the ceiling per key per BurstWindow. Negative disables
	// burst checking.
	// Default: 20
	BurstLimit int

	// BlockAfter is the violation count at which a key is blocked until
	// Reset. Negative disables blocking.
	// Default: 5
	BlockAfter int

	// SuspicionFactor scales the ceilings of suspicious keys, keeping a
	// floor of one request per window.
	// Default: 0.5
	SuspicionFactor float64

	// MinInterval is the shortest inter-request gap considered human.
	// Negative disables the streak heuristic.
	// Default: 100 milliseconds
	MinInterval time.Duration

	// MinIntervalStreak is the number of consecutive sub-MinInterval gaps
	// that flags a key as suspicious.
	// Default: 5
	MinIntervalStreak int

	// UniformitySamples is the number of recent inter-request gaps examined
	// for bot-like periodicity. Negative disables the heuristic.
	// Default: 8
	UniformitySamples int

	// UniformityJitter is the allowed relative deviation from the mean gap
	// below which timing counts as uniform.
	// Default: 0.1
	UniformityJitter float64

	// AutomationPatterns are wildcard patterns matched (case-insensitively)
	// against RequestMeta.Agent.
	// Default: common CLI and crawler signatures
	AutomationPatterns []string

	// Allowlist patterns bypass all checks for matching keys.
	Allowlist []string

	// Denylist patterns reject matching keys outright.
	Denylist []string

	// IdleTTL is how long an inactive, unblocked record is kept before the
	// sweep drops it.
	// Default: 10 minutes
	IdleTTL time.Duration

	// SweepInterval is how often idle records are cleaned up. Negative
	// disables the sweep.
	// Default: 1 minute
	SweepInterval time.Duration

	// OnViolation, if set, is called after each rejection. Invoked
	// synchronously; keep it fast.
	OnViolation func(key string, v Violation)

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func defaultAutomationPatterns() []string {
	return []string{
		"curl/*",
		"wget/*",
		"python-requests/*",
		"go-http-client/*",
		"*bot*",
		"*crawler*",
		"*spider*",
		"*headless*",
	}
}

// record is the per-key accounting state. Guarded by Limiter.mu.
type record struct {
	windowCount int
	windowStart time.Time
	burstCount  int
	burstStart  time.Time

	violations int
	blocked    bool
	suspicious bool

	// Anomaly detection state.
	lastRequest time.Time
	fastStreak  int
	intervals   []time.Duration

	lastSeen time.Time
}

// Limiter is an adaptive per-key rate limiter. All methods are safe for
// concurrent use.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	records map[string]*record

	allowedCount  atomic.Int64
	rejectedCount atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// NewLimiter creates a limiter and starts its idle-record sweep. Call Close
// to stop the sweep.
func NewLimiter(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = 10 * time.Second
	}
	if cfg.BurstLimit == 0 {
		cfg.BurstLimit = 20
	}
	if cfg.BlockAfter == 0 {
		cfg.BlockAfter = 5
	}
	if cfg.SuspicionFactor <= 0 || cfg.SuspicionFactor >= 1 {
		cfg.SuspicionFactor = 0.5
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 100 * time.Millisecond
	}
	if cfg.MinIntervalStreak <= 0 {
		cfg.MinIntervalStreak = 5
	}
	if cfg.UniformitySamples == 0 {
		cfg.UniformitySamples = 8
	}
	if cfg.UniformityJitter <= 0 {
		cfg.UniformityJitter = 0.1
	}
	if cfg.AutomationPatterns == nil {
		cfg.AutomationPatterns = defaultAutomationPatterns()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Limiter{
		cfg:     cfg,
		records: make(map[string]*record),
		done:    make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go l.sweepLoop()
	}
	return l
}

// Admit decides whether one request for key may proceed. The burst window
// is checked before the sustained window. Rejected requests still consume
// a slot in both windows.
func (l *Limiter) Admit(key string, meta RequestMeta) Decision {
	now := l.cfg.Now()

	if matchAny(l.cfg.Denylist, key) {
		l.rejectedCount.Add(1)
		return l.reject(key, Violation{Kind: KindDenied}, false)
	}
	if matchAny(l.cfg.Allowlist, key) {
		l.allowedCount.Add(1)
		return Decision{Allowed: true, Remaining: l.cfg.MaxRequests}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[key]
	if !ok {
		r = &record{windowStart: now, burstStart: now}
		l.records[key] = r
	}
	r.lastSeen = now

	// Blocked keys are rejected without recomputing windows.
	if r.blocked {
		l.rejectedCount.Add(1)
		return l.reject(key, Violation{Kind: KindBlocked}, r.suspicious)
	}

	l.observeTiming(r, now, meta)

	maxRequests := l.cfg.MaxRequests
	burstLimit := l.cfg.BurstLimit
	if r.suspicious {
		maxRequests = scaleCeiling(maxRequests, l.cfg.SuspicionFactor)
		burstLimit = scaleCeiling(burstLimit, l.cfg.SuspicionFactor)
	}

	if now.Sub(r.windowStart) >= l.cfg.Window {
		r.windowStart = now
		r.windowCount = 0
	}
	if now.Sub(r.burstStart) >= l.cfg.BurstWindow {
		r.burstStart = now
		r.burstCount = 0
	}
	r.windowCount++
	r.burstCount++

	if l.cfg.BurstLimit > 0 && r.burstCount > burstLimit {
		v := Violation{
			Kind:       KindBurst,
			RetryAfter: r.burstStart.Add(l.cfg.BurstWindow).Sub(now),
		}
		l.recordViolation(r)
		l.rejectedCount.Add(1)
		return l.reject(key, v, r.suspicious)
	}
	if r.windowCount > maxRequests {
		v := Violation{
			Kind:       KindSustained,
			RetryAfter: r.windowStart.Add(l.cfg.Window).Sub(now),
		}
		l.recordViolation(r)
		l.rejectedCount.Add(1)
		return l.reject(key, v, r.suspicious)
	}

	l.allowedCount.Add(1)
	return Decision{
		Allowed:    true,
		Remaining:  maxRequests - r.windowCount,
		Suspicious: r.suspicious,
	}
}

func (l *Limiter) reject(key string, v Violation, suspicious bool) Decision {
	if l.cfg.OnViolation != nil {
		l.cfg.OnViolation(key, v)
	}
	return Decision{Violation: &v, Suspicious: suspicious}
}

// recordViolation bumps the key's violation count and blocks the key when
// the threshold is reached. Caller holds mu.
func (l *Limiter) recordViolation(r *record) {
	r.violations++
	if l.cfg.BlockAfter > 0 && r.violations >= l.cfg.BlockAfter {
		r.blocked = true
	}
}

// scaleCeiling applies the suspicion factor with a floor of one request.
func scaleCeiling(n int, factor float64) int {
	scaled := int(float64(n) * factor)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// Reset clears all accounting for key, including a blocked flag. Returns
// true if the key had state.
func (l *Limiter) Reset(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[key]
	delete(l.records, key)
	return ok
}

// ResetAll drops all per-key state.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = make(map[string]*record)
}

// Stats is a read-only snapshot of limiter activity.
type Stats struct {
	ActiveKeys     int
	BlockedKeys    int
	SuspiciousKeys int
	Allowed        int64
	Rejected       int64
}

// Stats returns a snapshot of the limiter's counters and tracked keys.
func (l *Limiter) Stats() Stats {
	s := Stats{
		Allowed:  l.allowedCount.Load(),
		Rejected: l.rejectedCount.Load(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	s.ActiveKeys = len(l.records)
	for _, r := range l.records {
		if r.blocked {
			s.BlockedKeys++
		}
		if r.suspicious {
			s.SuspiciousKeys++
		}
	}
	return s
}

// Close stops the idle-record sweep.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.sweep(l.cfg.Now())
		}
	}
}

// sweep drops records idle for longer than IdleTTL. Blocked keys are kept:
// a block only clears through an explicit Reset.
func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, r := range l.records {
		if !r.blocked && now.Sub(r.lastSeen) > l.cfg.IdleTTL {
			delete(l.records, k)
		}
	}
}

// agentMatches reports whether the declared agent matches an automation
// signature.
func (l *Limiter) agentMatches(agent string) bool {
	return agent != "" && matchAny(l.cfg.AutomationPatterns, strings.ToLower(agent))
}
