package resilience

import (
	"context"
	"sync"
	"time"
)

// PacerConfig configures the outbound pacer.
type PacerConfig struct {
	// Rate is the number of calls allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit waits for a token instead of returning ErrThrottled.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 1 second
	MaxWait time.Duration
}

// Pacer is a token-bucket throttle for outbound calls toward one
// dependency. It keeps this process inside the dependency's quota; per-
// client ingress admission is the ratelimit package's job.
type Pacer struct {
	config PacerConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewPacer creates a new outbound pacer.
func NewPacer(config PacerConfig) *Pacer {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &Pacer{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Allow reports whether one call may proceed now.
func (p *Pacer) Allow() bool {
	return p.AllowN(1)
}

// AllowN reports whether n calls may proceed now.
func (p *Pacer) AllowN(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refillLocked()

	if p.tokens >= float64(n) {
		p.tokens -= float64(n)
		return true
	}
	return false
}

// Wait blocks until a token is available, MaxWait elapses, or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if p.AllowN(1) {
		return nil
	}

	p.mu.Lock()
	needed := 1 - p.tokens
	waitTime := time.Duration(needed / p.config.Rate * float64(time.Second))
	p.mu.Unlock()

	if waitTime > p.config.MaxWait {
		waitTime = p.config.MaxWait
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waitTime):
		if p.AllowN(1) {
			return nil
		}
		return ErrThrottled
	}
}

// Execute runs the operation if pacing allows it.
func (p *Pacer) Execute(ctx context.Context, op func(context.Context) error) error {
	if p.config.WaitOnLimit {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	} else if !p.Allow() {
		return ErrThrottled
	}

	return op(ctx)
}

func (p *Pacer) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(p.lastRefill)
	p.lastRefill = now

	p.tokens += elapsed.Seconds() * p.config.Rate
	if p.tokens > float64(p.config.Burst) {
		p.tokens = float64(p.config.Burst)
	}
}

// Tokens returns the current number of available tokens.
func (p *Pacer) Tokens() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refillLocked()
	return p.tokens
}

// Reset restores the pacer to full burst capacity.
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = float64(p.config.Burst)
	p.lastRefill = time.Now()
}
