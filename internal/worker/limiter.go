package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

const defaultSource = "default"

// Limiter throttles envelope intake per source system. Imaging vendors and
// LOS exports each get their own budget so a bulk upload from one cannot
// starve the others.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates an intake limiter. A rate of zero or below means
// unlimited.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	r := rate.Limit(perSecond)
	if perSecond <= 0 {
		r = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Wait blocks until the source's budget admits one envelope
func (l *Limiter) Wait(ctx context.Context, source string) error {
	return l.getLimiter(source).Wait(ctx)
}

// Allow reports whether an envelope is admitted without waiting
func (l *Limiter) Allow(source string) bool {
	return l.getLimiter(source).Allow()
}

func (l *Limiter) getLimiter(source string) *rate.Limiter {
	if source == "" {
		source = defaultSource
	}

	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[source]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[source] = limiter

	return limiter
}

// SetSourceRate overrides the budget for one source system
func (l *Limiter) SetSourceRate(source string, perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.limiters[source] = rate.NewLimiter(rate.Limit(perSecond), burst)
}
