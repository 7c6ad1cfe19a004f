// Package ratelimit throttles authentication attempts by source IP and
// locks accounts after repeated failures.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	defaultIPLimit        = 10
	defaultIPWindow       = time.Minute
	defaultMaxFailures    = 5
	defaultLockoutBase    = 15 * time.Minute
	defaultLockoutCeiling = time.Hour
)

// window counts requests from one IP inside the current interval.
type window struct {
	count   int
	resetAt time.Time
}

// lockout tracks failed logins for one account. Each lockout extends the
// next one linearly up to the ceiling.
type lockout struct {
	failures    int
	lockedUntil time.Time
	strikes     int
}

// AuthLimiter combines per-IP request throttling with per-account
// failure lockouts for the login endpoints.
type AuthLimiter struct {
	mu       sync.RWMutex
	windows  map[string]*window
	lockouts map[string]*lockout

	ipLimit        int
	ipWindow       time.Duration
	maxFailures    int
	lockoutBase    time.Duration
	lockoutCeiling time.Duration
}

func NewAuthLimiter() *AuthLimiter {
	return &AuthLimiter{
		windows:        make(map[string]*window),
		lockouts:       make(map[string]*lockout),
		ipLimit:        defaultIPLimit,
		ipWindow:       defaultIPWindow,
		maxFailures:    defaultMaxFailures,
		lockoutBase:    defaultLockoutBase,
		lockoutCeiling: defaultLockoutCeiling,
	}
}

// Middleware rejects requests from IPs that exceed the per-window limit.
func (l *AuthLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

func (l *AuthLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w := l.windows[ip]
	if w == nil || now.After(w.resetAt) {
		l.windows[ip] = &window{count: 1, resetAt: now.Add(l.ipWindow)}
		return true
	}
	if w.count >= l.ipLimit {
		return false
	}
	w.count++
	return true
}

// IsAccountLocked reports whether the account is inside a lockout period.
func (l *AuthLimiter) IsAccountLocked(account string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lo := l.lockouts[account]
	return lo != nil && time.Now().Before(lo.lockedUntil)
}

// GetLockoutRemaining returns how long until the account unlocks, or zero.
func (l *AuthLimiter) GetLockoutRemaining(account string) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lo := l.lockouts[account]
	if lo == nil {
		return 0
	}
	if remaining := time.Until(lo.lockedUntil); remaining > 0 {
		return remaining
	}
	return 0
}

// RecordFailedAttempt counts a failed login and starts a lockout once the
// account crosses the failure threshold.
func (l *AuthLimiter) RecordFailedAttempt(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lo := l.lockouts[account]
	if lo == nil {
		lo = &lockout{}
		l.lockouts[account] = lo
	}

	// A fresh failure after an expired lockout starts a new count.
	if lo.failures >= l.maxFailures && time.Now().After(lo.lockedUntil) {
		lo.failures = 0
	}

	lo.failures++
	if lo.failures >= l.maxFailures {
		lo.strikes++
		d := l.lockoutBase * time.Duration(lo.strikes)
		if d > l.lockoutCeiling {
			d = l.lockoutCeiling
		}
		lo.lockedUntil = time.Now().Add(d)
	}
}

// RecordSuccessfulLogin clears any failure state for the account.
func (l *AuthLimiter) RecordSuccessfulLogin(account string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lockouts, account)
}

// Cleanup drops expired windows and resolved lockouts.
func (l *AuthLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for ip, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, ip)
		}
	}
	for account, lo := range l.lockouts {
		if now.After(lo.lockedUntil) && lo.failures < l.maxFailures {
			delete(l.lockouts, account)
		}
	}
}

// StartCleanup runs Cleanup on the given interval in the background.
func (l *AuthLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			l.Cleanup()
		}
	}()
}
