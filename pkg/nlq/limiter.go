package nlq

import (
	"context"
	"sync"
	"time"
)

// Window is the length of a rate-limit window.
const Window = 60 * time.Second

// Limiter caps how many questions reach the AI translator.
type Limiter interface {
	// Allow consumes one slot. It reports false when the current window is
	// exhausted. An error means the limiter itself could not decide.
	Allow(ctx context.Context) (bool, error)
}

// WindowLimiter is an in-process fixed window counter. The window opens on
// the first question after the previous one expired.
type WindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	count   int
	resetAt time.Time
	now     func() time.Time
}

// NewWindowLimiter allows limit questions per window.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if window <= 0 {
		window = Window
	}
	return &WindowLimiter{limit: limit, window: window, now: time.Now}
}

// Allow implements Limiter.
func (l *WindowLimiter) Allow(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.resetAt.IsZero() || !now.Before(l.resetAt) {
		l.resetAt = now.Add(l.window)
		l.count = 0
	}
	if l.count >= l.limit {
		return false, nil
	}
	l.count++
	return true, nil
}
