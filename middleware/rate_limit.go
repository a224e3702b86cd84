package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter is a fixed-window per-key admission counter. It is soft admission
// control: windows reset at fixed boundaries rather than sliding, which is
// enough to shed bursts before they reach persistence and cheap enough to
// sit in front of every request.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// Decision carries the outcome plus what the quota headers need.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

func NewLimiter(max int, period time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
	}
	go l.sweep()
	return l
}

// NewLimiterFromEnv builds the ingestion limiter with its configured
// defaults of 300 requests per 60 seconds.
func NewLimiterFromEnv() *Limiter {
	max := 300
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_MAX")); err == nil && v > 0 {
		max = v
	}
	seconds := 60
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); err == nil && v > 0 {
		seconds = v
	}
	return NewLimiter(max, time.Duration(seconds)*time.Second)
}

// Allow records a hit for key unless the key's current window is exhausted.
// A rejected request leaves the counter untouched.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		w = &window{start: now}
		l.windows[key] = w
	}

	reset := w.start.Add(l.period)
	if w.count >= l.max {
		return Decision{Allowed: false, Limit: l.max, Remaining: 0, Reset: reset}
	}
	w.count++
	return Decision{Allowed: true, Limit: l.max, Remaining: l.max - w.count, Reset: reset}
}

// sweep drops windows nothing has touched for a full period, so one-off
// source keys do not accumulate forever.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.period)
	for range ticker.C {
		now := l.now()
		l.mu.Lock()
		for key, w := range l.windows {
			if now.Sub(w.start) >= l.period {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit applies the limiter keyed by the client address and writes the
// standard quota headers on every response.
func RateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := l.Allow(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retryAfter := int(time.Until(d.Reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}
		c.Next()
	}
}
