package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter throttles the admin write endpoints (create/update/delete,
// reindex, maintenance) across minute, hour and day windows. Reads are
// never limited.
type Limiter struct {
	perMinute int
	perHour   int
	perDay    int
	enabled   bool

	minuteWindow []time.Time
	hourWindow   []time.Time
	dayWindow    []time.Time
	mu           sync.Mutex
}

// NewLimiter creates a write limiter with the given limits
func NewLimiter(perMinute, perHour, perDay int, enabled bool) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		perDay:    perDay,
		enabled:   enabled,
	}
}

// Allow checks whether another write is allowed right now and records
// it when so
func (l *Limiter) Allow() bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.expire(now)

	if l.perMinute > 0 && len(l.minuteWindow) >= l.perMinute {
		return false
	}
	if l.perHour > 0 && len(l.hourWindow) >= l.perHour {
		return false
	}
	if l.perDay > 0 && len(l.dayWindow) >= l.perDay {
		return false
	}

	l.minuteWindow = append(l.minuteWindow, now)
	l.hourWindow = append(l.hourWindow, now)
	l.dayWindow = append(l.dayWindow, now)
	return true
}

// Middleware rejects writes over the limit with 429
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "write rate limit exceeded, try again later",
			})
			return
		}
		c.Next()
	}
}

// expire drops entries older than each window
func (l *Limiter) expire(now time.Time) {
	l.minuteWindow = keepAfter(l.minuteWindow, now.Add(-time.Minute))
	l.hourWindow = keepAfter(l.hourWindow, now.Add(-time.Hour))
	l.dayWindow = keepAfter(l.dayWindow, now.Add(-24*time.Hour))
}

func keepAfter(times []time.Time, cutoff time.Time) []time.Time {
	result := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Stats contains current limiter counters
type Stats struct {
	Enabled          bool `json:"enabled"`
	WritesLastMinute int  `json:"writes_last_minute"`
	WritesLastHour   int  `json:"writes_last_hour"`
	WritesLastDay    int  `json:"writes_last_day"`
	LimitPerMinute   int  `json:"limit_per_minute"`
	LimitPerHour     int  `json:"limit_per_hour"`
	LimitPerDay      int  `json:"limit_per_day"`
}

// GetStats returns current limiter statistics
func (l *Limiter) GetStats() Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.expire(time.Now())
	return Stats{
		Enabled:          true,
		WritesLastMinute: len(l.minuteWindow),
		WritesLastHour:   len(l.hourWindow),
		WritesLastDay:    len(l.dayWindow),
		LimitPerMinute:   l.perMinute,
		LimitPerHour:     l.perHour,
		LimitPerDay:      l.perDay,
	}
}

// Reset clears all tracked writes (useful for testing)
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minuteWindow = nil
	l.hourWindow = nil
	l.dayWindow = nil
}
