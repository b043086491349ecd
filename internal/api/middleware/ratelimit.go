package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	log      logger.Logger
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with the given burst.
// Idle visitors are dropped in the background until Close is called.
func NewIPRateLimiter(perMinute, burst int, log logger.Logger) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	l := &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		log:      log,
		stop:     make(chan struct{}),
	}
	go l.cleanupVisitors(time.Minute, 5*time.Minute)
	return l
}

// Allow reports whether ip may make a request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

func (l *IPRateLimiter) cleanupVisitors(every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-idle)
			l.mu.Lock()
			for ip, v := range l.visitors {
				if v.lastSeen.Before(cutoff) {
					delete(l.visitors, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (l *IPRateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// Handler rejects requests over the limit with 429.
func (l *IPRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			l.log.WarnContext(c.Request.Context(), "rate limit exceeded: ip=%s path=%s", ip, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
