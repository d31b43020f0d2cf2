package mw

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"machine-ledger-backend/internal/logging"
)

// idleLimiterAge is how long an IP's limiter survives without requests.
const idleLimiterAge = 10 * time.Minute

var lRateLimit = logging.Subsystem("RateLimit")

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter stores a rate limiter for each IP address.
type IPRateLimiter struct {
	ips map[string]*ipLimiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
	now func() time.Time
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*ipLimiter),
		r:   r,
		b:   b,
		now: time.Now,
	}
}

// GetLimiter returns the rate limiter for an IP address, creating it on
// first use. Limiters idle for longer than idleLimiterAge are dropped.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	for key, l := range i.ips {
		if now.Sub(l.lastSeen) > idleLimiterAge {
			delete(i.ips, key)
		}
	}

	l, ok := i.ips[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = l
	}
	l.lastSeen = now
	return l.limiter
}

// Len returns the number of tracked IPs.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

// RateLimiter is a middleware for IP-based rate limiting. When ipHeader is
// set, the client IP is read from that header (e.g. behind a proxy) before
// falling back to gin's ClientIP.
func RateLimiter(limiter *IPRateLimiter, ipHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ipHeader != "" {
			// X-Forwarded-For style lists carry the client first.
			if v, _, _ := strings.Cut(c.GetHeader(ipHeader), ","); strings.TrimSpace(v) != "" {
				ip = strings.TrimSpace(v)
			}
		}
		if !limiter.GetLimiter(ip).Allow() {
			logging.FromContext(c.Request.Context(), lRateLimit).WithField("ip", ip).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}
