package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute is used when no rate is configured.
const DefaultRequestsPerMinute = 150

// RateLimiter is a token bucket limiter with 429 back-off.
type RateLimiter struct {
	limiter *rate.Limiter
	rpm     int

	mu            sync.Mutex
	pauseUntil    time.Time
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing requestsPerMinute with a burst of
// one tenth of that rate.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	burst := max(1, requestsPerMinute/10)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
		rpm:     requestsPerMinute,
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()

	r.mu.Lock()
	pause := time.Until(r.pauseUntil)
	r.mu.Unlock()
	if pause > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.totalConsumed++
	r.totalWaited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// TryConsume consumes a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Now().Before(r.pauseUntil) {
		return false
	}
	if !r.limiter.Allow() {
		return false
	}
	r.totalConsumed++
	return true
}

// Record429 pauses all callers for retryAfter.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last429Time = time.Now()
	if retryAfter > 0 {
		r.pauseUntil = r.last429Time.Add(retryAfter)
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateLimiterStatus{
		TokensAvailable: int(r.limiter.Tokens()),
		TokensLimit:     r.rpm,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// rateLimitedClient waits on a limiter before every call.
type rateLimitedClient struct {
	LLMClient
	limiter *RateLimiter
}

// WithRateLimit wraps client so every Chat call first waits on limiter.
func WithRateLimit(client LLMClient, limiter *RateLimiter) LLMClient {
	if limiter == nil {
		return client
	}
	return &rateLimitedClient{LLMClient: client, limiter: limiter}
}

func (c *rateLimitedClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	queued := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	queueTime := time.Since(queued)
	res, err := c.LLMClient.Chat(ctx, req)
	if res != nil {
		res.QueueTime = queueTime
		if res.ErrorType == "rate_limited" {
			c.limiter.Record429(5 * time.Second)
		}
	}
	return res, err
}
