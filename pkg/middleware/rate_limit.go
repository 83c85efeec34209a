package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "dinebot/pkg/errors"
	httputil "dinebot/pkg/http"
	"dinebot/pkg/logger"
)

// KeyExtractor returns the key a request is limited by, or "" to skip it.
type KeyExtractor func(r *http.Request) string

// UserRateLimiter allows limit requests per key within a sliding window.
type UserRateLimiter struct {
	mu           sync.Mutex
	requests     map[string][]time.Time
	limit        int
	window       time.Duration
	keyExtractor KeyExtractor
	log          *logger.Logger
	stopCh       chan struct{}
}

func NewUserRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *UserRateLimiter {
	limiter := &UserRateLimiter{
		requests:     make(map[string][]time.Time),
		limit:        limit,
		window:       window,
		keyExtractor: extractor,
		log:          log,
		stopCh:       make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *UserRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *UserRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *UserRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[key]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func UserRateLimit(limiter *UserRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if limiter.keyExtractor != nil {
				key = limiter.keyExtractor(r)
			}

			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFromContext(r.Context()),
					"user_id", key,
					"path", r.URL.Path,
				)
				if err := httputil.WriteError(w, apperrors.RateLimited("Rate limit exceeded")); err != nil {
					limiter.log.Error("failed to write error response", "middleware", "UserRateLimit", "operation", "WriteError", "error", err)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// DialogUserExtractor reads userId from a code-hook event body and puts the
// body back for the next handler.
func DialogUserExtractor(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := readAndRestoreBody(r)
	if err != nil {
		return ""
	}
	var event struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return ""
	}
	return event.UserID
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
