package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "dinebot/pkg/errors"
	httputil "dinebot/pkg/http"
	"dinebot/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultIdempotencyHeader = "Idempotency-Key"

	// reservationTTL bounds how long a crashed turn can hold its key.
	reservationTTL = 2 * time.Minute
)

// IdempotencyStore remembers successful responses by key so a retried
// request is answered without running the handler again.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	// Reserve claims key for one in-flight request. It reports false when the
	// key already holds a response or a live reservation.
	Reserve(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, response *CachedResponse) error
	// Release drops a reservation that produced no cacheable response.
	Release(ctx context.Context, key string) error
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu       sync.RWMutex
	store    map[string]*CachedResponse
	reserved map[string]time.Time
	ttl      time.Duration
	stopCh   chan struct{}
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:    make(map[string]*CachedResponse),
		reserved: make(map[string]time.Time),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.RLock()
	response, exists := s.store[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if time.Since(response.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	return response, true, nil
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if response, exists := s.store[key]; exists && time.Since(response.CreatedAt) <= s.ttl {
		return false, nil
	}
	if at, exists := s.reserved[key]; exists && time.Since(at) <= reservationTTL {
		return false, nil
	}
	s.reserved[key] = time.Now()
	return true, nil
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = response
	delete(s.reserved, key)
	return nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.reserved, key)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, response := range s.store {
				if time.Since(response.CreatedAt) > s.ttl {
					delete(s.store, key)
				}
			}
			for key, at := range s.reserved {
				if time.Since(at) > reservationTTL {
					delete(s.reserved, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	close(s.stopCh)
}

// pendingMarker occupies a Redis key while its turn is still running.
const pendingMarker = "pending"

// releaseScript deletes the key only while it still holds the marker, so a
// late release never drops a stored response.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisIdempotencyStore shares cached responses between dialog replicas.
// Entries expire through the Redis TTL. A reservation is the same key set
// with SETNX to pendingMarker, later overwritten by the response.
type RedisIdempotencyStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisIdempotencyStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(raw) == pendingMarker {
		return nil, false, nil
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, err
	}
	return &cached, true, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, raw, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+key, pendingMarker, reservationTTL).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, s.rdb, []string{s.prefix + key}, pendingMarker).Err()
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated key. The key is
// reserved before the handler runs, and a duplicate that arrives while the
// first turn is in flight gets 409. Store failures are logged and the request
// runs normally.
func Idempotency(store IdempotencyStore, headerName string, log *logger.Logger) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			requestID := RequestIDFromContext(ctx)

			cached, found, err := store.Get(ctx, key)
			if err != nil {
				log.Warn("Idempotency lookup failed", "request_id", requestID, "error", err)
			}
			if found {
				log.Info("Replaying cached response", "request_id", requestID, "idempotency_key", key)
				replayCachedResponse(w, cached)
				return
			}

			reserved, err := store.Reserve(ctx, key)
			if err != nil {
				log.Warn("Idempotency reservation failed", "request_id", requestID, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				// The holder may have finished between Get and Reserve.
				if cached, found, _ := store.Get(ctx, key); found {
					log.Info("Replaying cached response", "request_id", requestID, "idempotency_key", key)
					replayCachedResponse(w, cached)
					return
				}
				log.Warn("Idempotency key in use", "request_id", requestID, "idempotency_key", key)
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this idempotency key is already in progress"))
				return
			}

			stored := false
			defer func() {
				if stored {
					return
				}
				if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
					log.Warn("Failed to release idempotency key", "request_id", requestID, "error", err)
				}
			}()

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(capture, r)

			if !shouldCacheResponse(capture.statusCode) {
				return
			}
			if err := store.Set(context.WithoutCancel(ctx), key, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			}); err != nil {
				log.Warn("Failed to cache response", "request_id", requestID, "error", err)
				return
			}
			stored = true
		})
	}
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func shouldCacheResponse(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
