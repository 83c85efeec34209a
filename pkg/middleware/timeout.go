package middleware

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	apperrors "dinebot/pkg/errors"
	httputil "dinebot/pkg/http"
	"dinebot/pkg/logger"
)

const turnKey contextKey = "turn"

// turn carries what the code hook learned about the request back to the
// timeout path, which runs on a different goroutine.
type turn struct {
	intent atomic.Value
}

// SetTurnIntent records the intent being served so a timed out turn can be
// reported by name. It is a no-op outside RequestTimeout.
func SetTurnIntent(ctx context.Context, intent string) {
	if t, ok := ctx.Value(turnKey).(*turn); ok {
		t.intent.Store(intent)
	}
}

func (t *turn) intentName() string {
	if name, ok := t.intent.Load().(string); ok {
		return name
	}
	return ""
}

// timeoutWriter wraps http.ResponseWriter to prevent writes after timeout
type timeoutWriter struct {
	http.ResponseWriter
	mu         sync.Mutex
	timedOut   bool
	written    bool
	statusCode int
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut || tw.written {
		return
	}

	tw.statusCode = code
	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}

	if !tw.written {
		tw.statusCode = http.StatusOK
		tw.written = true
	}

	return tw.ResponseWriter.Write(b)
}

func (tw *timeoutWriter) timeout() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut = true
}

// RequestTimeout bounds a code hook turn by timeout. The handler's context
// is canceled at the deadline, so a blocking enqueue gives up too, and the bot
// runtime gets a 504 instead of waiting out its own deadline. Timed out turns
// are logged with their request id and intent.
func RequestTimeout(timeout time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			t := &turn{}
			ctx = context.WithValue(ctx, turnKey, t)
			r = r.WithContext(ctx)

			tw := &timeoutWriter{ResponseWriter: w}

			done := make(chan struct{})
			go func() {
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				tw.timeout()
				tw.mu.Lock()
				answered := tw.written
				if !answered {
					_ = httputil.WriteError(w, apperrors.Timeout("Request timeout"))
					tw.written = true
				}
				tw.mu.Unlock()

				log.Warn("Dialog turn timed out",
					"request_id", RequestIDFromContext(ctx),
					"intent", t.intentName(),
					"path", r.URL.Path,
					"timeout", timeout,
					"partial_response", answered,
				)
			}
		})
	}
}
