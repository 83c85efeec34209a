package middleware

import (
	"net/http"

	apperrors "dinebot/pkg/errors"
	httputil "dinebot/pkg/http"
)

// MaxRequestSize rejects bodies that declare more than limit bytes and caps
// the rest while they are read.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				_ = httputil.WriteError(w, apperrors.TooLarge("Request body too large"))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
