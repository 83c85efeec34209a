package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	apperrors "dinebot/pkg/errors"
	httputil "dinebot/pkg/http"
	"dinebot/pkg/logger"
)

const SignatureHeader = "X-Dinebot-Signature"

// SignatureVerification rejects code-hook calls whose body is not signed
// with the shared secret as "sha256=<hex hmac>".
func SignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := extractSignature(r)

			if signature == "" {
				rejectUnsigned(w, log, r, "Missing "+SignatureHeader+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectUnsigned(w, log, r, "Failed to read request body")
				return
			}

			if !verifySignature(body, signature, secret) {
				rejectUnsigned(w, log, r, "Invalid code-hook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := r.Header.Get(SignatureHeader)
	if header == "" {
		return ""
	}

	signature, found := strings.CutPrefix(header, "sha256=")
	if found {
		return signature
	}

	return header
}

// Sign returns the header value for body, for callers and tests.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(body []byte, receivedSignature string, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSignature), []byte(receivedSignature))
}

func rejectUnsigned(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Code-hook signature verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	if err := httputil.WriteError(w, apperrors.Unauthorized("Unauthorized")); err != nil {
		log.Error("failed to write error response", "middleware", "SignatureVerification", "operation", "WriteError", "error", err)
	}
}
