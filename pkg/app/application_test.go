package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dinebot/pkg/client"
	"dinebot/pkg/config"
	"dinebot/pkg/logger"
	"dinebot/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type routesFunc func(*httprouter.Router)

func (f routesFunc) RegisterRoutes(r *httprouter.Router) { f(r) }

func newTestApplication(t *testing.T, secret string) *Application {
	t.Helper()
	cfg := config.FromEnv()
	cfg.Log = logger.Discard()
	cfg.Client = client.NewClient()
	cfg.CodeHookSecret = secret

	app := NewApplication(cfg)
	app.SetApp(
		routesFunc(func(r *httprouter.Router) {
			r.POST("/api/v1/dialog", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				w.WriteHeader(http.StatusOK)
			})
		}),
		routesFunc(func(r *httprouter.Router) {
			r.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				w.WriteHeader(http.StatusNoContent)
			})
		}),
	)
	t.Cleanup(func() {
		app.rateLimiter.Stop()
		app.memoryStore.Stop()
	})
	return app
}

func TestApplication_Routing(t *testing.T) {
	app := newTestApplication(t, "")

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected ops handler for /health, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dialog", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected dialog route to succeed, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header from the logging middleware")
	}
}

func TestApplication_AppMiddleware(t *testing.T) {
	app := newTestApplication(t, "secret")
	body := `{"userId":"u1"}`

	tests := []struct {
		name        string
		contentType string
		signature   string
		wantStatus  int
	}{
		{"wrong content type", "text/plain", middleware.Sign([]byte(body), "secret"), http.StatusUnsupportedMediaType},
		{"unsigned", "application/json", "", http.StatusUnauthorized},
		{"signed", "application/json", middleware.Sign([]byte(body), "secret"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/dialog", strings.NewReader(body))
			req.Header.Set("Content-Type", tt.contentType)
			if tt.signature != "" {
				req.Header.Set(middleware.SignatureHeader, tt.signature)
			}
			rec := httptest.NewRecorder()

			app.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
