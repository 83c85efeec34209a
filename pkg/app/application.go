package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dinebot/pkg/config"
	"dinebot/pkg/contracts"
	"dinebot/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const idempotencyKeyPrefix = "dinebot:idempotency:"

var opsPaths = []string{"/health", "/ready", "/metrics"}

type Application struct {
	cfg            *config.Config
	server         *http.Server
	rateLimiter    *middleware.UserRateLimiter
	memoryStore    *middleware.InMemoryIdempotencyStore
	opsHandler     http.Handler
	appHttpHandler http.Handler
	onShutdown     []func()
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// SetApp mounts appHandler behind the full middleware stack and the ops
// handlers (health, readiness, metrics) behind Recovery and Logging only.
func (a *Application) SetApp(appHandler contracts.Handler, opsHandlers ...contracts.Handler) {
	a.setOpsHandler(opsHandlers)
	a.setAppHandler(appHandler)
	a.setAppServer()
}

// OnShutdown registers fn to run after the server stops.
func (a *Application) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) setOpsHandler(handlers []contracts.Handler) {
	opsRouter := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(opsRouter)
	}

	var opsHTTPHandler http.Handler = opsRouter
	opsHTTPHandler = middleware.RequestLogging(a.cfg.Log)(opsHTTPHandler)
	opsHTTPHandler = middleware.Recovery(a.cfg.Log)(opsHTTPHandler)
	a.opsHandler = opsHTTPHandler
	a.cfg.Log.Info("Ops endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) idempotencyStore() middleware.IdempotencyStore {
	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.cfg.Log.Info("Idempotency keys stored in Redis", "ttl", a.cfg.IdempotencyTTL)
		return middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, idempotencyKeyPrefix, a.cfg.IdempotencyTTL)
	}
	a.memoryStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.cfg.Log.Info("Idempotency keys stored in memory", "ttl", a.cfg.IdempotencyTTL)
	return a.memoryStore
}

func (a *Application) setAppHandler(appHandler contracts.Handler) {
	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	a.rateLimiter = middleware.NewUserRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.DialogUserExtractor,
		a.cfg.Log,
	)

	// Recovery → Logging → MaxSize → ContentType → Signature → RateLimit → Timeout → Idempotency → Router
	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.Idempotency(a.idempotencyStore(), middleware.DefaultIdempotencyHeader, a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout, a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.UserRateLimit(a.rateLimiter)(appHttpHandler)
	if a.cfg.CodeHookSecret != "" {
		appHttpHandler = middleware.SignatureVerification(a.cfg.CodeHookSecret, a.cfg.Log)(appHttpHandler)
		a.cfg.Log.Info("Code-hook signature verification enabled")
	}
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	for _, path := range opsPaths {
		mux.Handle(path, a.opsHandler)
	}
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.rateLimiter.Stop()
	if a.memoryStore != nil {
		a.memoryStore.Stop()
	}
	for _, fn := range a.onShutdown {
		fn()
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
