package handler

import (
	"net/http"

	httputil "dinebot/pkg/http"
	"dinebot/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// SnapshotFunc returns a JSON-serializable view of one set of counters.
type SnapshotFunc func() any

type MetricsHandler struct {
	sources map[string]SnapshotFunc
	log     *logger.Logger
}

func NewMetricsHandler(sources map[string]SnapshotFunc, log *logger.Logger) *MetricsHandler {
	return &MetricsHandler{
		sources: sources,
		log:     log,
	}
}

func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	out := make(map[string]any, len(h.sources))
	for name, snapshot := range h.sources {
		out[name] = snapshot()
	}
	if err := httputil.WriteJSON(w, http.StatusOK, out); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Metrics", "operation", "WriteJSON", "error", err)
	}
}

func (h *MetricsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/metrics", h.Metrics)
}
