package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/edgeline/edgeline/internal/circuitbreaker"
	"github.com/edgeline/edgeline/internal/controller"
	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/internal/memory"
)

// OpsHandler serves the agent's operational API: cycle state, ledger
// snapshot, recent decisions, memory search, and circuit breaker
// control.
type OpsHandler struct {
	controller *controller.Controller
	ledger     *ledger.Ledger
	breaker    *circuitbreaker.BankrollCircuitBreaker
	memory     memory.Store
	logger     *zap.Logger
}

// NewOpsHandler creates a new ops handler. The breaker and memory
// store are optional.
func NewOpsHandler(
	ctrl *controller.Controller,
	bankroll *ledger.Ledger,
	breaker *circuitbreaker.BankrollCircuitBreaker,
	mem memory.Store,
	logger *zap.Logger,
) *OpsHandler {
	return &OpsHandler{
		controller: ctrl,
		ledger:     bankroll,
		breaker:    breaker,
		memory:     mem,
		logger:     logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleState handles GET /api/state requests.
func (h *OpsHandler) HandleState(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.GetStatus())
}

// HandleLedger handles GET /api/ledger requests.
func (h *OpsHandler) HandleLedger(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.Snapshot())
}

// HandleDecisions handles GET /api/decisions requests, returning the
// most recent reasoning pass.
func (h *OpsHandler) HandleDecisions(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.RecentDecisions())
}

// HandleBreaker handles GET /api/breaker requests.
func (h *OpsHandler) HandleBreaker(w http.ResponseWriter, _ *http.Request) {
	if h.breaker == nil {
		h.writeError(w, "circuit breaker not configured", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, h.breaker.GetStatus())
}

// HandleBreakerClear handles POST /api/breaker/clear requests: the
// manual clear for a tripped bankroll circuit breaker.
func (h *OpsHandler) HandleBreakerClear(w http.ResponseWriter, _ *http.Request) {
	if h.breaker == nil {
		h.writeError(w, "circuit breaker not configured", http.StatusNotFound)
		return
	}

	h.logger.Info("breaker-clear-requested")
	h.breaker.Clear()
	h.writeJSON(w, http.StatusOK, h.breaker.GetStatus())
}

// HandleMemorySearch handles GET /api/memory?q=<query>&limit=<n>
// requests over the agent's memory log.
func (h *OpsHandler) HandleMemorySearch(w http.ResponseWriter, r *http.Request) {
	if h.memory == nil {
		h.writeError(w, "memory store not configured", http.StatusNotFound)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, "missing query parameter q", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.memory.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("memory-search-failed", zap.Error(err))
		h.writeError(w, "memory search failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []memory.Entry{}
	}

	h.writeJSON(w, http.StatusOK, entries)
}

func (h *OpsHandler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *OpsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
