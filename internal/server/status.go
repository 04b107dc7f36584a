package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
	"github.com/jonboulle/clockwork"
)

// StatusSource reports scan loop state. Implemented by [tasks.ScanLoop].
type StatusSource interface {
	Last() (tasks.CycleSummary, bool)
	Cycles() int
	Session() *tasks.Session
	Strategy() tasks.Strategy
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Authenticated bool                `json:"authenticated"`
	Strategy      string              `json:"strategy"`
	Cycles        int                 `json:"cycles"`
	Uptime        string              `json:"uptime"`
	LastCycle     *tasks.CycleSummary `json:"last_cycle,omitempty"`
}

// StatusHandler serves GET /health and GET /status.
type StatusHandler struct {
	source  StatusSource
	clock   clockwork.Clock
	started time.Time
}

// NewStatusHandler creates a [StatusHandler]; uptime is measured from now.
func NewStatusHandler(source StatusSource, clock clockwork.Clock) *StatusHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StatusHandler{source: source, clock: clock, started: clock.Now()}
}

// Routes returns the HTTP routes this handler serves.
func (h *StatusHandler) Routes() []string {
	return []string{"/health", "/status"}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "/status":
		resp := StatusResponse{
			Authenticated: h.source.Session().Valid(),
			Strategy:      h.source.Strategy().String(),
			Cycles:        h.source.Cycles(),
			Uptime:        h.clock.Since(h.started).Truncate(time.Second).String(),
		}
		if last, ok := h.source.Last(); ok {
			resp.LastCycle = &last
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
