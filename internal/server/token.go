package server

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/services"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
)

const maxTokenBody = 64 << 10

// TokenHandler accepts auth tokens over POST /token and hands them to a waiting [TokenHandler.PromptToken] call.
//
// A submission is only accepted while a prompt is waiting; otherwise it is rejected with 409.
// Implements [services.TokenPrompter] so the manual strategy can be driven from the status server.
type TokenHandler struct {
	tokens chan string
	logger *log.Logger
}

var _ services.TokenPrompter = (*TokenHandler)(nil)

// NewTokenHandler creates a [TokenHandler].
func NewTokenHandler(logger *log.Logger) *TokenHandler {
	return &TokenHandler{tokens: make(chan string), logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *TokenHandler) Routes() []string {
	return []string{"/token"}
}

// ServeHTTP accepts a raw token, a pasted cURL command, or JSON {"token": "..."}.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBody))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	raw := string(body)
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var payload struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		raw = payload.Token
	}

	token, err := shared.ExtractAuthToken(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	select {
	case h.tokens <- token:
		h.logger.Info("auth token submitted", "token", shared.MaskToken(token))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	default:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no token prompt is waiting"})
	}
}

// PromptToken waits for the next submitted token.
func (h *TokenHandler) PromptToken(ctx context.Context) (services.PromptResponse, error) {
	h.logger.Info("waiting for an auth token on POST /token")
	select {
	case token := <-h.tokens:
		return services.PromptResponse{Token: token}, nil
	case <-ctx.Done():
		return services.PromptResponse{}, ctx.Err()
	}
}
