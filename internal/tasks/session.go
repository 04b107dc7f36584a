package tasks

import (
	"context"
	"net/http"
	"sync"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"golang.org/x/oauth2"
)

// Session holds the current auth token. The zero value is an unauthenticated session.
//
// Only the [Orchestrator] writes it; readers always observe a whole token.
type Session struct {
	mu    sync.RWMutex
	token string
}

// Token returns the current token, or "" when unset.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Valid reports whether a token is set.
func (s *Session) Valid() bool {
	return s.Token() != ""
}

func (s *Session) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// TokenSource exposes the session as an [oauth2.TokenSource].
//
// Every call reads the current token so a re-acquired token is picked up without rebuilding clients.
func (s *Session) TokenSource() oauth2.TokenSource {
	return sessionSource{s}
}

// Client returns an [http.Client] that sends "Authorization: Bearer <token>" on each request.
//
// The base transport is taken from an [oauth2.HTTPClient] value on ctx when present.
func (s *Session) Client(ctx context.Context) *http.Client {
	base := http.DefaultTransport
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil && c.Transport != nil {
		base = c.Transport
	}
	return &http.Client{Transport: &oauth2.Transport{Source: s.TokenSource(), Base: base}}
}

type sessionSource struct {
	s *Session
}

func (src sessionSource) Token() (*oauth2.Token, error) {
	token := src.s.Token()
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
