package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/shared"
	"github.com/chaithuchowdhary/texas-dps-scheduler/internal/tasks"
	"github.com/jonboulle/clockwork"
)

type fakeSource struct {
	session  *tasks.Session
	strategy tasks.Strategy
	cycles   int
	last     *tasks.CycleSummary
}

func (f *fakeSource) Last() (tasks.CycleSummary, bool) {
	if f.last == nil {
		return tasks.CycleSummary{}, false
	}
	return *f.last, true
}

func (f *fakeSource) Cycles() int              { return f.cycles }
func (f *fakeSource) Session() *tasks.Session  { return f.session }
func (f *fakeSource) Strategy() tasks.Strategy { return f.strategy }

func TestMux(t *testing.T) {
	t.Run("Handle Filters Method", func(t *testing.T) {
		r := NewMux()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("expected 200 pong, got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
			t.Errorf("expected Allow to list GET, got %q", allow)
		}
	})

	t.Run("Patterns", func(t *testing.T) {
		r := NewRouter(shared.NewLogger(io.Discard), NewStatusHandler(&fakeSource{session: &tasks.Session{}}, clockwork.NewFakeClock()))
		r.Handle(http.MethodGet, "/ping", http.NotFoundHandler())

		if got := strings.Join(r.Patterns(), ","); got != "/health,/status,GET /ping" {
			t.Errorf("unexpected patterns: %s", got)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewMux()
		r.Use(tag("first"), tag("second"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected middleware order: %v", order)
		}
	})

	t.Run("Recoverer", func(t *testing.T) {
		r := NewRouter(shared.NewLogger(io.Discard))
		r.Handle(http.MethodGet, "/panic", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestStatusHandler(t *testing.T) {
	clock := clockwork.NewFakeClock()

	t.Run("Health", func(t *testing.T) {
		h := NewStatusHandler(&fakeSource{session: &tasks.Session{}}, clock)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("Status Before Any Cycle", func(t *testing.T) {
		h := NewStatusHandler(&fakeSource{session: &tasks.Session{}, strategy: tasks.StrategyManual}, clock)
		clock.Advance(90 * time.Second)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		var resp StatusResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if resp.Authenticated {
			t.Error("expected unauthenticated session")
		}
		if resp.Strategy != "manual" {
			t.Errorf("expected manual, got %s", resp.Strategy)
		}
		if resp.Uptime != "1m30s" {
			t.Errorf("expected uptime 1m30s, got %s", resp.Uptime)
		}
		if resp.LastCycle != nil {
			t.Errorf("expected no last cycle, got %+v", resp.LastCycle)
		}
	})

	t.Run("Status With Last Cycle", func(t *testing.T) {
		source := &fakeSource{
			session:  &tasks.Session{},
			strategy: tasks.StrategySolver,
			cycles:   3,
			last:     &tasks.CycleSummary{Cycle: 3, Outcome: tasks.CycleScanned, StatusCode: http.StatusOK},
		}
		h := NewStatusHandler(source, clock)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		var resp StatusResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if resp.Cycles != 3 {
			t.Errorf("expected 3 cycles, got %d", resp.Cycles)
		}
		if resp.LastCycle == nil || resp.LastCycle.StatusCode != http.StatusOK {
			t.Errorf("expected last cycle with status 200, got %+v", resp.LastCycle)
		}
	})

	t.Run("Rejects Non-GET", func(t *testing.T) {
		h := NewStatusHandler(&fakeSource{session: &tasks.Session{}}, clock)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/status", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestTokenHandler(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	waitForPrompt := func(t *testing.T, h *TokenHandler) (<-chan string, <-chan error) {
		t.Helper()
		tokens := make(chan string, 1)
		errs := make(chan error, 1)
		go func() {
			resp, err := h.PromptToken(context.Background())
			if err != nil {
				errs <- err
				return
			}
			tokens <- resp.Token
		}()
		return tokens, errs
	}

	submit := func(t *testing.T, h *TokenHandler, contentType, body string) *httptest.ResponseRecorder {
		t.Helper()
		// The prompt goroutine may not be receiving yet.
		deadline := time.Now().Add(2 * time.Second)
		for {
			req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body))
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusConflict || time.Now().After(deadline) {
				return rec
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	t.Run("Raw Token", func(t *testing.T) {
		h := NewTokenHandler(logger)
		tokens, errs := waitForPrompt(t, h)

		rec := submit(t, h, "text/plain", "  raw-token  ")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}

		select {
		case token := <-tokens:
			if token != "raw-token" {
				t.Errorf("expected raw-token, got %q", token)
			}
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(time.Second):
			t.Fatal("prompt did not receive token")
		}
	})

	t.Run("JSON Token", func(t *testing.T) {
		h := NewTokenHandler(logger)
		tokens, _ := waitForPrompt(t, h)

		rec := submit(t, h, "application/json; charset=utf-8", `{"token":"json-token"}`)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		if token := <-tokens; token != "json-token" {
			t.Errorf("expected json-token, got %q", token)
		}
	})

	t.Run("Curl Command", func(t *testing.T) {
		h := NewTokenHandler(logger)
		tokens, _ := waitForPrompt(t, h)

		curl := `curl 'https://apptapi.txdpsscheduler.com/api/Eligibility' -H 'Authorization: curl-token'`
		rec := submit(t, h, "text/plain", curl)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		if token := <-tokens; token != "curl-token" {
			t.Errorf("expected curl-token, got %q", token)
		}
	})

	t.Run("No Prompt Waiting", func(t *testing.T) {
		h := NewTokenHandler(logger)
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("orphan"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("Empty Body", func(t *testing.T) {
		h := NewTokenHandler(logger)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("   ")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		h := NewTokenHandler(logger)
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Prompt Cancelled", func(t *testing.T) {
		h := NewTokenHandler(logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := h.PromptToken(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	t.Run("Shuts Down On Cancel", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		addr := ln.Addr().String()
		ln.Close()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		handler := NewRouter(shared.NewLogger(io.Discard),
			NewStatusHandler(&fakeSource{session: &tasks.Session{}}, clockwork.NewFakeClock()))
		go func() { done <- Serve(ctx, addr, handler, shared.NewLogger(io.Discard)) }()

		var resp *http.Response
		for range 50 {
			resp, err = http.Get("http://" + addr + "/health")
			if err == nil {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		if err != nil {
			t.Fatalf("server never came up: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected nil error, got %v", err)
			}
		case <-time.After(shutdownTimeout + time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("Listen Failure", func(t *testing.T) {
		err := Serve(context.Background(), "bad-address", http.NotFoundHandler(), shared.NewLogger(io.Discard))
		if err == nil {
			t.Error("expected listen error")
		}
	})
}
