package server

import (
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
)

// Mux is the status server [Router]. Routes registered with a method use [http.ServeMux] method patterns,
// so other methods get a 405 with an Allow header.
type Mux struct {
	mux         *http.ServeMux
	middlewares []Middleware
	patterns    []string
}

// NewMux creates an empty [Mux].
func NewMux() *Mux {
	return &Mux{mux: http.NewServeMux()}
}

// NewRouter creates a [Mux] with panic recovery and request logging that serves handlers.
func NewRouter(logger *log.Logger, handlers ...Handler) *Mux {
	m := NewMux()
	m.Use(Recoverer(logger), RequestLogger(logger))
	for _, h := range handlers {
		m.Handler(h)
	}
	return m
}

// Use appends middleware. The first added runs outermost.
func (m *Mux) Use(middleware ...Middleware) {
	m.middlewares = append(m.middlewares, middleware...)
}

// Handle registers handler for method and path. An empty method matches any.
func (m *Mux) Handle(method, path string, handler http.Handler) {
	pattern := path
	if method != "" {
		pattern = method + " " + path
	}
	m.register(pattern, handler)
}

// Handler registers h under every path it reports from [Handler.Routes].
func (m *Mux) Handler(h Handler) {
	for _, route := range h.Routes() {
		m.register(route, h)
	}
}

// Patterns returns the registered patterns in registration order.
func (m *Mux) Patterns() []string {
	return slices.Clone(m.patterns)
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

// register wraps handler in the middleware chain, which is fixed at registration time.
func (m *Mux) register(pattern string, handler http.Handler) {
	for _, mw := range slices.Backward(m.middlewares) {
		handler = mw(handler)
	}
	m.mux.Handle(pattern, handler)
	m.patterns = append(m.patterns, pattern)
}
