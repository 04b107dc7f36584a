// Package server provides HTTP routing, middleware and the handlers of the scheduler status server.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [Mux] implementation uses [http.ServeMux] method patterns, so wrong methods get a 405 with an Allow header.
//
// # Handlers
//
//   - [StatusHandler] : GET /health and GET /status (session state, strategy, last scan cycle)
//   - [TokenHandler] : POST /token, a web front for the manual auth strategy
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Lifecycle
//
// [Serve] runs the server until its context is cancelled and then shuts it down gracefully.
package server
