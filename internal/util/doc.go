// Package util provides shared error types and request helpers for wiggly.
//
// # Error Types
//
// Structured error types for the route build pipeline:
//
//   - RouteConflictError: two files compile to the same method and pattern
//   - InvalidPatternError: a pattern has a wildcard that is not terminal
//   - ModuleLoadError: a candidate route or middleware file could not be loaded
//   - TransportError: the HTTP transport failed to bind or start
//   - WatchError: the file watcher could not attach to a path
//   - ConfigError: configuration validation errors
//
// # Request Info
//
// The dispatcher stores a RequestInfo in every handler context:
//
//	info, ok := util.RequestInfoFromContext(ctx)
//
// # HTTP Utilities
//
// Response writer wrapper for status code capture:
//
//	w := util.NewStatusCapturingResponseWriter(responseWriter)
//	handler.ServeHTTP(w, r)
//	statusCode := w.StatusCode
package util
