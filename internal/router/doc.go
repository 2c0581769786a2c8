// Package router provides the dispatch table for file-system routes.
//
// This package defines the pieces a compiled route is made of and the
// immutable Snapshot that answers "which handler and which middleware
// chain apply to this method and path".
//
// # Features
//
//   - Segment parsing for literal, [param], [...wildcard] and _ignored names
//   - Patterns ordered by specificity: literal before parameter before wildcard
//   - Build-time detection of conflicting routes and non-terminal wildcards
//   - Lookup indexed by method and first literal segment
//   - Middleware chains composed once per snapshot, run root-first
//
// # Usage
//
// Build a snapshot from compiled routes and look up a request:
//
//	snap, err := router.NewSnapshot(routes)
//	if err != nil {
//	    return err // conflict or invalid pattern
//	}
//	match, ok := snap.Lookup(http.MethodGet, "/user/42")
//
// A Snapshot is never modified after NewSnapshot returns. Replacing the
// table means building a new Snapshot and swapping the pointer to it.
package router
