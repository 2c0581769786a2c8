// Package lifecycle owns the published route snapshot and drives the
// build, serve, watch and rebuild cycle.
//
// A Manager moves through the states
//
//	uninitialized -> building -> serving <-> rebuilding -> stopped
//
// Requests are dispatched against the snapshot that was current when they
// arrived. Rebuilds run on a background goroutine, are coalesced, and only
// replace the published snapshot when they succeed.
package lifecycle
