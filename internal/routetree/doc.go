// Package routetree turns a routes directory into a dispatch snapshot.
//
// A build runs in three steps:
//
//   - Builder walks the routes root and produces a Tree. Each handler
//     file is loaded through a Loader into a router.HandlerSet.
//   - Resolver loads the global middleware from the middleware root and
//     each directory's _middleware/_index files, producing the ordered
//     chain for every node.
//   - Compile flattens the tree and chains into a router.Snapshot,
//     failing on route conflicts and invalid patterns.
//
// Directory conventions:
//
//	index.*            the enclosing directory's own path
//	[name].* [name]/   parameter segment :name
//	[...name].*        terminal wildcard *name, one or more segments
//	_middleware.*      directory middleware (also _index.*)
//	_anything          ignored
//	.anything          ignored
//
// Files are only considered when their extension is in the configured
// set, and zero-byte files are skipped without a warning.
package routetree
