package routetree

import (
	"path/filepath"
	"strings"
)

// Reserved stems.
const (
	IndexStem           = "index"
	MiddlewareStem      = "_middleware"
	MiddlewareIndexStem = "_index"
)

// DefaultExtensions is used when no extension set is configured.
var DefaultExtensions = []string{".yaml", ".yml"}

type fileKind int

const (
	kindIgnored fileKind = iota
	kindIndex
	kindHandler
	kindMiddleware
)

// extensionSet holds normalized extensions, each with a leading dot.
type extensionSet map[string]struct{}

func newExtensionSet(exts []string) extensionSet {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(extensionSet, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// stem returns the name without its extension, and whether the extension
// is accepted.
func (s extensionSet) stem(name string) (string, bool) {
	ext := filepath.Ext(name)
	if ext == "" {
		return name, false
	}
	_, ok := s[strings.ToLower(ext)]
	return strings.TrimSuffix(name, ext), ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// classifyRouteFile classifies a file stem found in a routes directory.
func classifyRouteFile(stem string) fileKind {
	switch {
	case stem == MiddlewareStem || stem == MiddlewareIndexStem:
		return kindMiddleware
	case strings.HasPrefix(stem, "_"):
		return kindIgnored
	case stem == IndexStem:
		return kindIndex
	default:
		return kindHandler
	}
}

// isGlobalMiddleware reports whether a stem found in the middleware root
// names a middleware file.
func isGlobalMiddleware(stem string) bool {
	return strings.HasPrefix(stem, "_") ||
		strings.Contains(stem, MiddlewareStem) ||
		strings.Contains(stem, MiddlewareIndexStem)
}

// middlewareRank orders directory-local middleware: _middleware first.
func middlewareRank(stem string) int {
	if stem == MiddlewareStem {
		return 0
	}
	return 1
}
