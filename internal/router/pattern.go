package router

import (
	"strings"

	"github.com/vyrodovalexey/wiggly/internal/util"
)

// Pattern is an ordered sequence of segments. The empty pattern is "/".
type Pattern []Segment

// Params holds the values bound by param and wildcard segments.
type Params map[string]string

// NewPattern builds a pattern, dropping ignored segments.
func NewPattern(segments ...Segment) Pattern {
	p := make(Pattern, 0, len(segments))
	for _, s := range segments {
		if s.Kind == SegmentIgnored {
			continue
		}
		p = append(p, s)
	}
	return p
}

// ParsePattern parses a slash-separated pattern such as "/user/:id" or
// "/files/*path". Bracket forms ("/user/[id]") are accepted as well.
func ParsePattern(s string) Pattern {
	parts := splitPath(s)
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		switch {
		case strings.HasPrefix(part, ":") && len(part) > 1:
			segs = append(segs, Segment{Kind: SegmentParam, Value: part[1:]})
		case strings.HasPrefix(part, "*") && len(part) > 1:
			segs = append(segs, Segment{Kind: SegmentWildcard, Value: part[1:]})
		default:
			segs = append(segs, ParseSegment(part))
		}
	}
	return NewPattern(segs...)
}

// String renders the pattern, e.g. "/user/:id/project/:editId".
func (p Pattern) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(s.String())
	}
	return b.String()
}

// Shape renders the pattern with binding names erased. Patterns with
// equal shapes match exactly the same request paths.
func (p Pattern) Shape() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(s.shape())
	}
	return b.String()
}

// Validate checks that a wildcard, if present, is the final segment and
// that no binding name is empty or reused.
func (p Pattern) Validate(source string) error {
	seen := make(map[string]struct{}, len(p))
	for i, s := range p {
		if s.Kind == SegmentIgnored {
			return util.NewInvalidPatternError(p.String(), source, "ignored segment in pattern")
		}
		if !s.IsDynamic() {
			continue
		}
		if s.Value == "" {
			return util.NewInvalidPatternError(p.String(), source, "empty parameter name")
		}
		if _, dup := seen[s.Value]; dup {
			return util.NewInvalidPatternError(p.String(), source, "parameter "+s.Value+" bound twice")
		}
		seen[s.Value] = struct{}{}
		if s.Kind == SegmentWildcard && i != len(p)-1 {
			return util.NewInvalidPatternError(p.String(), source, "wildcard must be the last segment")
		}
	}
	return nil
}

// Match matches already-split path components against the pattern.
func (p Pattern) Match(parts []string) (Params, bool) {
	var params Params
	for i, s := range p {
		if s.Kind == SegmentWildcard {
			if i >= len(parts) {
				return nil, false
			}
			rest := parts[i:]
			for _, r := range rest {
				if r == "" {
					return nil, false
				}
			}
			if params == nil {
				params = make(Params, 1)
			}
			params[s.Value] = strings.Join(rest, "/")
			return params, true
		}
		if i >= len(parts) {
			return nil, false
		}
		switch s.Kind {
		case SegmentLiteral:
			if parts[i] != s.Value {
				return nil, false
			}
		case SegmentParam:
			if parts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(Params, 2)
			}
			params[s.Value] = parts[i]
		}
	}
	if len(parts) != len(p) {
		return nil, false
	}
	return params, true
}

// moreSpecific reports whether a should be tried before b. Segments are
// compared left to right by kind rank; the first difference decides.
func moreSpecific(a, b Pattern) bool {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i].Kind != b[i].Kind {
			return a[i].Kind < b[i].Kind
		}
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a.String() < b.String()
}

// splitPath splits a request path into components. Leading and trailing
// slashes are dropped; "/" yields no components.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
