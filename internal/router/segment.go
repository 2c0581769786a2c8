package router

import "strings"

// IgnoreMarker prefixes names that never contribute a route segment.
const IgnoreMarker = "_"

// SegmentKind identifies the variant of a Segment.
type SegmentKind uint8

// Segment kinds. The numeric order is the specificity rank: lower kinds
// are preferred when two patterns both match a path.
const (
	SegmentLiteral SegmentKind = iota
	SegmentParam
	SegmentWildcard
	SegmentIgnored
)

// String returns the kind name.
func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentParam:
		return "param"
	case SegmentWildcard:
		return "wildcard"
	case SegmentIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Segment is one component of a route pattern. For literals Value is the
// text to match; for params and wildcards it is the binding name.
type Segment struct {
	Kind  SegmentKind
	Value string
}

// ParseSegment translates a file or directory name (without extension)
// into a Segment. It never fails: anything that is not bracketed or
// ignore-marked is a literal.
func ParseSegment(name string) Segment {
	switch {
	case strings.HasPrefix(name, "[...") && strings.HasSuffix(name, "]") && len(name) >= 5:
		return Segment{Kind: SegmentWildcard, Value: name[4 : len(name)-1]}
	case strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") && len(name) >= 2:
		return Segment{Kind: SegmentParam, Value: name[1 : len(name)-1]}
	case strings.HasPrefix(name, IgnoreMarker):
		return Segment{Kind: SegmentIgnored, Value: name}
	default:
		return Segment{Kind: SegmentLiteral, Value: name}
	}
}

// IsDynamic reports whether the segment binds a value.
func (s Segment) IsDynamic() bool {
	return s.Kind == SegmentParam || s.Kind == SegmentWildcard
}

// String renders the segment the way it appears in a compiled pattern.
func (s Segment) String() string {
	switch s.Kind {
	case SegmentParam:
		return ":" + s.Value
	case SegmentWildcard:
		return "*" + s.Value
	default:
		return s.Value
	}
}

// shape renders the segment with binding names erased, so that two
// patterns matching the same set of paths render identically.
func (s Segment) shape() string {
	switch s.Kind {
	case SegmentParam:
		return ":"
	case SegmentWildcard:
		return "*"
	default:
		return s.Value
	}
}
