package router

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/wiggly/internal/util"
)

// Snapshot is an immutable dispatch table. Routes are grouped by method
// and, within a method, by their first literal segment.
type Snapshot struct {
	routes  []*CompiledRoute
	methods map[string]*methodIndex
	builtAt time.Time

	inFlight atomic.Int64
}

type methodIndex struct {
	root    *CompiledRoute
	static  map[string][]*CompiledRoute
	dynamic []*CompiledRoute
}

// EmptySnapshot returns a snapshot with no routes.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		methods: map[string]*methodIndex{},
		builtAt: time.Now(),
	}
}

// NewSnapshot validates and indexes routes. Every invalid pattern and
// every (method, pattern) claimed by more than one route is reported;
// the errors are joined.
func NewSnapshot(routes []*CompiledRoute) (*Snapshot, error) {
	var errs []error

	owners := make(map[string][]*CompiledRoute)
	var order []string
	for _, r := range routes {
		if r == nil || r.Handler == nil {
			continue
		}
		if err := r.Pattern.Validate(r.Source); err != nil {
			errs = append(errs, err)
			continue
		}
		key := r.Method + " " + r.Pattern.Shape()
		if _, ok := owners[key]; !ok {
			order = append(order, key)
		}
		owners[key] = append(owners[key], r)
	}

	accepted := make([]*CompiledRoute, 0, len(order))
	for _, key := range order {
		group := owners[key]
		if len(group) > 1 {
			files := make([]string, len(group))
			for i, r := range group {
				files[i] = r.Source
			}
			sort.Strings(files)
			errs = append(errs, util.NewRouteConflictError(group[0].Method, group[0].Pattern.String(), files...))
			continue
		}
		accepted = append(accepted, group[0])
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	s := EmptySnapshot()
	s.routes = make([]*CompiledRoute, 0, len(accepted))
	for _, r := range accepted {
		cr := &CompiledRoute{
			Method:     r.Method,
			Pattern:    append(Pattern(nil), r.Pattern...),
			Middleware: append([]MiddlewareDescriptor(nil), r.Middleware...),
			Handler:    r.Handler,
			Source:     r.Source,
		}
		cr.chain = Compose(cr.Middleware, cr.Handler)
		s.routes = append(s.routes, cr)
	}

	sort.SliceStable(s.routes, func(i, j int) bool {
		a, b := s.routes[i], s.routes[j]
		if a.Method != b.Method {
			return methodRank(a.Method) < methodRank(b.Method)
		}
		return moreSpecific(a.Pattern, b.Pattern)
	})

	for _, r := range s.routes {
		idx := s.methods[r.Method]
		if idx == nil {
			idx = &methodIndex{static: make(map[string][]*CompiledRoute)}
			s.methods[r.Method] = idx
		}
		switch {
		case len(r.Pattern) == 0:
			idx.root = r
		case r.Pattern[0].Kind == SegmentLiteral:
			first := r.Pattern[0].Value
			idx.static[first] = append(idx.static[first], r)
		default:
			idx.dynamic = append(idx.dynamic, r)
		}
	}

	return s, nil
}

// Lookup finds the most specific route for method and path. Param values
// are taken from path as given.
func (s *Snapshot) Lookup(method, path string) (Match, bool) {
	idx := s.methods[method]
	if idx == nil {
		return Match{}, false
	}

	parts := splitPath(path)
	if len(parts) == 0 {
		if idx.root != nil {
			return Match{Route: idx.root}, true
		}
		return Match{}, false
	}

	for _, r := range idx.static[parts[0]] {
		if params, ok := r.Pattern.Match(parts); ok {
			return Match{Route: r, Params: params}, true
		}
	}
	for _, r := range idx.dynamic {
		if params, ok := r.Pattern.Match(parts); ok {
			return Match{Route: r, Params: params}, true
		}
	}
	return Match{}, false
}

// Routes returns the routes in lookup order: by method, then most
// specific first.
func (s *Snapshot) Routes() []*CompiledRoute {
	return append([]*CompiledRoute(nil), s.routes...)
}

// Len returns the number of routes.
func (s *Snapshot) Len() int {
	return len(s.routes)
}

// BuiltAt returns when the snapshot was created.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Acquire marks a request as dispatching through s.
func (s *Snapshot) Acquire() {
	s.inFlight.Add(1)
}

// Release undoes Acquire.
func (s *Snapshot) Release() {
	s.inFlight.Add(-1)
}

// InFlight returns the number of requests currently dispatching through s.
func (s *Snapshot) InFlight() int64 {
	return s.inFlight.Load()
}

// Fingerprint identifies the table contents: two snapshots built from the
// same tree have the same fingerprint.
func (s *Snapshot) Fingerprint() string {
	lines := make([]string, 0, len(s.routes))
	for _, r := range s.routes {
		lines = append(lines, r.Method+" "+r.Pattern.String()+" ["+strings.Join(r.MiddlewareNames(), ",")+"] "+r.Source)
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

func methodRank(m string) int {
	for i, candidate := range Methods {
		if candidate == m {
			return i
		}
	}
	return len(Methods)
}
