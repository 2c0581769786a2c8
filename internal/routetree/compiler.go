package routetree

import (
	"github.com/vyrodovalexey/wiggly/internal/router"
)

// Routes flattens a tree into compiled routes without validating them.
func Routes(tree *Tree, chains Chains) []*router.CompiledRoute {
	var routes []*router.CompiledRoute
	_ = tree.Walk(func(n *Node, ancestors []*Node) error {
		base := pattern(n, ancestors)
		for _, f := range n.Files {
			p := base
			if !f.IsIndex {
				p = append(append(router.Pattern(nil), base...), f.Segment)
			}
			for _, method := range f.Handlers.Methods() {
				routes = append(routes, &router.CompiledRoute{
					Method:     method,
					Pattern:    p,
					Middleware: chains[n],
					Handler:    f.Handlers[method],
					Source:     f.Rel,
				})
			}
		}
		return nil
	})
	return routes
}

// Compile flattens a tree and its middleware chains into a snapshot.
// Conflicting routes and invalid patterns fail the whole compile.
func Compile(tree *Tree, chains Chains) (*router.Snapshot, error) {
	return router.NewSnapshot(Routes(tree, chains))
}
