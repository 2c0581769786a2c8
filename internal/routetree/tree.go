package routetree

import (
	"github.com/vyrodovalexey/wiggly/internal/router"
)

// File identifies a candidate module on disk.
type File struct {
	// Path is the absolute path.
	Path string
	// Rel is the slash-separated path relative to Root.
	Rel  string
	Root string
	// Global is set for files found in the middleware root.
	Global bool
}

// HandlerFile is a loaded route file.
type HandlerFile struct {
	File
	Segment  router.Segment
	IsIndex  bool
	Handlers router.HandlerSet
}

// Node is one directory of the routes tree.
type Node struct {
	Dir     string
	Rel     string
	Segment router.Segment
	Depth   int

	Children []*Node
	// Files holds the index file(s) and sibling handler files in
	// directory order.
	Files []*HandlerFile
	// Middleware lists the directory-local middleware files, _middleware
	// before _index. They are loaded by the Resolver.
	Middleware []File
}

// Index returns the directory's index file, if any.
func (n *Node) Index() *HandlerFile {
	for _, f := range n.Files {
		if f.IsIndex {
			return f
		}
	}
	return nil
}

// Tree is the result of one build. It is discarded once compiled.
type Tree struct {
	RootDir string
	Root    *Node
}

// EmptyTree returns a tree with no routes.
func EmptyTree(root string) *Tree {
	return &Tree{RootDir: root, Root: &Node{Dir: root}}
}

// Walk visits every node root-first. ancestors holds the nodes from the
// root down to, but not including, n.
func (t *Tree) Walk(fn func(n *Node, ancestors []*Node) error) error {
	if t == nil || t.Root == nil {
		return nil
	}
	return walkNode(t.Root, nil, fn)
}

func walkNode(n *Node, ancestors []*Node, fn func(*Node, []*Node) error) error {
	if err := fn(n, ancestors); err != nil {
		return err
	}
	next := append(ancestors[:len(ancestors):len(ancestors)], n)
	for _, c := range n.Children {
		if err := walkNode(c, next, fn); err != nil {
			return err
		}
	}
	return nil
}

// Stats counts nodes and handler files.
func (t *Tree) Stats() (dirs, files int) {
	_ = t.Walk(func(n *Node, _ []*Node) error {
		dirs++
		files += len(n.Files)
		return nil
	})
	return dirs, files
}

// pattern returns the route pattern of directory n.
func pattern(n *Node, ancestors []*Node) router.Pattern {
	segs := make([]router.Segment, 0, len(ancestors)+1)
	for _, a := range ancestors {
		if a.Depth > 0 {
			segs = append(segs, a.Segment)
		}
	}
	if n.Depth > 0 {
		segs = append(segs, n.Segment)
	}
	return router.NewPattern(segs...)
}
