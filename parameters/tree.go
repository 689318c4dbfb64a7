// Package parameters provides the recursive named parameter tree used for
// runtime introspection of mapping components.
package parameters

import (
	"fmt"
	"strings"
)

// Node is one node of a parameter tree: either a leaf holding a rendered
// value, or a branch holding children.
type Node struct {
	name     string
	value    string
	isLeaf   bool
	children []*Node
}

// NewLeaf returns a leaf node for a single parameter.
func NewLeaf(name string, value interface{}) *Node {
	return &Node{name: name, value: fmt.Sprint(value), isLeaf: true}
}

// NewBranch returns a branch node grouping child parameters. Nil children
// are skipped, so callers can pass optional subtrees directly.
func NewBranch(name string, children ...*Node) *Node {
	n := &Node{name: name}
	for _, c := range children {
		if c != nil {
			n.children = append(n.children, c)
		}
	}
	return n
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// WithName returns a copy of the node under a different name. Used to
// remap the root when a tree is embedded into a larger one.
func (n *Node) WithName(name string) *Node {
	if name == "" {
		return n
	}
	out := *n
	out.name = name
	return &out
}

// String renders the tree with two-space indentation per level.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b, 0)
	return b.String()
}

func (n *Node) render(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.isLeaf {
		fmt.Fprintf(b, "%s%s: %s\n", indent, n.name, n.value)
		return
	}
	fmt.Fprintf(b, "%s%s:\n", indent, n.name)
	for _, c := range n.children {
		c.render(b, depth+1)
	}
}

// Flatten renders every leaf as one "dotted.path: value" line.
func (n *Node) Flatten() string {
	var b strings.Builder
	n.flatten(&b, "")
	return b.String()
}

func (n *Node) flatten(b *strings.Builder, prefix string) {
	path := n.name
	if prefix != "" {
		path = prefix + "." + n.name
	}
	if n.isLeaf {
		fmt.Fprintf(b, "%s: %s\n", path, n.value)
		return
	}
	for _, c := range n.children {
		c.flatten(b, path)
	}
}
