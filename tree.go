package lexparse

import (
	"fmt"
	"strings"
)

// Node represents a single node in parse tree
type Node struct {
	// Children nodes, nil for a leaf
	Children []*Node

	// Token text for a leaf, tag bin label otherwise
	Symbol string

	// Position of the lexical head and the covered span [Start, End)
	Head       int
	Start, End int
}

// Tree represents the parse tree
type Tree struct {
	*Node
}

// IsLeaf is true for token nodes
func (n *Node) IsLeaf() bool {
	return n.Children == nil
}

// Yield returns the leaf symbols from left to right
func (n *Node) Yield() []string {
	if n.IsLeaf() {
		return []string{n.Symbol}
	}
	words := []string{}
	for _, child := range n.Children {
		words = append(words, child.Yield()...)
	}
	return words
}

// Convert the node to string
func (n *Node) String() string {
	return n.repr(0)
}

// Bracketed returns the tree on a single line, like (ROOT (N the cat))
func (n *Node) Bracketed() string {
	if n.IsLeaf() {
		return n.Symbol
	}
	childrenReprs := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		childrenReprs = append(childrenReprs, child.Bracketed())
	}
	return fmt.Sprintf("(%s %s)", n.Symbol, strings.Join(childrenReprs, " "))
}

// Repr get the string representation of the node recursively
func (n *Node) repr(level int) string {
	// Don't wrap with parentheses when it's a leaf node
	prefix := strings.Repeat(" ", level*2)
	if level != 0 {
		prefix = "\n" + prefix
	}

	if n.IsLeaf() {
		return prefix + n.Symbol
	}
	childrenReprs := []string{}
	for _, child := range n.Children {
		childrenReprs = append(childrenReprs, child.repr(level+1))
	}

	return fmt.Sprintf(
		"%s(%s %s)",
		prefix,
		n.Symbol,
		strings.Join(childrenReprs, " "))
}

// flatten splices every internal child labeled like n into n
func (n *Node) flatten() {
	children := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		if !child.IsLeaf() && child.Symbol == n.Symbol {
			children = append(children, child.Children...)
		} else {
			children = append(children, child)
		}
	}
	n.Children = children
}
