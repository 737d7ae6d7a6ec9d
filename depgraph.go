package lexparse

import (
	"sort"
)

// Arc is a head/dependent relation of a parse. The dependent governed by the
// boundary token has Head equal to the sentence length
type Arc struct {
	Head      int
	Dependent int
	Score     float64
}

// DirectedGraph represents a weighted directed graph over token positions
type DirectedGraph struct {
	Arcs     map[int]map[int]float64
	Vertices map[int]bool
}

// NewDirectedGraph creates a new DirectedGraph
func NewDirectedGraph() *DirectedGraph {
	g := new(DirectedGraph)
	g.Arcs = make(map[int]map[int]float64)
	g.Vertices = make(map[int]bool)
	return g
}

// Add adds an arc into graph
func (g *DirectedGraph) Add(s, t int, weight float64) {
	if g.Arcs[s] == nil {
		g.Arcs[s] = map[int]float64{}
	}
	g.Arcs[s][t] = weight
	g.Vertices[s] = true
	g.Vertices[t] = true
}

// HasArc returns whether arc (s, t) exists in this graph
func (g *DirectedGraph) HasArc(s, t int) bool {
	_, ok := g.Arcs[s][t]
	return ok
}

// successors returns the targets of s in ascending order
func (g *DirectedGraph) successors(s int) []int {
	targets := make([]int, 0, len(g.Arcs[s]))
	for t := range g.Arcs[s] {
		targets = append(targets, t)
	}
	sort.Ints(targets)
	return targets
}

// DFS runs depth-first search from s and returns the reached vertices in
// pre-order. Vertices with visited[v] set are skipped and every reached
// vertex gets marked
func (g *DirectedGraph) DFS(s int, visited map[int]bool) []int {
	order := []int{}
	g.walk(s, visited, func(v int) { order = append(order, v) }, nil)
	return order
}

// walk calls pre when it enters a vertex and post once all of its
// successors are finished. Either may be nil
func (g *DirectedGraph) walk(s int, visited map[int]bool, pre, post func(int)) {
	if visited[s] || !g.Vertices[s] {
		return
	}
	visited[s] = true
	if pre != nil {
		pre(s)
	}
	for _, next := range g.successors(s) {
		g.walk(next, visited, pre, post)
	}
	if post != nil {
		post(s)
	}
}

// finishOrder returns the vertices sorted by decreasing DFS finishing time.
// For an acyclic graph that is a topological order
func (g *DirectedGraph) finishOrder() []int {
	vertices := make([]int, 0, len(g.Vertices))
	for v := range g.Vertices {
		vertices = append(vertices, v)
	}
	sort.Ints(vertices)

	visited := map[int]bool{}
	finished := make([]int, 0, len(vertices))
	for _, v := range vertices {
		g.walk(v, visited, nil, func(u int) { finished = append(finished, u) })
	}
	for i, j := 0, len(finished)-1; i < j; i, j = i+1, j-1 {
		finished[i], finished[j] = finished[j], finished[i]
	}
	return finished
}

// TopologicalSort sorts the graph by topological order. The result is only
// meaningful when the graph has no cycles
func (g *DirectedGraph) TopologicalSort() []int {
	return g.finishOrder()
}

// Transpose returns the reversed graph of g
func (g *DirectedGraph) Transpose() *DirectedGraph {
	reversed := NewDirectedGraph()
	for s, targets := range g.Arcs {
		for t, weight := range targets {
			reversed.Add(t, s, weight)
		}
	}
	for v := range g.Vertices {
		reversed.Vertices[v] = true
	}
	return reversed
}

// StrongComponents find strong connected components with more than one
// vertex
func (g *DirectedGraph) StrongComponents() [][]int {
	visited := map[int]bool{}
	components := [][]int{}
	gt := g.Transpose()
	for _, v := range g.finishOrder() {
		if visited[v] {
			continue
		}

		component := gt.DFS(v, visited)
		if len(component) <= 1 {
			continue
		}
		components = append(components, component)
	}
	return components
}

// IsDependencyTree checks that arcs over an n-token sentence give every token
// exactly one head and that all tokens hang off the boundary token n without
// cycles
func IsDependencyTree(arcs []Arc, n int) bool {
	if len(arcs) != n {
		return false
	}
	graph := NewDirectedGraph()
	graph.Vertices[n] = true
	heads := map[int]bool{}
	for _, arc := range arcs {
		if arc.Dependent < 0 || arc.Dependent >= n || arc.Head < 0 || arc.Head > n {
			return false
		}
		if heads[arc.Dependent] || arc.Head == arc.Dependent {
			return false
		}
		heads[arc.Dependent] = true
		graph.Add(arc.Head, arc.Dependent, arc.Score)
	}
	if len(graph.StrongComponents()) != 0 {
		return false
	}
	return len(graph.DFS(n, map[int]bool{})) == n+1
}

// arcs collects the dependency arcs of the best parse, sorted by dependent
func (c *chart) arcs() ([]Arc, bool) {
	if c == nil || c.tables == nil || isImpossible(c.bestScore) {
		return nil, false
	}
	best := headBin{head: c.bestEdge.Head, bin: c.bestEdge.TagBin}
	arcs := []Arc{{Head: c.n, Dependent: best.head, Score: c.rootScore(best)}}
	if !c.collectArcs(c.bestEdge, &arcs) {
		return nil, false
	}
	sort.Slice(arcs, func(i, j int) bool {
		return arcs[i].Dependent < arcs[j].Dependent
	})
	return arcs, true
}

func (c *chart) collectArcs(e Edge, arcs *[]Arc) bool {
	bp := c.tables.backpointerAt(e.Start, e.End, e.Head, e.TagBin)
	switch bp.shape {
	case shapeLeaf:
		return true
	case shapeLeftHead, shapeRightHead:
		mid := int(bp.mid)
		if mid <= e.Start || mid >= e.End {
			return false
		}
		left := headBin{head: int(bp.leftHead), bin: int(bp.leftBin)}
		right := headBin{head: int(bp.rightHead), bin: int(bp.rightBin)}
		if bp.shape == shapeLeftHead {
			*arcs = append(*arcs, Arc{Head: left.head, Dependent: right.head, Score: c.attach(left, right, true, mid)})
		} else {
			*arcs = append(*arcs, Arc{Head: right.head, Dependent: left.head, Score: c.attach(right, left, false, mid)})
		}
		return c.collectArcs(Edge{Start: e.Start, End: mid, Head: left.head, TagBin: left.bin}, arcs) &&
			c.collectArcs(Edge{Start: mid, End: e.End, Head: right.head, TagBin: right.bin}, arcs)
	}
	return false
}
