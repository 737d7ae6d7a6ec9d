package lexparse

// nodePool allocates tree nodes in batches
const nodePoolBatchSize = 256

type nodePool struct {
	nodes  [][]Node
	row    int
	column int
}

// newNodePool create a new instance of nodePool
func newNodePool() *nodePool {
	return &nodePool{
		nodes: [][]Node{make([]Node, nodePoolBatchSize)},
	}
}

// get allocates a new Node from pool
func (pool *nodePool) get() *Node {
	node := &pool.nodes[pool.row][pool.column]

	pool.column++
	if pool.column >= nodePoolBatchSize {
		pool.nodes = append(pool.nodes, make([]Node, nodePoolBatchSize))
		pool.row++
		pool.column = 0
	}
	return node
}

// extractor rebuilds trees from the backpointers of a filled chart
type extractor struct {
	chart *chart
	pool  *nodePool
}

func newExtractor(c *chart) *extractor {
	return &extractor{chart: c, pool: newNodePool()}
}

// tree returns the best parse wrapped in a root node, nil when the chart has
// no parse or the backpointers are inconsistent
func (x *extractor) tree() *Tree {
	c := x.chart
	if c == nil || c.tables == nil || isImpossible(c.bestScore) {
		return nil
	}
	top := x.extract(c.bestEdge)
	if top == nil {
		return nil
	}

	root := x.pool.get()
	root.Symbol = c.cfg.RootLabel
	root.Children = []*Node{top}
	root.Head = top.Head
	root.Start = 0
	root.End = c.n
	root.flatten()
	return &Tree{Node: root}
}

// extract materializes the subtree of one edge. Probing an edge that was
// never derived yields nil
func (x *extractor) extract(e Edge) *Node {
	c := x.chart
	if isImpossible(c.tables.insideScore(e.Start, e.End, e.Head, e.TagBin)) {
		return nil
	}
	bp := c.tables.backpointerAt(e.Start, e.End, e.Head, e.TagBin)

	switch bp.shape {
	case shapeLeaf:
		if e.End-e.Start != 1 || e.Head != e.Start {
			return nil
		}
		node := x.pool.get()
		node.Symbol = c.sentence[e.Start].Text
		node.Head = e.Head
		node.Start = e.Start
		node.End = e.End
		return node

	case shapeLeftHead, shapeRightHead:
		mid := int(bp.mid)
		if mid <= e.Start || mid >= e.End {
			return nil
		}
		left := Edge{Start: e.Start, End: mid, Head: int(bp.leftHead), TagBin: int(bp.leftBin)}
		right := Edge{Start: mid, End: e.End, Head: int(bp.rightHead), TagBin: int(bp.rightBin)}

		// The head percolates from the child named by the shape
		headChild := left
		if bp.shape == shapeRightHead {
			headChild = right
		}
		if headChild.Head != e.Head || headChild.TagBin != e.TagBin {
			return nil
		}

		leftNode := x.extract(left)
		if leftNode == nil {
			return nil
		}
		rightNode := x.extract(right)
		if rightNode == nil {
			return nil
		}

		node := x.pool.get()
		node.Symbol = c.bins.label(e.TagBin)
		node.Children = []*Node{leftNode, rightNode}
		node.Head = e.Head
		node.Start = e.Start
		node.End = e.End
		node.flatten()
		return node
	}
	return nil
}
