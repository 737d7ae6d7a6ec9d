package lexparse

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// headBin is a (head, tag bin) pair with a finite inside score in some span
type headBin struct {
	head int
	bin  int
}

// chart fills the score tables of one sentence
type chart struct {
	cfg     Config
	lex     LexiconOracle
	grammar GrammarOracle
	bins    binning
	logger  *zap.Logger

	sentence Sentence
	n        int
	numBins  int
	tables   *scoreTables

	// reachable heads of every span, indexed by start*(n+1)+end, in head
	// then bin order
	cells [][]headBin

	bestScore float64
	bestEdge  Edge
	sumTotal  float64
}

func newChart(cfg Config, lex LexiconOracle, grammar GrammarOracle, sentence Sentence) *chart {
	return &chart{
		cfg:       cfg,
		lex:       lex,
		grammar:   grammar,
		bins:      binning{grammar: grammar},
		logger:    cfg.logger(),
		sentence:  sentence,
		n:         len(sentence),
		bestScore: negInf,
		sumTotal:  negInf,
	}
}

// checkCapacity refuses charts over the configured limits. It only does
// arithmetic, nothing is allocated
func checkCapacity(cfg Config, n, numBins int) error {
	if n > cfg.MaxLength {
		return &CapacityError{Length: n, MaxLength: cfg.MaxLength}
	}
	size := tableBytes(n, numBins, cfg.SumInside)
	if size > cfg.MaxTableBytes {
		return &CapacityError{Length: n, Bytes: size, MaxBytes: cfg.MaxTableBytes}
	}
	return nil
}

func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &interruptError{cause: err}
	}
	return nil
}

// build runs the inside sweep, the goal check and the outside sweep. It
// returns whether a finite full-sentence score exists
func (c *chart) build(ctx context.Context) (bool, error) {
	if err := interrupted(ctx); err != nil {
		return false, err
	}

	c.numBins = c.bins.numTagBins()
	if err := checkCapacity(c.cfg, c.n, c.numBins); err != nil {
		c.logger.Info("refused chart allocation",
			zap.Int("length", c.n),
			zap.Int("bins", c.numBins),
			zap.Error(err))
		return false, err
	}

	tables, err := newScoreTables(c.n, c.numBins, c.cfg.SumInside, c.logger)
	if err != nil {
		return false, err
	}
	c.tables = tables
	c.cells = make([][]headBin, (c.n+1)*(c.n+1))

	// Length 1: lexical candidates
	c.initLexical()
	c.dumpTier(1)

	// Length 2 to n: attachments
	for length := 2; length <= c.n; length++ {
		if err := interrupted(ctx); err != nil {
			return false, err
		}
		c.insideTier(length)
		c.dumpTier(length)
	}

	if !c.goal() {
		return false, nil
	}

	c.seedOutside()
	for length := c.n; length >= 2; length-- {
		if err := interrupted(ctx); err != nil {
			return false, err
		}
		c.outsideTier(length)
	}
	return true, nil
}

func (c *chart) cell(start, end int) []headBin {
	if start < 0 || end > c.n || start >= end {
		return nil
	}
	return c.cells[start*(c.n+1)+end]
}

// collect records the reachable heads of a finished span
func (c *chart) collect(start, end int) {
	var reachable []headBin
	for head := start; head < end; head++ {
		for bin := 0; bin < c.numBins; bin++ {
			if !isImpossible(c.tables.insideScore(start, end, head, bin)) {
				reachable = append(reachable, headBin{head: head, bin: bin})
			}
		}
	}
	c.cells[start*(c.n+1)+end] = reachable
}

func (c *chart) initLexical() {
	for p, tok := range c.sentence {
		for _, cand := range c.lex.Candidates(tok.Word, p, tok.Context) {
			if tok.HasTag && cand.Tag != tok.Tag {
				continue
			}
			bin := c.bins.tagBin(cand.Tag)
			if bin < 0 || bin >= c.numBins {
				c.logger.Debug("skipped lexical candidate with out-of-range bin",
					zap.Int("position", p),
					zap.Int("tag", cand.Tag),
					zap.Int("bin", bin))
				continue
			}
			score := sanitize(cand.Score)
			if score > c.tables.insideScore(p, p+1, p, bin) {
				c.tables.setInside(p, p+1, p, bin, score, backpointer{shape: shapeLeaf})
			}
			if c.tables.sum != nil {
				c.tables.setSum(p, p+1, p, bin, logAdd(c.tables.sumScore(p, p+1, p, bin), score))
			}
		}
		c.collect(p, p+1)
	}
}

// attach scores dep attaching to head across the split mid. A right
// attachment has the head in the left child
func (c *chart) attach(head, dep headBin, right bool, mid int) float64 {
	distance := mid - head.head
	if !right {
		distance = head.head - mid + 1
	}
	return sanitize(c.grammar.AttachmentScore(
		c.sentence[head.head].Word, head.bin,
		c.sentence[dep.head].Word, dep.bin,
		right, c.bins.distanceBin(distance)))
}

// rootScore attaches a full-sentence head to the boundary token at n
func (c *chart) rootScore(hb headBin) float64 {
	return sanitize(c.grammar.AttachmentScore(
		c.cfg.BoundaryWord, c.numBins,
		c.sentence[hb.head].Word, hb.bin,
		false, c.bins.distanceBin(c.n-hb.head)))
}

func (c *chart) relaxInside(start, end int, hb headBin, score float64, bp backpointer) {
	if score > c.tables.insideScore(start, end, hb.head, hb.bin) {
		c.tables.setInside(start, end, hb.head, hb.bin, score, bp)
	}
}

func (c *chart) addSum(start, end int, hb headBin, score float64) {
	if isImpossible(score) {
		return
	}
	c.tables.setSum(start, end, hb.head, hb.bin,
		logAdd(c.tables.sumScore(start, end, hb.head, hb.bin), score))
}

// insideTier fills every span of the given length. Ties keep the first
// combination found: mid ascending, then left head/bin, then right head/bin,
// the left-headed shape before the right-headed one
func (c *chart) insideTier(length int) {
	t := c.tables
	for start := 0; start+length <= c.n; start++ {
		end := start + length
		for mid := start + 1; mid < end; mid++ {
			right := c.cell(mid, end)
			for _, l := range c.cell(start, mid) {
				li := t.insideScore(start, mid, l.head, l.bin)
				if isImpossible(li) {
					continue
				}
				for _, r := range right {
					if r.head == l.head {
						continue
					}
					ri := t.insideScore(mid, end, r.head, r.bin)
					if isImpossible(ri) {
						continue
					}
					bp := backpointer{
						mid:       int32(mid),
						leftHead:  int32(l.head),
						leftBin:   int32(l.bin),
						rightHead: int32(r.head),
						rightBin:  int32(r.bin),
					}

					// Left child is the head, right child depends on it
					rightward := c.attach(l, r, true, mid)
					bp.shape = shapeLeftHead
					c.relaxInside(start, end, l, li+ri+rightward, bp)

					// Right child is the head
					leftward := c.attach(r, l, false, mid)
					bp.shape = shapeRightHead
					c.relaxInside(start, end, r, li+ri+leftward, bp)

					if t.sum != nil {
						sl := t.sumScore(start, mid, l.head, l.bin)
						sr := t.sumScore(mid, end, r.head, r.bin)
						c.addSum(start, end, l, sl+sr+rightward)
						c.addSum(start, end, r, sl+sr+leftward)
					}
				}
			}
		}
		c.collect(start, end)
	}
}

// goal finds the best full-sentence edge, root attachment included
func (c *chart) goal() bool {
	for _, hb := range c.cell(0, c.n) {
		root := c.rootScore(hb)
		score := c.tables.insideScore(0, c.n, hb.head, hb.bin) + root
		if score > c.bestScore {
			c.bestScore = score
			c.bestEdge = Edge{Start: 0, End: c.n, Head: hb.head, TagBin: hb.bin}
		}
		if c.tables.sum != nil {
			c.sumTotal = logAdd(c.sumTotal, c.tables.sumScore(0, c.n, hb.head, hb.bin)+root)
		}
	}
	c.bestScore = sanitize(c.bestScore)
	return !isImpossible(c.bestScore)
}

func (c *chart) seedOutside() {
	for _, hb := range c.cell(0, c.n) {
		c.tables.setOutside(0, c.n, hb.head, hb.bin, c.rootScore(hb))
	}
}

func (c *chart) relaxOutside(start, end int, hb headBin, score float64) {
	if score > c.tables.outsideScore(start, end, hb.head, hb.bin) {
		c.tables.setOutside(start, end, hb.head, hb.bin, score)
	}
}

// outsideTier pushes the outside scores of every span of the given length
// down to its children
func (c *chart) outsideTier(length int) {
	t := c.tables
	for start := 0; start+length <= c.n; start++ {
		end := start + length
		for _, parent := range c.cell(start, end) {
			po := t.outsideScore(start, end, parent.head, parent.bin)
			if isImpossible(po) {
				continue
			}
			for mid := start + 1; mid < end; mid++ {
				if parent.head < mid {
					li := t.insideScore(start, mid, parent.head, parent.bin)
					if isImpossible(li) {
						continue
					}
					for _, r := range c.cell(mid, end) {
						ri := t.insideScore(mid, end, r.head, r.bin)
						a := c.attach(parent, r, true, mid)
						c.relaxOutside(start, mid, parent, po+ri+a)
						c.relaxOutside(mid, end, r, po+li+a)
					}
				} else {
					ri := t.insideScore(mid, end, parent.head, parent.bin)
					if isImpossible(ri) {
						continue
					}
					for _, l := range c.cell(start, mid) {
						li := t.insideScore(start, mid, l.head, l.bin)
						a := c.attach(parent, l, false, mid)
						c.relaxOutside(start, mid, l, po+ri+a)
						c.relaxOutside(mid, end, parent, po+li+a)
					}
				}
			}
		}
	}
}

// dumpTier logs the reachable heads of every span of one length
func (c *chart) dumpTier(length int) {
	if !c.cfg.Debug {
		return
	}
	cells := []string{}
	for start := 0; start+length <= c.n; start++ {
		end := start + length
		reprs := []string{}
		for _, hb := range c.cell(start, end) {
			reprs = append(reprs, fmt.Sprintf("%d/%s:%.3f",
				hb.head, c.bins.label(hb.bin), c.tables.insideScore(start, end, hb.head, hb.bin)))
		}
		cells = append(cells, fmt.Sprintf("[%d,%d) %s", start, end, strings.Join(reprs, " ")))
	}
	c.logger.Debug("chart tier", zap.Int("length", length), zap.Strings("cells", cells))
}
