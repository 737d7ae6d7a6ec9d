package lexparse

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// shape tells how the best score of an edge was built
type shape uint8

const (
	shapeNone shape = iota
	shapeLeaf
	shapeLeftHead
	shapeRightHead
)

// backpointer records the split and children of the best inside score
type backpointer struct {
	shape     shape
	mid       int32
	leftHead  int32
	leftBin   int32
	rightHead int32
	rightBin  int32
}

const backpointerBytes = uint64(unsafe.Sizeof(backpointer{}))

// scoreTables is a flat arena of score cells indexed by
// (start, end, head, bin). Every position dimension has n+1 slots, the extra
// one belongs to the boundary token
type scoreTables struct {
	n       int
	dim     int
	numBins int

	inside  []float64
	outside []float64
	sum     []float64
	back    []backpointer

	logger *zap.Logger
}

// tableBytes is the footprint of the tables for an n-token sentence. It
// saturates instead of overflowing
func tableBytes(n, numBins int, withSum bool) uint64 {
	if n < 0 || numBins < 0 {
		return 0
	}
	dim := uint64(n + 1)
	perCell := 2*8 + backpointerBytes
	if withSum {
		perCell += 8
	}
	total := uint64(1)
	for _, factor := range []uint64{dim, dim, dim, uint64(numBins), perCell} {
		hi, lo := bits.Mul64(total, factor)
		if hi != 0 {
			return ^uint64(0)
		}
		total = lo
	}
	return total
}

// newScoreTables allocates and resets tables for n tokens. The caller checks
// capacity first, a runtime allocation failure is still reported as
// ErrOutOfMemory rather than crashing the parse
func newScoreTables(n, numBins int, withSum bool, logger *zap.Logger) (t *scoreTables, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = errors.Wrapf(ErrOutOfMemory, "%d tokens, %d bins: %v", n, numBins, r)
		}
	}()

	dim := n + 1
	cells := dim * dim * dim * numBins
	t = &scoreTables{
		n:       n,
		dim:     dim,
		numBins: numBins,
		inside:  make([]float64, cells),
		outside: make([]float64, cells),
		back:    make([]backpointer, cells),
		logger:  logger,
	}
	if withSum {
		t.sum = make([]float64, cells)
	}
	t.reset()
	return t, nil
}

// reset marks every cell impossible and clears the backpointers
func (t *scoreTables) reset() {
	for i := range t.inside {
		t.inside[i] = negInf
		t.outside[i] = negInf
		t.back[i] = backpointer{}
	}
	for i := range t.sum {
		t.sum[i] = negInf
	}
}

// index maps a coordinate to its arena offset
func (t *scoreTables) index(start, end, head, bin int) (int, bool) {
	if start < 0 || start >= t.dim || end < 0 || end >= t.dim ||
		head < 0 || head >= t.dim || bin < 0 || bin >= t.numBins {
		return 0, false
	}
	return ((start*t.dim+end)*t.dim+head)*t.numBins + bin, true
}

func (t *scoreTables) read(table []float64, start, end, head, bin int) float64 {
	if table == nil {
		return negInf
	}
	i, ok := t.index(start, end, head, bin)
	if !ok {
		return negInf
	}
	return table[i]
}

func (t *scoreTables) write(table []float64, name string, start, end, head, bin int, score float64) bool {
	i, ok := t.index(start, end, head, bin)
	if !ok || table == nil {
		t.logger.Debug("dropped out-of-range chart write",
			zap.String("table", name),
			zap.String("edge", fmt.Sprintf("(%d,%d,%d,%d)", start, end, head, bin)))
		return false
	}
	table[i] = sanitize(score)
	return true
}

func (t *scoreTables) insideScore(start, end, head, bin int) float64 {
	if t == nil {
		return negInf
	}
	return t.read(t.inside, start, end, head, bin)
}

func (t *scoreTables) outsideScore(start, end, head, bin int) float64 {
	if t == nil {
		return negInf
	}
	return t.read(t.outside, start, end, head, bin)
}

func (t *scoreTables) sumScore(start, end, head, bin int) float64 {
	if t == nil {
		return negInf
	}
	return t.read(t.sum, start, end, head, bin)
}

func (t *scoreTables) setInside(start, end, head, bin int, score float64, bp backpointer) bool {
	if !t.write(t.inside, "inside", start, end, head, bin, score) {
		return false
	}
	i, _ := t.index(start, end, head, bin)
	t.back[i] = bp
	return true
}

func (t *scoreTables) setOutside(start, end, head, bin int, score float64) bool {
	return t.write(t.outside, "outside", start, end, head, bin, score)
}

func (t *scoreTables) setSum(start, end, head, bin int, score float64) bool {
	return t.write(t.sum, "sum", start, end, head, bin, score)
}

// backpointerAt returns the recorded backpointer, shapeNone when absent
func (t *scoreTables) backpointerAt(start, end, head, bin int) backpointer {
	if t == nil {
		return backpointer{}
	}
	i, ok := t.index(start, end, head, bin)
	if !ok {
		return backpointer{}
	}
	return t.back[i]
}
