package lexparse

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T, lex LexiconOracle, grammar GrammarOracle, cfg Config) *Parser {
	t.Helper()
	p, err := NewParser(lex, grammar, cfg)
	require.NoError(t, err)
	return p
}

func TestParseTheCat(t *testing.T) {
	p := newTestParser(t, uniqueTags(2), zeroGrammar(2, "D", "N"), DefaultConfig())

	found, err := p.Parse(context.Background(), words("the", "cat"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, p.HasParse())
	assert.Equal(t, 0.0, p.BestScore())

	tree := p.BestParse()
	require.NotNil(t, tree)
	assert.Equal(t, []string{"the", "cat"}, tree.Yield())
	// Equal scores keep the first combination, the left-headed one
	assert.Equal(t, "(ROOT (D the cat))", tree.Bracketed())
	assert.Equal(t, 0, tree.Head)

	edge, ok := p.BestEdge()
	require.True(t, ok)
	assert.Equal(t, Edge{Start: 0, End: 2, Head: 0, TagBin: 0}, edge)
}

func TestParseSingleImpossibleWord(t *testing.T) {
	lex := &tableLexicon{entries: map[int][]TagScore{0: {{Tag: 0, Score: negInfinity}}}}
	p := newTestParser(t, lex, zeroGrammar(1), DefaultConfig())

	found, err := p.Parse(context.Background(), words("dog"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, p.HasParse())
	assert.Nil(t, p.BestParse())
	assert.True(t, math.IsInf(p.BestScore(), -1))
}

func TestParseSingleWord(t *testing.T) {
	lex := &tableLexicon{entries: map[int][]TagScore{0: {{Tag: 0, Score: -1.5}}}}
	p := newTestParser(t, lex, zeroGrammar(1, "N"), DefaultConfig())

	found, err := p.Parse(context.Background(), words("dog"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, -1.5, p.BestScore())
	assert.Equal(t, "(ROOT dog)", p.BestParse().Bracketed())
}

func TestGoldTagMismatch(t *testing.T) {
	lex := &tableLexicon{entries: map[int][]TagScore{0: {{Tag: 0, Score: 0}, {Tag: 1, Score: 0}}}}
	p := newTestParser(t, lex, zeroGrammar(3), DefaultConfig())

	sentence := words("dog")
	sentence[0] = sentence[0].WithTag(2)
	found, err := p.Parse(context.Background(), sentence)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, p.BestParse())

	// A matching gold tag keeps only that candidate
	sentence[0] = sentence[0].WithTag(1)
	found, err = p.Parse(context.Background(), sentence)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, math.IsInf(p.IScore(0, 1, 0, 0), -1))
	assert.Equal(t, 0.0, p.IScore(0, 1, 0, 1))
}

func TestTokenWithoutGoldTag(t *testing.T) {
	lex := &tableLexicon{entries: map[int][]TagScore{0: {{Tag: 5, Score: 0}}}}
	grammar := zeroGrammar(1)
	grammar.tagBins = map[int]int{5: 0}
	p := newTestParser(t, lex, grammar, DefaultConfig())

	found, err := p.Parse(context.Background(), Sentence{{Word: 0, Text: "dog"}})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0.0, p.IScore(0, 1, 0, 0))

	// Tag 0 is a gold tag only when flagged
	found, err = p.Parse(context.Background(), Sentence{{Word: 0, Text: "dog", HasTag: true}})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCollapsedTagsKeepMax(t *testing.T) {
	lex := &tableLexicon{entries: map[int][]TagScore{0: {
		{Tag: 10, Score: -3},
		{Tag: 11, Score: -1},
		{Tag: 12, Score: negInfinity},
	}}}
	grammar := zeroGrammar(1)
	grammar.tagBins = map[int]int{10: 0, 11: 0, 12: 0}
	p := newTestParser(t, lex, grammar, DefaultConfig())

	found, err := p.Parse(context.Background(), words("dog"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, -1.0, p.IScore(0, 1, 0, 0))
}

func TestEmptySentence(t *testing.T) {
	p := newTestParser(t, uniqueTags(0), zeroGrammar(1), DefaultConfig())

	found, err := p.Parse(context.Background(), Sentence{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, p.HasParse())
	assert.True(t, math.IsInf(p.BestScore(), -1))
	assert.Nil(t, p.BestParse())
}

func TestScoresBeforeParse(t *testing.T) {
	p := newTestParser(t, uniqueTags(1), zeroGrammar(1), DefaultConfig())

	assert.False(t, p.HasParse())
	assert.True(t, math.IsInf(p.BestScore(), -1))
	assert.Nil(t, p.BestParse())
	assert.True(t, math.IsInf(p.IScore(0, 1, 0, 0), -1))
	assert.True(t, math.IsInf(p.OScore(0, 1, 0, 0), -1))
	assert.False(t, p.IPossible(Hook{Start: 0, End: 1}))
	assert.False(t, p.OPossible(Hook{Start: 0, End: 1}))
}

func TestMonotonicImpossibility(t *testing.T) {
	lex := uniqueTags(4)
	lex.entries[2] = []TagScore{{Tag: 2, Score: negInfinity}, {Tag: 3, Score: negInfinity}}
	p := newTestParser(t, lex, zeroGrammar(4), DefaultConfig())

	found, err := p.Parse(context.Background(), words("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, p.HasParse())
	assert.Nil(t, p.BestParse())
	_, ok := p.BestDependencies()
	assert.False(t, ok)
}

func TestDeterminism(t *testing.T) {
	sentence := words("a", "b", "c", "d", "e", "f")
	grammar := &testGrammar{bins: 3, dists: 3, labels: []string{"A", "B", "C"}, score: mixedScore}
	p := newTestParser(t, mixedLexicon(6, 3), grammar, DefaultConfig())

	found, err := p.Parse(context.Background(), sentence)
	require.NoError(t, err)
	require.True(t, found)
	score := p.BestScore()
	tree := p.BestParse().String()
	arcs, _ := p.BestDependencies()

	for i := 0; i < 3; i++ {
		found, err = p.Parse(context.Background(), sentence)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, score, p.BestScore())
		assert.Equal(t, tree, p.BestParse().String())
		again, _ := p.BestDependencies()
		assert.Equal(t, arcs, again)
	}
}

func TestCapacityGuard(t *testing.T) {
	lex := uniqueTags(5)
	grammar := zeroGrammar(5)
	cfg := DefaultConfig()
	cfg.MaxLength = 4
	p := newTestParser(t, lex, grammar, cfg)

	found, err := p.Parse(context.Background(), words("a", "b", "c", "d", "e"))
	assert.False(t, found)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Contains(t, err.Error(), "deliberate")
	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 5, capErr.Length)
	assert.Equal(t, 4, capErr.MaxLength)

	// The DP sweep never started
	assert.Zero(t, lex.calls.Load())
	assert.Zero(t, grammar.calls.Load())
	assert.False(t, p.HasParse())

	// A smaller sentence still parses afterwards
	found, err = p.Parse(context.Background(), words("a", "b"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCapacityGuardTableBytes(t *testing.T) {
	lex := uniqueTags(3)
	cfg := DefaultConfig()
	cfg.MaxTableBytes = tableBytes(2, 3, false)
	p := newTestParser(t, lex, zeroGrammar(3), cfg)

	_, err := p.Parse(context.Background(), words("a", "b", "c"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.NotErrorIs(t, err, ErrOutOfMemory)
	assert.Zero(t, lex.calls.Load())

	found, err := p.Parse(context.Background(), words("a", "b"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCancelledBeforeParse(t *testing.T) {
	lex := uniqueTags(3)
	p := newTestParser(t, lex, zeroGrammar(3), DefaultConfig())

	_, err := p.Parse(context.Background(), words("a", "b", "c"))
	require.NoError(t, err)
	require.True(t, p.HasParse())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := lex.calls.Load()
	found, err := p.Parse(ctx, words("a", "b", "c"))
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, calls, lex.calls.Load())
	assert.False(t, p.HasParse())
	assert.Nil(t, p.BestParse())
	assert.True(t, math.IsInf(p.IScore(0, 1, 0, 0), -1))
}

func TestCancelledDuringParse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lex := lexiconFunc(func(word, position int, context string) []TagScore {
		cancel()
		return []TagScore{{Tag: 0, Score: 0}}
	})
	grammar := zeroGrammar(1)
	p := newTestParser(t, lex, grammar, DefaultConfig())

	found, err := p.Parse(ctx, words("a", "b", "c"))
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.False(t, p.HasParse())
	// Cancellation is seen before the first attachment tier
	assert.Zero(t, grammar.calls.Load())
}

func TestUnsupportedOperations(t *testing.T) {
	p := newTestParser(t, uniqueTags(2), zeroGrammar(2), DefaultConfig())

	check := func() {
		_, err := p.KBestParses(3)
		assert.ErrorIs(t, err, ErrNotImplemented)
		_, err = p.KGoodParses(3)
		assert.ErrorIs(t, err, ErrNotImplemented)
		_, err = p.SampleParses(3)
		assert.ErrorIs(t, err, ErrNotImplemented)
	}
	check()
	found, err := p.Parse(context.Background(), words("the", "cat"))
	require.NoError(t, err)
	require.True(t, found)
	check()
}

func TestSumScore(t *testing.T) {
	p := newTestParser(t, uniqueTags(2), zeroGrammar(2), DefaultConfig())
	_, err := p.Parse(context.Background(), words("the", "cat"))
	require.NoError(t, err)
	_, err = p.SumScore()
	assert.ErrorIs(t, err, ErrSumInsideDisabled)

	cfg := DefaultConfig()
	cfg.SumInside = true
	p = newTestParser(t, uniqueTags(2), zeroGrammar(2), cfg)
	_, err = p.Parse(context.Background(), words("the", "cat"))
	require.NoError(t, err)
	sum, err := p.SumScore()
	require.NoError(t, err)
	// Two derivations of score 0: either word heads the sentence
	assert.InDelta(t, math.Log(2), sum, 1e-12)
}

func TestSumScoreWithoutCompletedParse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SumInside = true
	cfg.MaxLength = 3
	p := newTestParser(t, uniqueTags(4), zeroGrammar(4), cfg)

	sum, err := p.SumScore()
	assert.ErrorIs(t, err, ErrSumInsideNotComputed)
	assert.True(t, math.IsInf(sum, -1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Parse(ctx, words("a", "b"))
	require.ErrorIs(t, err, ErrInterrupted)
	_, err = p.SumScore()
	assert.ErrorIs(t, err, ErrSumInsideNotComputed)

	_, err = p.Parse(context.Background(), words("a", "b"))
	require.NoError(t, err)
	_, err = p.SumScore()
	require.NoError(t, err)

	_, err = p.Parse(context.Background(), words("a", "b", "c", "d"))
	require.ErrorIs(t, err, ErrCapacity)
	_, err = p.SumScore()
	assert.ErrorIs(t, err, ErrSumInsideNotComputed)

	// A completed parse that found nothing sums to negative infinity
	found, err := p.Parse(context.Background(), Sentence{})
	require.NoError(t, err)
	require.False(t, found)
	sum, err = p.SumScore()
	require.NoError(t, err)
	assert.True(t, math.IsInf(sum, -1))
}

func TestSumScoreBoundsBest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SumInside = true
	grammar := &testGrammar{bins: 3, dists: 3, score: mixedScore}
	p := newTestParser(t, mixedLexicon(5, 3), grammar, cfg)

	found, err := p.Parse(context.Background(), words("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	require.True(t, found)
	sum, err := p.SumScore()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sum, p.BestScore())
}

func TestBoundsTolerance(t *testing.T) {
	for n := 0; n <= 3; n++ {
		texts := []string{"a", "b", "c"}[:n]
		p := newTestParser(t, uniqueTags(n), zeroGrammar(3), DefaultConfig())
		_, err := p.Parse(context.Background(), words(texts...))
		require.NoError(t, err)

		coords := [][4]int{
			{-1, 1, 0, 0}, {0, n + 1, 0, 0}, {0, 1, -1, 0}, {0, 1, n + 1, 0},
			{0, 1, 0, -1}, {0, 1, 0, 3}, {n + 1, n + 2, 0, 0}, {1 << 20, 0, 0, 0},
			{0, 0, 0, 0}, {1, 0, 0, 0},
		}
		for _, c := range coords {
			assert.NotPanics(t, func() {
				assert.True(t, math.IsInf(p.IScore(c[0], c[1], c[2], c[3]), -1), "IScore%v n=%d", c, n)
				assert.True(t, math.IsInf(p.OScore(c[0], c[1], c[2], c[3]), -1), "OScore%v n=%d", c, n)
				assert.True(t, math.IsInf(p.IScoreEdge(Edge{c[0], c[1], c[2], c[3]}), -1))
				assert.True(t, math.IsInf(p.OScoreEdge(Edge{c[0], c[1], c[2], c[3]}), -1))
			})
		}
	}
}

func TestSpanCoverage(t *testing.T) {
	grammar := &testGrammar{bins: 3, dists: 3, labels: []string{"A", "B", "C"}, score: mixedScore}
	p := newTestParser(t, mixedLexicon(7, 3), grammar, DefaultConfig())

	sentence := words("a", "b", "c", "d", "e", "f", "g")
	found, err := p.Parse(context.Background(), sentence)
	require.NoError(t, err)
	require.True(t, found)

	tree := p.BestParse()
	require.NotNil(t, tree)
	assert.Equal(t, sentence.Words(), tree.Yield())

	var check func(n *Node)
	check = func(n *Node) {
		if n.IsLeaf() {
			assert.Equal(t, n.Start+1, n.End)
			return
		}
		assert.GreaterOrEqual(t, len(n.Children), 1)
		pos := n.Start
		for _, child := range n.Children {
			assert.Equal(t, pos, child.Start, "gap or overlap under %s", n.Symbol)
			pos = child.End
			if !child.IsLeaf() {
				assert.NotEqual(t, n.Symbol, child.Symbol, "unflattened child")
			}
			check(child)
		}
		assert.Equal(t, n.End, pos)
		assert.True(t, n.Head >= n.Start && n.Head < n.End)
	}
	assert.Equal(t, 0, tree.Start)
	assert.Equal(t, len(sentence), tree.End)
	check(tree.Node)
}

func TestOutsideConsistency(t *testing.T) {
	grammar := &testGrammar{bins: 3, dists: 3, score: mixedScore}
	p := newTestParser(t, mixedLexicon(5, 3), grammar, DefaultConfig())
	found, err := p.Parse(context.Background(), words("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	require.True(t, found)

	best := p.BestScore()
	edge, _ := p.BestEdge()
	assert.InDelta(t, best, p.IScoreEdge(edge)+p.OScoreEdge(edge), 1e-9)

	n := 5
	onBestPath := 0
	for start := 0; start < n; start++ {
		for end := start + 1; end <= n; end++ {
			for head := start; head < end; head++ {
				for bin := 0; bin < 3; bin++ {
					i, o := p.IScore(start, end, head, bin), p.OScore(start, end, head, bin)
					if math.IsInf(i, -1) || math.IsInf(o, -1) {
						continue
					}
					assert.LessOrEqual(t, i+o, best+1e-9)
					if math.Abs(i+o-best) < 1e-9 {
						onBestPath++
					}
				}
			}
		}
	}
	// Every edge of the best tree reaches the best score
	assert.GreaterOrEqual(t, onBestPath, 2*n-1)
}

func TestHooks(t *testing.T) {
	p := newTestParser(t, uniqueTags(3), zeroGrammar(3), DefaultConfig())
	found, err := p.Parse(context.Background(), words("a", "b", "c"))
	require.NoError(t, err)
	require.True(t, found)

	hooks := []Hook{}
	for start := 0; start <= 3; start++ {
		for end := start + 1; end <= 4; end++ {
			for bin := -1; bin <= 3; bin++ {
				hooks = append(hooks,
					Hook{Start: start, End: end, TagBin: bin, PreHook: true},
					Hook{Start: start, End: end, TagBin: bin, PreHook: false})
			}
		}
	}
	for _, h := range hooks {
		assert.Equal(t, !math.IsInf(p.IScoreHook(h), -1), p.IPossible(h), "%+v", h)
		assert.Equal(t, !math.IsInf(p.OScoreHook(h), -1), p.OPossible(h), "%+v", h)
	}

	assert.True(t, p.IPossible(Hook{Start: 1, End: 2, TagBin: 1}))
	assert.False(t, p.IPossible(Hook{Start: 1, End: 2, TagBin: 0}))
	assert.True(t, p.OPossible(Hook{Start: 1, End: 2, TagBin: 1, PreHook: true}))
	assert.True(t, p.OPossible(Hook{Start: 1, End: 2, TagBin: 1, PreHook: false}))
	assert.False(t, p.OPossible(Hook{Start: 0, End: 1, TagBin: 0, PreHook: true}))
	assert.False(t, p.OPossible(Hook{Start: 2, End: 3, TagBin: 2, PreHook: false}))
	assert.False(t, p.OPossible(Hook{Start: 0, End: 3, TagBin: 0, PreHook: true}))
}

func TestBestDependencies(t *testing.T) {
	grammar := &testGrammar{bins: 3, dists: 3, score: mixedScore}
	p := newTestParser(t, mixedLexicon(6, 3), grammar, DefaultConfig())
	found, err := p.Parse(context.Background(), words("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	require.True(t, found)

	arcs, ok := p.BestDependencies()
	require.True(t, ok)
	assert.True(t, IsDependencyTree(arcs, 6))

	total := 0.0
	for i, arc := range arcs {
		assert.Equal(t, i, arc.Dependent)
		total += arc.Score
	}
	// Lexical scores plus every attachment make up the best score
	lexical := 0.0
	for pos := 0; pos < 6; pos++ {
		lexical += p.IScoreEdge(leafEdge(p, pos))
	}
	assert.InDelta(t, p.BestScore(), total+lexical, 1e-9)
}

// leafEdge finds the length-1 edge the best parse uses at a position
func leafEdge(p *Parser, pos int) Edge {
	c := p.chart
	e, _ := p.BestEdge()
	for e.End-e.Start > 1 {
		bp := c.tables.backpointerAt(e.Start, e.End, e.Head, e.TagBin)
		mid := int(bp.mid)
		if pos < mid {
			e = Edge{Start: e.Start, End: mid, Head: int(bp.leftHead), TagBin: int(bp.leftBin)}
		} else {
			e = Edge{Start: mid, End: e.End, Head: int(bp.rightHead), TagBin: int(bp.rightBin)}
		}
	}
	return e
}

func TestNewParserValidation(t *testing.T) {
	_, err := NewParser(nil, zeroGrammar(1), DefaultConfig())
	assert.ErrorIs(t, err, ErrNilOracle)

	cfg := DefaultConfig()
	cfg.MaxLength = 0
	_, err = NewParser(uniqueTags(1), zeroGrammar(1), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNaNScoresAreImpossible(t *testing.T) {
	lex := &tableLexicon{entries: map[int][]TagScore{
		0: {{Tag: 0, Score: math.NaN()}},
		1: {{Tag: 0, Score: 0}},
	}}
	p := newTestParser(t, lex, zeroGrammar(1), DefaultConfig())
	found, err := p.Parse(context.Background(), words("a", "b"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, math.IsInf(p.IScore(0, 1, 0, 0), -1))
	assert.False(t, math.IsNaN(p.BestScore()))
}
