package lexparse

import (
	"math"
	"strconv"
	"sync/atomic"
)

type lexiconFunc func(word, position int, context string) []TagScore

func (f lexiconFunc) Candidates(word, position int, context string) []TagScore {
	return f(word, position, context)
}

// tableLexicon gives every word id a fixed candidate list
type tableLexicon struct {
	entries map[int][]TagScore
	calls   atomic.Int64
}

func (l *tableLexicon) Candidates(word, position int, context string) []TagScore {
	l.calls.Add(1)
	return l.entries[word]
}

type attachFunc func(headWord, headBin, depWord, depBin int, right bool, distBin int) float64

// testGrammar maps raw tags to bins through an optional table, identity
// otherwise
type testGrammar struct {
	bins    int
	dists   int
	tagBins map[int]int
	labels  []string
	score   attachFunc
	calls   atomic.Int64
}

func (g *testGrammar) NumTagBins() int { return g.bins }

func (g *testGrammar) TagBin(tag int) int {
	if bin, ok := g.tagBins[tag]; ok {
		return bin
	}
	return tag
}

func (g *testGrammar) NumDistBins() int { return g.dists }

func (g *testGrammar) DistanceBin(distance int) int {
	if distance >= g.dists {
		return g.dists - 1
	}
	return distance
}

func (g *testGrammar) AttachmentScore(headWord, headBin, depWord, depBin int, right bool, distBin int) float64 {
	g.calls.Add(1)
	if g.score == nil {
		return 0
	}
	return g.score(headWord, headBin, depWord, depBin, right, distBin)
}

func (g *testGrammar) TagBinLabel(bin int) string {
	if bin < len(g.labels) {
		return g.labels[bin]
	}
	return strconv.Itoa(bin)
}

func zeroGrammar(bins int, labels ...string) *testGrammar {
	return &testGrammar{bins: bins, dists: 4, labels: labels}
}

// words builds a sentence with word id i and text texts[i]
func words(texts ...string) Sentence {
	s := make(Sentence, len(texts))
	for i, text := range texts {
		s[i] = Token{Word: i, Text: text}
	}
	return s
}

// uniqueTags gives word i the single tag i with score 0
func uniqueTags(n int) *tableLexicon {
	lex := &tableLexicon{entries: map[int][]TagScore{}}
	for i := 0; i < n; i++ {
		lex.entries[i] = []TagScore{{Tag: i, Score: 0}}
	}
	return lex
}

// mixedLexicon gives every word two candidate tags with distinct scores
func mixedLexicon(n, bins int) *tableLexicon {
	lex := &tableLexicon{entries: map[int][]TagScore{}}
	for i := 0; i < n; i++ {
		lex.entries[i] = []TagScore{
			{Tag: i % bins, Score: -0.1 * float64(i+1)},
			{Tag: (i + 1) % bins, Score: -0.35 * float64(i+2)},
		}
	}
	return lex
}

// mixedScore prefers short rightward attachments to lower bins
func mixedScore(headWord, headBin, depWord, depBin int, right bool, distBin int) float64 {
	score := -0.25*float64(distBin) - 0.1*float64(depBin)
	if !right {
		score -= 0.3
	}
	if headBin == depBin {
		score -= 0.05 * float64(headWord+depWord)
	}
	return score
}

var negInfinity = math.Inf(-1)
