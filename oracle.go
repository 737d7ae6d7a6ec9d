package lexparse

import (
	"strconv"
)

// Token is a single word of a sentence. Word is an interned id, unknown words
// still carry an id (usually the vocabulary's unknown slot). Tag is a gold
// tag and only restricts the lexical candidates when HasTag is set
type Token struct {
	Word    int
	Text    string
	Tag     int
	HasTag  bool
	Context string
}

// WithTag returns a copy of the token carrying gold tag tag
func (t Token) WithTag(tag int) Token {
	t.Tag = tag
	t.HasTag = true
	return t
}

// Sentence is the ordered token sequence given to Parse
type Sentence []Token

// Words returns the surface text of the sentence
func (s Sentence) Words() []string {
	words := make([]string, len(s))
	for i, tok := range s {
		words[i] = tok.Text
	}
	return words
}

// TagScore is one lexical candidate for a word
type TagScore struct {
	Tag   int
	Score float64
}

// LexiconOracle supplies the tag candidates of a word at a position. It may
// return no candidates at all
type LexiconOracle interface {
	Candidates(word, position int, context string) []TagScore
}

// GrammarOracle scores head/dependent attachments and bins tags and distances.
// A headBin equal to NumTagBins() denotes the sentence boundary
type GrammarOracle interface {
	NumTagBins() int
	TagBin(tag int) int
	NumDistBins() int
	DistanceBin(distance int) int
	AttachmentScore(headWord, headBin, depWord, depBin int, right bool, distBin int) float64
}

// BinLabeler is optionally implemented by a GrammarOracle to name tag bins in
// parse trees
type BinLabeler interface {
	TagBinLabel(bin int) string
}

// Edge is the inside score key
type Edge struct {
	Start, End int
	Head       int
	TagBin     int
}

// Hook is a one-sided extension point of a span. PreHook anticipates an
// attachment to the left of the span, otherwise to the right
type Hook struct {
	Start, End int
	TagBin     int
	PreHook    bool
}

// binning forwards to the binning functions of a grammar oracle
type binning struct {
	grammar GrammarOracle
}

func (b binning) tagBin(tag int) int {
	return b.grammar.TagBin(tag)
}

func (b binning) distanceBin(distance int) int {
	return b.grammar.DistanceBin(distance)
}

func (b binning) numTagBins() int {
	return b.grammar.NumTagBins()
}

func (b binning) numDistBins() int {
	return b.grammar.NumDistBins()
}

// label returns the external name of a tag bin
func (b binning) label(bin int) string {
	if labeler, ok := b.grammar.(BinLabeler); ok {
		return labeler.TagBinLabel(bin)
	}
	return strconv.Itoa(bin)
}
