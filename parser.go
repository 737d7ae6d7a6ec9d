package lexparse

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Parser is the exhaustive dependency chart parser. A Parser keeps the chart
// of the last sentence and is not safe for concurrent use; parsers sharing
// the same oracles may run in parallel
type Parser struct {
	lex     LexiconOracle
	grammar GrammarOracle
	cfg     Config
	logger  *zap.Logger

	// chart of the last successful parse, nil otherwise
	chart *chart

	tree      *Tree
	treeBuilt bool
}

// NewParser creates a parser over a lexicon and a grammar
func NewParser(lex LexiconOracle, grammar GrammarOracle, cfg Config) (*Parser, error) {
	if lex == nil || grammar == nil {
		return nil, ErrNilOracle
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RootLabel == "" {
		cfg.RootLabel = DefaultRootLabel
	}
	return &Parser{
		lex:     lex,
		grammar: grammar,
		cfg:     cfg,
		logger:  cfg.logger(),
	}, nil
}

// Config returns the configuration of the parser
func (p *Parser) Config() Config {
	return p.cfg
}

// Parse fills a fresh chart for sentence and reports whether a finite
// full-sentence score was found. Capacity refusals and cancellation are
// returned as errors and leave the parser without a parse
func (p *Parser) Parse(ctx context.Context, sentence Sentence) (bool, error) {
	p.chart = nil
	p.tree = nil
	p.treeBuilt = false

	c := newChart(p.cfg, p.lex, p.grammar, sentence)
	found, err := c.build(ctx)
	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			p.logger.Info("parse interrupted", zap.Int("length", len(sentence)), zap.Error(err))
		}
		return false, err
	}

	// An empty or unparsable sentence keeps its tables so that the
	// accessors still reflect it
	p.chart = c
	p.logger.Debug("parsed sentence",
		zap.Int("length", len(sentence)),
		zap.Bool("found", found),
		zap.Float64("score", c.bestScore))
	return found, nil
}

// HasParse is true iff the last Parse found a parse
func (p *Parser) HasParse() bool {
	return p.chart != nil && !isImpossible(p.chart.bestScore)
}

// BestScore returns the score of the best parse, negative infinity when
// there is none
func (p *Parser) BestScore() float64 {
	if p.chart == nil {
		return negInf
	}
	return p.chart.bestScore
}

// BestEdge returns the full-sentence edge of the best parse
func (p *Parser) BestEdge() (Edge, bool) {
	if !p.HasParse() {
		return Edge{}, false
	}
	return p.chart.bestEdge, true
}

// BestParse returns the best parse tree, nil when there is none
func (p *Parser) BestParse() *Tree {
	if !p.HasParse() {
		return nil
	}
	if !p.treeBuilt {
		p.tree = newExtractor(p.chart).tree()
		p.treeBuilt = true
	}
	return p.tree
}

// BestDependencies returns the head/dependent arcs of the best parse sorted
// by dependent
func (p *Parser) BestDependencies() ([]Arc, bool) {
	if !p.HasParse() {
		return nil, false
	}
	return p.chart.arcs()
}

func (p *Parser) tables() *scoreTables {
	if p.chart == nil {
		return nil
	}
	return p.chart.tables
}

// IScore returns the inside score of an edge, negative infinity outside the
// chart
func (p *Parser) IScore(start, end, head, bin int) float64 {
	return p.tables().insideScore(start, end, head, bin)
}

// OScore returns the outside score of an edge, negative infinity outside the
// chart
func (p *Parser) OScore(start, end, head, bin int) float64 {
	return p.tables().outsideScore(start, end, head, bin)
}

func (p *Parser) IScoreEdge(e Edge) float64 {
	return p.IScore(e.Start, e.End, e.Head, e.TagBin)
}

func (p *Parser) OScoreEdge(e Edge) float64 {
	return p.OScore(e.Start, e.End, e.Head, e.TagBin)
}

// IScoreHook is the best inside score over every head of the hook's span
func (p *Parser) IScoreHook(h Hook) float64 {
	best := negInf
	for head := h.Start; head < h.End; head++ {
		if score := p.IScore(h.Start, h.End, head, h.TagBin); score > best {
			best = score
		}
	}
	return best
}

// OScoreHook is the best outside score over every head of the hook's span.
// A pre-hook needs material left of the span, a post-hook right of it
func (p *Parser) OScoreHook(h Hook) float64 {
	t := p.tables()
	if t == nil {
		return negInf
	}
	if h.PreHook && h.Start <= 0 {
		return negInf
	}
	if !h.PreHook && h.End >= t.n {
		return negInf
	}
	best := negInf
	for head := h.Start; head < h.End; head++ {
		if score := p.OScore(h.Start, h.End, head, h.TagBin); score > best {
			best = score
		}
	}
	return best
}

// IPossible tells whether IScoreHook is finite
func (p *Parser) IPossible(h Hook) bool {
	return !isImpossible(p.IScoreHook(h))
}

// OPossible tells whether OScoreHook is finite
func (p *Parser) OPossible(h Hook) bool {
	return !isImpossible(p.OScoreHook(h))
}

// SumScore returns the log of the summed scores of every parse. It needs
// Config.SumInside and a Parse that ran to completion; a completed parse
// that found nothing sums to negative infinity
func (p *Parser) SumScore() (float64, error) {
	if !p.cfg.SumInside {
		return negInf, ErrSumInsideDisabled
	}
	if p.chart == nil {
		return negInf, ErrSumInsideNotComputed
	}
	return p.chart.sumTotal, nil
}

// ScoredTree is a parse with its score
type ScoredTree struct {
	Tree  *Tree
	Score float64
}

// KBestParses is not supported
func (p *Parser) KBestParses(k int) ([]ScoredTree, error) {
	return nil, errors.Wrap(ErrNotImplemented, "KBestParses")
}

// KGoodParses is not supported
func (p *Parser) KGoodParses(k int) ([]ScoredTree, error) {
	return nil, errors.Wrap(ErrNotImplemented, "KGoodParses")
}

// SampleParses is not supported
func (p *Parser) SampleParses(k int) ([]ScoredTree, error) {
	return nil, errors.Wrap(ErrNotImplemented, "SampleParses")
}
