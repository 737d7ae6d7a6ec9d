// Package batch parses sentences concurrently over a fixed set of parsers.
package batch

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ling0322/lexparse"
)

// Result is the outcome of parsing one sentence
type Result struct {
	Index  int
	Parsed bool
	Score  float64
	Tree   *lexparse.Tree
	Arcs   []lexparse.Arc
	Err    error
}

// Pool owns one parser per worker slot. A parser is used by a single
// goroutine at a time
type Pool struct {
	sem    *semaphore.Weighted
	mu     sync.Mutex
	free   []*lexparse.Parser
	size   int
	logger *zap.Logger
}

// NewPool creates size parsers sharing the oracles, size <= 0 means one per
// CPU. The oracles must be safe for concurrent use
func NewPool(lex lexparse.LexiconOracle, grammar lexparse.GrammarOracle, cfg lexparse.Config, size int) (*Pool, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	free := make([]*lexparse.Parser, 0, size)
	for i := 0; i < size; i++ {
		parser, err := lexparse.NewParser(lex, grammar, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "creating parser %d", i)
		}
		free = append(free, parser)
	}
	logger.Debug("created parser pool", zap.Int("size", size))

	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		free:   free,
		size:   size,
		logger: logger,
	}, nil
}

// Size returns the number of parsers
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) acquire(ctx context.Context) (*lexparse.Parser, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "acquiring parser slot")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	parser := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return parser, nil
}

func (p *Pool) release(parser *lexparse.Parser) {
	p.mu.Lock()
	p.free = append(p.free, parser)
	p.mu.Unlock()
	p.sem.Release(1)
}

// Parse parses a single sentence, blocking while every parser is busy
func (p *Pool) Parse(ctx context.Context, sentence lexparse.Sentence) Result {
	parser, err := p.acquire(ctx)
	if err != nil {
		return Result{Err: err}
	}
	defer p.release(parser)
	return run(ctx, parser, sentence)
}

func run(ctx context.Context, parser *lexparse.Parser, sentence lexparse.Sentence) Result {
	var r Result
	r.Parsed, r.Err = parser.Parse(ctx, sentence)
	r.Score = parser.BestScore()
	if r.Parsed {
		r.Tree = parser.BestParse()
		r.Arcs, _ = parser.BestDependencies()
	}
	return r
}

// ParseAll parses sentences concurrently and returns the results in input
// order. progress, when not nil, is called with the number of finished
// sentences, one call at a time. When ctx ends before every sentence is
// started the unstarted results carry the error, which is also returned
func (p *Pool) ParseAll(ctx context.Context, sentences []lexparse.Sentence, progress func(done int)) ([]Result, error) {
	results := make([]Result, len(sentences))
	var (
		wg         sync.WaitGroup
		progressMu sync.Mutex
		done       int
	)

	for i, sentence := range sentences {
		parser, err := p.acquire(ctx)
		if err != nil {
			for j := i; j < len(sentences); j++ {
				results[j] = Result{Index: j, Err: err}
			}
			wg.Wait()
			p.logger.Info("batch interrupted",
				zap.Int("started", i),
				zap.Int("total", len(sentences)))
			return results, err
		}

		wg.Add(1)
		go func(i int, sentence lexparse.Sentence, parser *lexparse.Parser) {
			defer wg.Done()
			r := run(ctx, parser, sentence)
			p.release(parser)

			r.Index = i
			results[i] = r
			if r.Err != nil {
				p.logger.Debug("sentence failed", zap.Int("index", i), zap.Error(r.Err))
			}

			progressMu.Lock()
			done++
			if progress != nil {
				progress(done)
			}
			progressMu.Unlock()
		}(i, sentence, parser)
	}
	wg.Wait()
	return results, nil
}
