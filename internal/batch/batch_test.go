package batch

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ling0322/lexparse"
	"github.com/ling0322/lexparse/model"
)

const testModel = `
;!bins: N=NN D=DT V=VBZ
the ::= DT ; -0.1
dog ::= NN ; -0.2
cat ::= NN ; -0.3
barks ::= VBZ ; -0.4
<N> ::= < <D> ; -0.3
<V> ::= < <N> ; -0.5
<ROOT> ::= < <V> ; -0.1
`

func newTestPool(t *testing.T, size int) (*Pool, *model.Model) {
	t.Helper()
	m, err := model.ParseModel(testModel)
	require.NoError(t, err)
	cfg := lexparse.DefaultConfig()
	cfg.BoundaryWord = m.BoundaryWord()
	pool, err := NewPool(m, m, cfg, size)
	require.NoError(t, err)
	return pool, m
}

func sentences(t *testing.T, m *model.Model, lines ...string) []lexparse.Sentence {
	t.Helper()
	result := make([]lexparse.Sentence, len(lines))
	for i, line := range lines {
		s, err := m.ParseSentence(line)
		require.NoError(t, err)
		result[i] = s
	}
	return result
}

func TestParseAllOrdered(t *testing.T) {
	pool, m := newTestPool(t, 3)
	assert.Equal(t, 3, pool.Size())

	lines := []string{}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			lines = append(lines, "the dog barks")
		} else {
			lines = append(lines, "barks the")
		}
	}

	var mu sync.Mutex
	progress := []int{}
	results, err := pool.ParseAll(context.Background(), sentences(t, m, lines...), func(done int) {
		mu.Lock()
		progress = append(progress, done)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, results, len(lines))

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.NoError(t, r.Err)
		if i%2 == 0 {
			assert.True(t, r.Parsed)
			assert.Equal(t, "(ROOT (V (N the dog) barks))", r.Tree.Bracketed())
			assert.Len(t, r.Arcs, 3)
		} else {
			assert.False(t, r.Parsed)
			assert.Nil(t, r.Tree)
		}
	}

	require.Len(t, progress, len(lines))
	for i, done := range progress {
		assert.Equal(t, i+1, done)
	}
}

func TestParseAllSameAsSequential(t *testing.T) {
	pool, m := newTestPool(t, 4)
	input := sentences(t, m, "the cat barks", "the dog barks", "dog barks", "barks")

	results, err := pool.ParseAll(context.Background(), input, nil)
	require.NoError(t, err)

	cfg := lexparse.DefaultConfig()
	cfg.BoundaryWord = m.BoundaryWord()
	parser, err := lexparse.NewParser(m, m, cfg)
	require.NoError(t, err)
	for i, s := range input {
		ok, err := parser.Parse(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, ok, results[i].Parsed, strings.Join(s.Words(), " "))
		assert.Equal(t, parser.BestScore(), results[i].Score)
	}
}

func TestParseAllCancelled(t *testing.T) {
	pool, m := newTestPool(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, _ := pool.ParseAll(ctx, sentences(t, m, "the dog barks", "the cat barks", "dog barks"), nil)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Error(t, r.Err)
		assert.False(t, r.Parsed)
	}

	// The pool is still usable
	r := pool.Parse(context.Background(), sentences(t, m, "the dog barks")[0])
	require.NoError(t, r.Err)
	assert.True(t, r.Parsed)
}

func TestParseConcurrent(t *testing.T) {
	pool, m := newTestPool(t, 2)
	s := sentences(t, m, "the dog barks")[0]

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := pool.Parse(context.Background(), s)
			assert.NoError(t, r.Err)
			assert.True(t, r.Parsed)
			assert.InDelta(t, -1.6, r.Score, 1e-9)
		}()
	}
	wg.Wait()
}
