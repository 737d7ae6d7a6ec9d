package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/gosuri/uiprogress"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ling0322/lexparse"
	"github.com/ling0322/lexparse/internal/batch"
	"github.com/ling0322/lexparse/model"
)

func readSentences(m *model.Model, r io.Reader) ([]lexparse.Sentence, error) {
	sentences := []lexparse.Sentence{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s, err := m.ParseSentence(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		sentences = append(sentences, s)
	}
	return sentences, scanner.Err()
}

// writeResult prints the bracketed tree of a sentence, followed by its arcs
// as "dependent head word" lines when deps is set
func writeResult(w io.Writer, s lexparse.Sentence, r batch.Result, deps bool) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(w, "(ERROR %s)\n", r.Err)
	case !r.Parsed:
		fmt.Fprintln(w, "(NOPARSE)")
	default:
		fmt.Fprintln(w, r.Tree.Bracketed())
	}
	if !deps || !r.Parsed {
		return
	}
	for _, arc := range r.Arcs {
		fmt.Fprintf(w, "%d\t%d\t%s\n", arc.Dependent+1, (arc.Head+1)%(len(s)+1), s[arc.Dependent].Text)
	}
	fmt.Fprintln(w)
}

func runParse(cmd *commander.Command, args []string) error {
	m, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	in := io.Reader(os.Stdin)
	if inputFile != "" && inputFile != "-" {
		f, err := os.Open(inputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	sentences, err := readSentences(m, in)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	pool, err := batch.NewPool(m, m, cfg, workers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Progress is only drawn when the trees go to a file
	var progress func(int)
	if outputFile != "" && len(sentences) > 0 {
		uiprogress.Start()
		bar := uiprogress.AddBar(len(sentences))
		bar.AppendCompleted()
		bar.PrependElapsed()
		progress = func(done int) { bar.Set(done) }
		defer uiprogress.Stop()
	}

	results, err := pool.ParseAll(ctx, sentences, progress)
	parsed := 0
	for i, r := range results {
		if r.Parsed {
			parsed++
		}
		writeResult(out, sentences[i], r, showDeps)
	}
	logger.Info("parsed",
		zap.Int("sentences", len(sentences)),
		zap.Int("parsed", parsed),
		zap.Int("workers", pool.Size()))
	return err
}

func parseCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runParse,
		UsageLine: "parse <options>",
		Short:     "parses a file of sentences, one per line",
		Long: `
parses a file of sentences, one per line, printing one bracketed tree per line

	$ ./lexparse parse -m <model> [-i <input>] [-o <output>] [-deps] [-j <workers>]

Tokens are separated by whitespace and may carry a gold tag, like dog/NN.
`,
		Flag: *flag.NewFlagSet("parse", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&modelFile, "m", "", "Model file, text or compiled (.db)")
	cmd.Flag.StringVar(&inputFile, "i", "-", "Input file, - for stdin")
	cmd.Flag.StringVar(&outputFile, "o", "", "Output file, stdout when empty")
	cmd.Flag.BoolVar(&showDeps, "deps", false, "Print the dependency arcs after each tree")
	cmd.Flag.IntVar(&workers, "j", 0, "Concurrent parsers; 0 = all CPUs")
	return cmd
}
