package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/ling0322/lexparse"
	"github.com/ling0322/lexparse/model"
)

// completer suggests the words of the model for the word under the cursor
func completer(m *model.Model) func(in prompt.Document) []prompt.Suggest {
	return func(in prompt.Document) []prompt.Suggest {
		word := in.GetWordBeforeCursor()
		if word == "" || strings.Contains(word, "/") {
			return []prompt.Suggest{}
		}
		s := []prompt.Suggest{}
		for _, w := range m.Words.Symbols {
			if strings.HasPrefix(w, word) && w != model.UnknownWord {
				s = append(s, prompt.Suggest{Text: w})
			}
		}
		return s
	}
}

func runShell(cmd *commander.Command, args []string) error {
	m, cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	parser, err := lexparse.NewParser(m, m, cfg)
	if err != nil {
		return err
	}

	fmt.Println("Type a sentence, tokens may carry a gold tag like dog/NN. 🔧 quit")
	history := []string{}
	for {
		in := prompt.Input("> ", completer(m),
			prompt.OptionTitle("lexparse shell"),
			prompt.OptionPrefixTextColor(prompt.Yellow),
			prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
			prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
			prompt.OptionSuggestionBGColor(prompt.DarkGray),
			prompt.OptionMaxSuggestion(12),
			prompt.OptionHistory(history),
		)
		in = strings.TrimSpace(in)
		if in == "quit" {
			return nil
		}
		if in == "" {
			continue
		}
		history = append(history, in)

		sentence, err := m.ParseSentence(in)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		ok, err := parser.Parse(context.Background(), sentence)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if !ok {
			fmt.Println("(NOPARSE)")
			continue
		}
		fmt.Println(parser.BestParse().String())
		fmt.Printf("score: %.4f\n", parser.BestScore())
		if arcs, ok := parser.BestDependencies(); ok {
			words := sentence.Words()
			for _, arc := range arcs {
				head := model.RootBin
				if arc.Head < len(words) {
					head = words[arc.Head]
				}
				fmt.Printf("  %s <- %s (%.4f)\n", head, words[arc.Dependent], arc.Score)
			}
		}
	}
}

func shellCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runShell,
		UsageLine: "shell <options>",
		Short:     "parses sentences interactively",
		Long: `
parses sentences typed at the prompt

	$ ./lexparse shell -m <model>
`,
		Flag: *flag.NewFlagSet("shell", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&modelFile, "m", "", "Model file, text or compiled (.db)")
	return cmd
}
