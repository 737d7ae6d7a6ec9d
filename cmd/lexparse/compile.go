package main

import (
	"log"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"

	"github.com/ling0322/lexparse/model"
)

func runCompile(cmd *commander.Command, args []string) error {
	if modelFile == "" || compiledFile == "" {
		cmd.Usage()
		return errors.New("both -m and -o are required")
	}
	m, err := model.LoadFile(modelFile)
	if err != nil {
		return err
	}
	if err := model.SaveSQLite(compiledFile, m); err != nil {
		return err
	}
	log.Printf("compiled %d words, %d tags, %d bins into %s",
		m.Words.Len(), m.Tags.Len(), m.NumTagBins(), compiledFile)
	return nil
}

func compileCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runCompile,
		UsageLine: "compile <options>",
		Short:     "compiles a text model into sqlite",
		Long: `
compiles a text model into a sqlite database loadable by every other command

	$ ./lexparse compile -m <text model> -o <model.db>
`,
		Flag: *flag.NewFlagSet("compile", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&modelFile, "m", "", "Text model file")
	cmd.Flag.StringVar(&compiledFile, "o", "", "Output sqlite file")
	return cmd
}
