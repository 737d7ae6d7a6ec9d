package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ling0322/lexparse"
	"github.com/ling0322/lexparse/model"
)

var (
	// shared options
	modelFile  string
	configFile string
	verbose    bool
	workers    int

	// parse options
	inputFile  string
	outputFile string
	showDeps   bool

	// serve options
	addr    string
	timeout int

	// compile options
	compiledFile string
)

func allCommands() *commander.Command {
	cmd := &commander.Command{
		UsageLine: "lexparse <command> [options]",
		Short:     "exhaustive lexicalized dependency parser",
		Subcommands: []*commander.Command{
			parseCmd(),
			serveCmd(),
			shellCmd(),
			compileCmd(),
		},
		Flag: *flag.NewFlagSet("lexparse", flag.ExitOnError),
	}
	for _, sub := range cmd.Subcommands {
		if sub.Name() == "compile" {
			continue
		}
		sub.Flag.StringVar(&configFile, "c", "", "YAML parser config")
		sub.Flag.BoolVar(&verbose, "v", false, "Verbose development logging")
	}
	return cmd
}

// newLogger returns a development logger when verbose, a production one
// otherwise
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadModel reads a compiled sqlite model by its extension, a text model
// otherwise
func loadModel(path string) (*model.Model, error) {
	if path == "" {
		return nil, errors.New("model file (-m) is required")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return model.LoadSQLite(path)
	}
	return model.LoadFile(path)
}

// setup loads the model and the parser config shared by the parsing commands
func setup() (*model.Model, lexparse.Config, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, lexparse.Config{}, nil, err
	}

	cfg := lexparse.DefaultConfig()
	if configFile != "" {
		if cfg, err = lexparse.LoadConfig(configFile); err != nil {
			return nil, cfg, nil, err
		}
	}

	m, err := loadModel(modelFile)
	if err != nil {
		return nil, cfg, nil, err
	}
	cfg.BoundaryWord = m.BoundaryWord()
	cfg.Debug = cfg.Debug || verbose
	cfg.Logger = logger

	logger.Info("loaded model",
		zap.String("path", modelFile),
		zap.Int("words", m.Words.Len()),
		zap.Int("tags", m.Tags.Len()),
		zap.Int("bins", m.NumTagBins()))
	return m, cfg, logger, nil
}

func main() {
	cmd := allCommands()
	if err := cmd.Dispatch(os.Args[1:]); err != nil {
		fmt.Printf("**err**: %v\n", err)
		os.Exit(1)
	}
}
