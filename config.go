package lexparse

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxLength     = 80
	DefaultMaxTableBytes = 2 << 30
	DefaultRootLabel     = "ROOT"
)

// Config controls a Parser. The zero value is not usable, start from
// DefaultConfig
type Config struct {
	// Sentences longer than MaxLength are refused before allocation
	MaxLength int `yaml:"max_length"`

	// Hard ceiling on the bytes taken by the score tables of one sentence
	MaxTableBytes uint64 `yaml:"max_table_bytes"`

	// Also compute summed (log-sum-exp) inside scores
	SumInside bool `yaml:"sum_inside"`

	// Label of the node wrapping every extracted tree
	RootLabel string `yaml:"root_label"`

	// Word id passed to the grammar for the boundary token
	BoundaryWord int `yaml:"boundary_word"`

	// Dump every chart tier at debug level
	Debug bool `yaml:"debug"`

	Logger *zap.Logger `yaml:"-"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() Config {
	return Config{
		MaxLength:     DefaultMaxLength,
		MaxTableBytes: DefaultMaxTableBytes,
		RootLabel:     DefaultRootLabel,
		BoundaryWord:  -1,
	}
}

// Validate checks the limits of the config
func (c Config) Validate() error {
	if c.MaxLength <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "max_length must be positive, got %d", c.MaxLength)
	}
	if c.MaxTableBytes == 0 {
		return errors.Wrap(ErrInvalidConfig, "max_table_bytes must be positive")
	}
	return nil
}

// ParseConfig reads a YAML document on top of DefaultConfig
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "ParseConfig")
	}
	if cfg.RootLabel == "" {
		cfg.RootLabel = DefaultRootLabel
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads a YAML config file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), errors.Wrapf(err, "LoadConfig: %s", path)
	}
	return ParseConfig(data)
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
