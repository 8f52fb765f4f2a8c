// Package config loads the bulkscan CLI configuration from YAML.
//
// Example file:
//
//	compression: auto     # none, zstd, s2, lz4, gzip or auto
//	max_errors: 10000
//	target_status: 400
//	distinct: false
//	fast_path: true
//	initial_buffer_size: 4096
//	max_buffer_size: 67108864
//	log_level: info
//
// Missing keys keep their defaults; unknown keys are rejected.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/format"
	"github.com/arloliu/bulkscan/internal/pool"
	"github.com/arloliu/bulkscan/scanner"
)

// CompressionAuto selects the compression format from the stream's magic number.
const CompressionAuto = "auto"

// DefaultMaxErrors is the failed-id capacity when none is configured.
const DefaultMaxErrors = 10_000

// Config holds the CLI settings.
type Config struct {
	Compression       string     `yaml:"compression"`
	MaxErrors         int        `yaml:"max_errors"`
	TargetStatus      int        `yaml:"target_status"`
	Distinct          bool       `yaml:"distinct"`
	FastPath          bool       `yaml:"fast_path"`
	InitialBufferSize int        `yaml:"initial_buffer_size"`
	MaxBufferSize     int        `yaml:"max_buffer_size"`
	LogLevel          slog.Level `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Compression:       CompressionAuto,
		MaxErrors:         DefaultMaxErrors,
		TargetStatus:      scanner.DefaultTargetStatus,
		FastPath:          true,
		InitialBufferSize: pool.ScanBufferDefaultSize,
		MaxBufferSize:     scanner.DefaultMaxBufferSize,
		LogLevel:          slog.LevelInfo,
	}
}

// Load reads the YAML file at path on top of the defaults and validates it.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads YAML from r on top of the defaults and validates the result.
// An empty document yields the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every setting and reports the first invalid one.
func (c Config) Validate() error {
	if c.Compression != CompressionAuto {
		if _, err := format.ParseCompressionType(c.Compression); err != nil {
			return err
		}
	}
	if c.MaxErrors < 0 {
		return fmt.Errorf("%w: max_errors must not be negative, got %d", errs.ErrInvalidOption, c.MaxErrors)
	}

	// the parser checks the rest
	_, err := scanner.NewParser(c.ParserOptions()...)

	return err
}

// AutoDetect reports whether the compression format is chosen per input.
func (c Config) AutoDetect() bool {
	return c.Compression == CompressionAuto
}

// CompressionType returns the configured format. It must not be called when
// AutoDetect is true.
func (c Config) CompressionType() (format.CompressionType, error) {
	return format.ParseCompressionType(c.Compression)
}

// ParserOptions translates the configuration into scanner options.
func (c Config) ParserOptions() []scanner.ParserOption {
	opts := []scanner.ParserOption{
		scanner.WithTargetStatus(c.TargetStatus),
		scanner.WithFastPath(c.FastPath),
		scanner.WithInitialBufferSize(c.InitialBufferSize),
		scanner.WithMaxBufferSize(c.MaxBufferSize),
	}
	if c.Distinct {
		opts = append(opts, scanner.WithDistinctIDs())
	}

	return opts
}

// Marshal renders the configuration as YAML, for the CLI's -print-config flag.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
