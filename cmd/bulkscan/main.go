// Command bulkscan reports the failed entries of a bulk write response.
//
// Usage:
//
//	bulkscan [options] [response.json]
//
// The response is read from the file argument, or from stdin when the
// argument is missing or "-". Failed identifiers are printed one per line;
// a response without failures prints "ok".
//
// Exit codes: 0 when the bulk request succeeded, 2 when failed entries were
// found, 1 on any error.
//
// With -encode the input is compressed to stdout instead, which is handy for
// archiving captured responses:
//
//	bulkscan -encode zstd response.json > response.json.zst
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	json "github.com/goccy/go-json"

	"github.com/arloliu/bulkscan"
	"github.com/arloliu/bulkscan/compress"
	"github.com/arloliu/bulkscan/config"
	"github.com/arloliu/bulkscan/format"
	"github.com/arloliu/bulkscan/scanner"
	"github.com/arloliu/bulkscan/source"
)

const (
	exitOK       = 0
	exitError    = 1
	exitFailures = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := runWithArgs(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	configPath    string
	compression   string
	maxErrors     int
	status        int
	distinct      bool
	noFastPath    bool
	bufferSize    int
	maxBufferSize int
	verbose       bool
	jsonOutput    bool
	encode        string
	printConfig   bool
}

// result is the -json output.
type result struct {
	Success bool     `json:"success"`
	Failed  int      `json:"failed"`
	IDs     []string `json:"ids"`
}

func runWithArgs(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bulkscan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f flags
	fs.StringVar(&f.configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&f.compression, "compression", config.CompressionAuto, "input compression: auto, none, zstd, s2, lz4 or gzip")
	fs.IntVar(&f.maxErrors, "max-errors", config.DefaultMaxErrors, "maximum number of failed ids to collect")
	fs.IntVar(&f.status, "status", scanner.DefaultTargetStatus, "entry status code that marks a failure")
	fs.BoolVar(&f.distinct, "distinct", false, "report each failed id once")
	fs.BoolVar(&f.noFastPath, "no-fast-path", false, `disable the "errors":false prefix check`)
	fs.IntVar(&f.bufferSize, "buffer-size", 0, "initial scan buffer size in bytes")
	fs.IntVar(&f.maxBufferSize, "max-buffer-size", 0, "maximum scan buffer size in bytes")
	fs.BoolVar(&f.verbose, "v", false, "log debug diagnostics to stderr")
	fs.BoolVar(&f.jsonOutput, "json", false, "print the outcome as JSON")
	fs.StringVar(&f.encode, "encode", "", "compress the input to stdout with the given format instead of scanning")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: bulkscan [options] [response.json]\n\n")
		fmt.Fprintln(stderr, "Reports the failed entries of a bulk write response.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "error: at most one input file is accepted")
		fs.Usage()

		return exitError
	}

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if f.printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			logger.Error("render config", "error", err)
			return exitError
		}
		_, _ = stdout.Write(data)

		return exitOK
	}

	in, name, closeInput, err := openInput(fs.Arg(0), stdin)
	if err != nil {
		logger.Error("open input", "error", err)
		return exitError
	}
	defer closeInput()

	counter := source.NewCountingReader(source.NewContextReader(ctx, in))

	if f.encode != "" {
		return encode(logger, counter, stdout, f.encode)
	}

	return scan(ctx, logger, counter, name, stdout, cfg, f.jsonOutput)
}

// loadConfig reads the configuration file and applies the flags that were
// set explicitly on top of it.
func loadConfig(fs *flag.FlagSet, f *flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "compression":
			cfg.Compression = f.compression
		case "max-errors":
			cfg.MaxErrors = f.maxErrors
		case "status":
			cfg.TargetStatus = f.status
		case "distinct":
			cfg.Distinct = f.distinct
		case "no-fast-path":
			cfg.FastPath = !f.noFastPath
		case "buffer-size":
			cfg.InitialBufferSize = f.bufferSize
		case "max-buffer-size":
			cfg.MaxBufferSize = f.maxBufferSize
		}
	})
	if f.verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	return cfg, cfg.Validate()
}

func openInput(path string, stdin io.Reader) (io.Reader, string, func(), error) {
	if path == "" || path == "-" {
		return stdin, "stdin", func() {}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, "", nil, err
	}

	return file, path, func() { _ = file.Close() }, nil
}

func scan(ctx context.Context, logger *slog.Logger, in *source.CountingReader, name string, stdout io.Writer, cfg config.Config, jsonOutput bool) int {
	opts := append(cfg.ParserOptions(), scanner.WithLogger(logger))

	start := time.Now()
	var (
		outcome bulkscan.Outcome
		err     error
	)
	if cfg.AutoDetect() {
		outcome, err = bulkscan.ParseAuto(ctx, in, cfg.MaxErrors, opts...)
	} else {
		ct, ctErr := cfg.CompressionType()
		if ctErr != nil {
			logger.Error("compression", "error", ctErr)
			return exitError
		}
		outcome, err = bulkscan.ParseCompressed(ctx, in, ct, cfg.MaxErrors, opts...)
	}
	if err != nil {
		logger.Error("scan failed", "input", name, "error", err, "bytes_read", in.Bytes())
		return exitError
	}

	logger.Debug("scan complete",
		"input", name,
		"success", outcome.Success,
		"failed", len(outcome.IDs),
		"reads", in.Reads(),
		"bytes_read", in.Bytes(),
		"elapsed", time.Since(start),
	)

	if err := writeOutcome(stdout, outcome, jsonOutput); err != nil {
		logger.Error("write output", "error", err)
		return exitError
	}
	if !outcome.Success {
		return exitFailures
	}

	return exitOK
}

func writeOutcome(w io.Writer, outcome bulkscan.Outcome, jsonOutput bool) error {
	if jsonOutput {
		res := result{Success: outcome.Success, Failed: len(outcome.IDs), IDs: outcome.IDs}
		if res.IDs == nil {
			res.IDs = []string{}
		}

		return json.NewEncoder(w).Encode(res)
	}

	if outcome.Success {
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
	for _, id := range outcome.IDs {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}

	return nil
}

func encode(logger *slog.Logger, in *source.CountingReader, stdout io.Writer, name string) int {
	ct, err := format.ParseCompressionType(name)
	if err != nil {
		logger.Error("encode", "error", err)
		return exitError
	}

	out := &compress.CountingWriter{W: stdout}
	w, err := compress.NewWriter(out, ct)
	if err != nil {
		logger.Error("encode", "error", err)
		return exitError
	}
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		if errors.Is(err, context.Canceled) {
			logger.Warn("encode interrupted")
		} else {
			logger.Error("encode", "error", err)
		}

		return exitError
	}
	if err := w.Close(); err != nil {
		logger.Error("encode", "error", err)
		return exitError
	}

	stats := compress.CompressionStats{
		Algorithm:      ct,
		OriginalSize:   in.Bytes(),
		CompressedSize: out.N,
	}
	logger.Info("encoded",
		"algorithm", stats.Algorithm.String(),
		"original_bytes", stats.OriginalSize,
		"compressed_bytes", stats.CompressedSize,
		"ratio", fmt.Sprintf("%.3f", stats.CompressionRatio()),
		"savings_pct", fmt.Sprintf("%.1f", stats.SpaceSavings()),
	)

	return exitOK
}
