package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/PaddyThePaddy/crlf/pkg/util"
)

// Run is the library entry point: it validates opts, then measures or converts
// every selected file and returns the report. See Engine.Run for error semantics.
func Run(ctx context.Context, opts Options) (Report, error) {
	if err := ValidateOptions(&opts); err != nil {
		return Report{}, err
	}
	logger := slog.New(opts.Logger)
	logger.Debug("Options validated",
		slog.String("action", string(opts.Action)),
		slog.String("inputPath", opts.InputPath),
		slog.String("pattern", opts.Pattern),
		slog.String("sourceMode", string(opts.SourceMode)))

	engine, err := NewEngine(ctx, opts)
	if err != nil {
		return Report{}, err
	}
	return engine.Run()
}

// ValidateOptions fills zero-valued enums with their defaults, makes InputPath
// absolute and rejects anything a run cannot start with.
func ValidateOptions(opts *Options) error {
	if opts.Logger == nil {
		return fmt.Errorf("%w: Logger implementation cannot be nil", ErrConfigValidation)
	}
	if !slices.Contains(Actions, opts.Action) {
		return fmt.Errorf("%w: invalid action %q", ErrConfigValidation, opts.Action)
	}
	if opts.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency cannot be negative (%d)", ErrConfigValidation, opts.Concurrency)
	}

	if opts.InputPath == "" {
		opts.InputPath = DefaultInputPath
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve input path '%s': %w", ErrConfigValidation, opts.InputPath, err)
	}
	info, err := os.Stat(absInput)
	if err != nil {
		return fmt.Errorf("%w: cannot access input path '%s': %w", ErrConfigValidation, absInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: input path '%s' is not a directory", ErrConfigValidation, absInput)
	}
	opts.InputPath = absInput

	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if !util.ValidatePattern(opts.Pattern) {
		return fmt.Errorf("%w: invalid pattern %q", ErrConfigValidation, opts.Pattern)
	}

	if opts.SourceMode == "" {
		opts.SourceMode = DefaultSourceMode
	}
	if opts.OnErrorMode == "" {
		opts.OnErrorMode = DefaultOnErrorMode
	}
	if opts.BinaryMode == "" {
		opts.BinaryMode = DefaultBinaryMode
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = DefaultOutputFormat
	}
	if err := checkEnum("sourceMode", opts.SourceMode, []SourceMode{SourceGlob, SourceGit}); err != nil {
		return err
	}
	if err := checkEnum("onError", opts.OnErrorMode, []OnErrorMode{OnErrorContinue, OnErrorStop}); err != nil {
		return err
	}
	if err := checkEnum("binaryMode", opts.BinaryMode, []BinaryMode{BinarySkip, BinaryProcess, BinaryError}); err != nil {
		return err
	}
	if err := checkEnum("outputFormat", opts.OutputFormat, []OutputFormat{OutputFormatText, OutputFormatJSON, OutputFormatYAML}); err != nil {
		return err
	}
	if opts.SourceMode == SourceGit && opts.FileLister == nil {
		return fmt.Errorf("%w: git source mode requires a FileLister", ErrConfigValidation)
	}
	if opts.CacheEnabled && opts.CacheFilePath == "" {
		opts.CacheFilePath = filepath.Join(opts.InputPath, CacheFileName)
	}
	return nil
}

func checkEnum[T ~string](key string, value T, allowed []T) error {
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("%w: invalid %s %q (expected one of %v)", ErrConfigValidation, key, value, allowed)
	}
	return nil
}
