package converter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/converter/filetype"
	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
)

// FileProcessor measures or converts a single file.
// One instance is shared by all workers; it holds no per-file state.
type FileProcessor struct {
	opts         *Options
	logger       *slog.Logger
	cacheManager CacheManager
	detector     filetype.Detector
	configHash   string
}

// NewFileProcessor creates a new FileProcessor. It is the default ProcessorFactory.
func NewFileProcessor(opts *Options, loggerHandler slog.Handler, cacheMgr CacheManager, detector filetype.Detector) Processor {
	logger := slog.New(loggerHandler).With(slog.String("component", "processor"))
	if cacheMgr == nil {
		cacheMgr = &NoOpCacheManager{}
	}
	if detector == nil {
		detector = filetype.NewEnryDetector()
	}
	return &FileProcessor{
		opts:         opts,
		logger:       logger,
		cacheManager: cacheMgr,
		detector:     detector,
		configHash:   calculateConfigHash(opts, logger),
	}
}

// ProcessFile runs the pipeline for absFilePath and returns a FileResult,
// SkippedInfo or ErrorInfo together with the final status.
func (p *FileProcessor) ProcessFile(ctx context.Context, absFilePath string) (interface{}, Status, error) {
	startTime := time.Now()
	relPath := p.relativePath(absFilePath)
	logger := p.logger.With(slog.String("path", relPath))

	fail := func(err error) (interface{}, Status, error) {
		logger.Debug("File processing failed", slog.String("error", err.Error()))
		return ErrorInfo{Path: relPath, Error: err.Error()}, StatusFailed, err
	}
	skip := func(reason, details string) (interface{}, Status, error) {
		logger.Debug("File skipped", slog.String("reason", reason))
		return SkippedInfo{Path: relPath, Reason: reason, Details: details}, StatusSkipped, nil
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	info, err := os.Lstat(absFilePath)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrStatFailed, err))
	}
	if !info.Mode().IsRegular() {
		return skip(SkipReasonNotRegular, fmt.Sprintf("file mode %s", info.Mode().Type()))
	}
	if p.opts.SkipVendor && p.detector.IsVendor(relPath) {
		return skip(SkipReasonVendored, "vendored or third-party path")
	}

	measureOnly := !p.opts.Action.IsConversion()
	if measureOnly {
		if stats, hit := p.cacheManager.Check(relPath, info.Size(), info.ModTime(), p.configHash); hit {
			return p.fileResult(relPath, StatusCached, stats, info.Size(), false, startTime), StatusCached, nil
		}
	}

	file, err := os.Open(absFilePath)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrReadFailed, err))
	}
	defer file.Close()

	sniff := make([]byte, filetype.SniffLen)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fail(fmt.Errorf("%w: %w", ErrReadFailed, err))
	}
	sniff = sniff[:n]
	if p.detector.IsBinary(sniff) {
		switch p.opts.BinaryMode {
		case BinaryError:
			return fail(fmt.Errorf("%w: %s", ErrBinaryFile, relPath))
		case BinaryProcess:
			logger.Debug("Processing binary file as requested")
		default:
			return skip(SkipReasonBinary, "binary content detected")
		}
	}
	content := io.MultiReader(bytes.NewReader(sniff), file)

	if measureOnly {
		stats, err := lineending.Measure(content)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", ErrReadFailed, err))
		}
		if err := p.cacheManager.Update(relPath, info.Size(), info.ModTime(), p.configHash, stats); err != nil {
			logger.Warn("Failed to update cache entry", slog.String("error", err.Error()))
		}
		return p.fileResult(relPath, StatusSuccess, stats, info.Size(), false, startTime), StatusSuccess, nil
	}

	target, _ := p.opts.Action.Target()
	original, err := io.ReadAll(content)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrReadFailed, err))
	}
	// Close before the rename below replaces the file.
	_ = file.Close()

	stats := lineending.MeasureBytes(original)
	converted, err := lineending.Convert(bytes.NewReader(original), target)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrReadFailed, err))
	}
	if bytes.Equal(original, converted) {
		return p.fileResult(relPath, StatusUnchanged, stats, info.Size(), false, startTime), StatusUnchanged, nil
	}
	if p.opts.DryRun {
		logger.Debug("Dry run, not writing converted file")
	} else if err := writeFileAtomic(absFilePath, converted, info.Mode().Perm()); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrWriteFailed, err))
	}
	return p.fileResult(relPath, StatusSuccess, stats, info.Size(), true, startTime), StatusSuccess, nil
}

func (p *FileProcessor) relativePath(absFilePath string) string {
	relPath, err := filepath.Rel(p.opts.InputPath, absFilePath)
	if err != nil || relPath == "." {
		relPath = filepath.Base(absFilePath)
	}
	return filepath.ToSlash(relPath)
}

func (p *FileProcessor) fileResult(relPath string, status Status, stats lineending.Stats, size int64, changed bool, startTime time.Time) FileResult {
	result := FileResult{
		Path:       relPath,
		Status:     status,
		CRLF:       stats.CRLF,
		LF:         stats.LF,
		Ending:     EndingLabel(stats),
		Changed:    changed,
		SizeBytes:  size,
		DurationMs: time.Since(startTime).Milliseconds(),
	}
	if target, ok := p.opts.Action.Target(); ok {
		result.Target = target.String()
	}
	return result
}

// writeFileAtomic replaces path with data through a temp file in the same directory.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".crlf-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// calculateConfigHash digests the options that change a measurement result.
func calculateConfigHash(opts *Options, logger *slog.Logger) string {
	hasher := sha256.New()
	addToHash := func(h hash.Hash, key, value string) {
		h.Write([]byte(key + ":" + value + ";"))
	}

	addToHash(hasher, "Action", string(opts.Action))
	addToHash(hasher, "BinaryMode", string(opts.BinaryMode))
	addToHash(hasher, "SkipVendor", fmt.Sprintf("%t", opts.SkipVendor))
	appVersion := opts.AppVersion
	if appVersion == "" {
		appVersion = "dev"
	}
	addToHash(hasher, "AppVersion", strings.TrimSpace(appVersion))

	configHash := fmt.Sprintf("%x", hasher.Sum(nil))
	logger.Debug("Calculated config hash", slog.String("hash", configHash))
	return configHash
}
