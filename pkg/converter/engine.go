package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/converter/cache"
	"github.com/PaddyThePaddy/crlf/pkg/converter/filetype"
)

// Engine runs one measure or convert pass over the selected files.
// The discoverer feeds a bounded channel drained by a fixed pool of workers;
// a single aggregator goroutine collects their results.
type Engine struct {
	opts              *Options
	logger            *slog.Logger
	hooks             Hooks
	cacheManager      CacheManager
	persistCache      bool
	processorFactory  ProcessorFactory
	discovererFactory DiscovererFactory
	processor         Processor
	aggregator        *reportAggregator
	ctx               context.Context
	cancelFunc        context.CancelFunc
	concurrency       int
	fatalOccurred     atomic.Bool
}

// NewEngine prepares an Engine from already validated options.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	var cacheMgr CacheManager = &NoOpCacheManager{}
	persistCache := false
	switch {
	case !opts.CacheEnabled:
		logger.Debug("Cache disabled")
	case opts.Action.IsConversion():
		logger.Debug("Cache only applies to measure, not used for conversion", slog.String("action", string(opts.Action)))
	default:
		if opts.CacheFilePath == "" {
			opts.CacheFilePath = filepath.Join(opts.InputPath, CacheFileName)
		}
		if opts.CacheManager != nil {
			cacheMgr = opts.CacheManager
			logger.Debug("Using provided CacheManager implementation")
		} else {
			cacheMgr = cache.NewFileCacheManager(opts.Logger, CacheSchemaVersion, opts.AppVersion, opts.CacheFormat)
		}
		if err := cacheMgr.Load(opts.CacheFilePath); err != nil {
			logger.Error("Cache file unusable, proceeding without cache", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
			cacheMgr = &NoOpCacheManager{}
		} else {
			persistCache = true
		}
	}
	opts.CacheManager = cacheMgr

	if opts.FileTypeDetector == nil {
		opts.FileTypeDetector = filetype.NewEnryDetector()
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		opts.Concurrency = concurrency
		logger.Debug("Concurrency auto-detected", "count", concurrency)
	}

	processorFactory := opts.ProcessorFactory
	if processorFactory == nil {
		processorFactory = NewFileProcessor
	}
	discovererFactory := opts.DiscovererFactory
	if discovererFactory == nil {
		discovererFactory = NewWalker
	}

	engineCtx, cancelFunc := context.WithCancel(ctx)
	return &Engine{
		opts:              &opts,
		logger:            logger,
		hooks:             opts.EventHooks,
		cacheManager:      cacheMgr,
		persistCache:      persistCache,
		processorFactory:  processorFactory,
		discovererFactory: discovererFactory,
		aggregator:        newReportAggregator(),
		ctx:               engineCtx,
		cancelFunc:        cancelFunc,
		concurrency:       concurrency,
	}, nil
}

// Run processes every discovered file and returns the aggregated report.
// The error is non-nil when the run was cancelled, discovery failed, or a
// file failed while OnErrorMode is "stop". Per-file failures under
// "continue" are only recorded in the report.
func (e *Engine) Run() (report Report, finalErr error) {
	startTime := time.Now()
	e.logger.Debug("Starting run",
		slog.String("action", string(e.opts.Action)),
		slog.Int("concurrency", e.concurrency),
		slog.Bool("cacheEnabled", e.persistCache),
		slog.Bool("dryRun", e.opts.DryRun))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic recovered during engine run", "panicValue", r)
			e.fatalOccurred.Store(true)
			finalErr = fmt.Errorf("panic during execution: %v", r)
		}
		e.cancelFunc()

		if e.persistCache {
			if err := e.cacheManager.Persist(e.opts.CacheFilePath); err != nil {
				e.logger.Error("Failed to persist cache index", slog.String("path", e.opts.CacheFilePath), slog.String("error", err.Error()))
			}
		}

		report = e.aggregator.getReport(e.opts, startTime, e.fatalOccurred.Load())
		e.logger.Debug("Run finished",
			slog.Duration("duration", time.Since(startTime)),
			slog.Int("files", len(report.Files)),
			slog.Int("converted", report.Summary.ConvertedCount),
			slog.Int("cached", report.Summary.CachedCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Int("errors", report.Summary.ErrorCount),
			slog.Bool("fatalError", report.Summary.FatalError))
		if hookErr := e.hooks.OnRunComplete(report); hookErr != nil {
			e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
	}()

	e.processor = e.processorFactory(e.opts, e.opts.Logger, e.cacheManager, e.opts.FileTypeDetector)

	workerChan := make(chan string, e.concurrency)
	resultsChan := make(chan interface{}, e.concurrency)

	discoverer, err := e.discovererFactory(e.opts, workerChan, e.opts.Logger)
	if err != nil {
		e.logger.Error("Failed to initialize file discovery", slog.String("error", err.Error()))
		e.fatalOccurred.Store(true)
		return Report{}, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	var wg sync.WaitGroup
	e.startWorkers(&wg, workerChan, resultsChan)

	aggregatorDone := make(chan struct{})
	go e.aggregateResults(resultsChan, aggregatorDone)

	walkErr := discoverer.StartWalk(e.ctx)
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
		e.fatalOccurred.Store(true)
		e.cancelFunc()
	}

	wg.Wait()
	close(resultsChan)
	<-aggregatorDone

	switch {
	case e.aggregator.getFirstFatalError() != nil:
		finalErr = fmt.Errorf("processing stopped: %w", e.aggregator.getFirstFatalError())
	case walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded):
		finalErr = walkErr
	case e.ctx.Err() != nil:
		e.logger.Info("Run cancelled", slog.String("reason", e.ctx.Err().Error()))
		e.fatalOccurred.Store(true)
		finalErr = e.ctx.Err()
	}
	return Report{}, finalErr
}

func (e *Engine) startWorkers(wg *sync.WaitGroup, workerChan <-chan string, resultsChan chan<- interface{}) {
	e.logger.Debug("Starting worker pool", "count", e.concurrency)
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.processFilesWorker(wg, i, workerChan, resultsChan)
	}
}

// processFilesWorker drains workerChan until it is closed. After cancellation
// remaining paths are drained without processing so the discoverer never blocks.
func (e *Engine) processFilesWorker(wg *sync.WaitGroup, workerID int, workerChan <-chan string, resultsChan chan<- interface{}) {
	wLogger := e.logger.With(slog.Int("workerID", workerID))
	defer wg.Done()

	for filePath := range workerChan {
		if e.ctx.Err() != nil {
			continue
		}
		e.processOne(wLogger, filePath, resultsChan)
	}
	wLogger.Debug("Worker shutting down")
}

func (e *Engine) processOne(wLogger *slog.Logger, filePath string, resultsChan chan<- interface{}) {
	relPath, err := filepath.Rel(e.opts.InputPath, filePath)
	if err != nil || relPath == "." {
		relPath = filepath.Base(filePath)
	}
	relPath = filepath.ToSlash(relPath)

	defer func() {
		if r := recover(); r != nil {
			wLogger.Error("Panic recovered in worker", "path", relPath, "panicValue", r)
			resultsChan <- ErrorInfo{Path: relPath, Error: fmt.Sprintf("panic: %v", r), IsFatal: true}
			e.fatalOccurred.Store(true)
			e.cancelFunc()
		}
	}()

	e.statusUpdate(relPath, StatusProcessing, "", 0)
	start := time.Now()
	result, status, err := e.processor.ProcessFile(e.ctx, filePath)
	duration := time.Since(start)

	if err != nil && e.ctx.Err() != nil && errors.Is(err, e.ctx.Err()) {
		wLogger.Debug("File abandoned after cancellation", "path", relPath)
		return
	}
	if err != nil {
		isFatal := e.opts.OnErrorMode == OnErrorStop
		errorInfo := ErrorInfo{Path: relPath, Error: err.Error()}
		if ei, ok := result.(ErrorInfo); ok {
			errorInfo = ei
		}
		errorInfo.IsFatal = isFatal
		resultsChan <- errorInfo
		e.statusUpdate(relPath, StatusFailed, err.Error(), duration)
		if isFatal && e.fatalOccurred.CompareAndSwap(false, true) {
			wLogger.Info("Stopping run after file error", "path", relPath, "error", err)
			e.cancelFunc()
		}
		return
	}

	switch r := result.(type) {
	case FileResult:
		resultsChan <- r
		e.statusUpdate(relPath, status, statusMessage(r), duration)
	case SkippedInfo:
		resultsChan <- r
		e.statusUpdate(relPath, StatusSkipped, r.Reason, duration)
	default:
		wLogger.Warn("Processor returned unexpected result", "path", relPath, "type", fmt.Sprintf("%T", result))
		resultsChan <- ErrorInfo{Path: relPath, Error: "internal error: processor returned no result"}
		e.statusUpdate(relPath, StatusFailed, "no result", duration)
	}
}

func statusMessage(r FileResult) string {
	msg := fmt.Sprintf("crlf: %d, lf: %d", r.CRLF, r.LF)
	if r.Target != "" && r.Changed {
		msg += " -> " + r.Target
	}
	return msg
}

func (e *Engine) statusUpdate(path string, status Status, message string, duration time.Duration) {
	if hookErr := e.hooks.OnFileStatusUpdate(path, status, message, duration); hookErr != nil {
		e.logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", path), slog.String("error", hookErr.Error()))
	}
}

func (e *Engine) aggregateResults(resultsChan <-chan interface{}, done chan<- struct{}) {
	defer close(done)
	for result := range resultsChan {
		switch r := result.(type) {
		case FileResult:
			e.aggregator.addFile(r)
		case SkippedInfo:
			e.aggregator.addSkipped(r)
		case ErrorInfo:
			e.aggregator.addError(r)
		default:
			e.logger.Warn("Aggregator received unknown result type", "type", fmt.Sprintf("%T", result))
		}
	}
}

// reportAggregator collects results during the run.
type reportAggregator struct {
	mu      sync.Mutex
	files   []FileResult
	skipped []SkippedInfo
	errors  []ErrorInfo
}

func newReportAggregator() *reportAggregator {
	return &reportAggregator{
		files:   make([]FileResult, 0, 512),
		skipped: make([]SkippedInfo, 0, 64),
		errors:  make([]ErrorInfo, 0, 16),
	}
}

func (a *reportAggregator) addFile(info FileResult) {
	a.mu.Lock()
	a.files = append(a.files, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	a.skipped = append(a.skipped, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addError(info ErrorInfo) {
	a.mu.Lock()
	a.errors = append(a.errors, info)
	a.mu.Unlock()
}

// getFirstFatalError returns the first recorded error marked as fatal.
func (a *reportAggregator) getFirstFatalError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.errors {
		if e.IsFatal {
			return fmt.Errorf("fatal error processing file '%s': %s", e.Path, e.Error)
		}
	}
	return nil
}

// getReport compiles the final Report with every list sorted by path.
func (a *reportAggregator) getReport(opts *Options, startTime time.Time, fatalOccurred bool) Report {
	a.mu.Lock()
	files := append([]FileResult(nil), a.files...)
	skipped := append([]SkippedInfo(nil), a.skipped...)
	errs := append([]ErrorInfo(nil), a.errors...)
	a.mu.Unlock()

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	sort.Slice(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })

	summary := ReportSummary{
		SchemaVersion:   ReportSchemaVersion,
		Action:          opts.Action,
		InputPath:       opts.InputPath,
		Pattern:         opts.Pattern,
		SourceMode:      string(opts.SourceMode),
		ProfileUsed:     opts.ProfileName,
		ConfigFilePath:  opts.ConfigFilePath,
		TotalFiles:      len(files) + len(skipped) + len(errs),
		SkippedCount:    len(skipped),
		ErrorCount:      len(errs),
		FatalError:      fatalOccurred,
		DryRun:          opts.DryRun,
		CacheEnabled:    opts.CacheEnabled,
		Concurrency:     opts.Concurrency,
		DurationSeconds: time.Since(startTime).Seconds(),
		Timestamp:       time.Now().UTC(),
	}
	for _, f := range files {
		switch f.Ending {
		case EndingCRLF:
			summary.CRLFFiles++
		case EndingLF:
			summary.LFFiles++
		case EndingMixed:
			summary.MixedFiles++
		default:
			summary.NoEndingFiles++
		}
		switch {
		case f.Changed:
			summary.ConvertedCount++
		case f.Status == StatusUnchanged:
			summary.UnchangedCount++
		case f.Status == StatusCached:
			summary.CachedCount++
		}
	}

	return Report{Summary: summary, Files: files, Skipped: skipped, Errors: errs}
}
