package converter

import (
	"context"
	"log/slog"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/converter/filetype"
	"github.com/PaddyThePaddy/crlf/pkg/converter/git"
	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
)

// Hooks defines callbacks for status updates during a run.
// Implementations MUST be thread-safe as methods may be called concurrently.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// CacheManager stores measurements so unchanged files are not read again.
// Check and Update MUST be safe for concurrent use.
type CacheManager interface {
	Load(cachePath string) error
	Check(filePath string, size int64, modTime time.Time, configHash string) (lineending.Stats, bool)
	Update(filePath string, size int64, modTime time.Time, configHash string, stats lineending.Stats) error
	Persist(cachePath string) error
}

// NoOpCacheManager is used when caching is disabled. Every check misses.
type NoOpCacheManager struct{}

func (c *NoOpCacheManager) Load(cachePath string) error { return nil }

func (c *NoOpCacheManager) Check(filePath string, size int64, modTime time.Time, configHash string) (lineending.Stats, bool) {
	return lineending.Stats{}, false
}

func (c *NoOpCacheManager) Update(filePath string, size int64, modTime time.Time, configHash string, stats lineending.Stats) error {
	return nil
}

func (c *NoOpCacheManager) Persist(cachePath string) error { return nil }

// Processor handles a single file. The result is a FileResult, SkippedInfo or ErrorInfo.
type Processor interface {
	ProcessFile(ctx context.Context, absFilePath string) (result interface{}, status Status, err error)
}

// Discoverer produces candidate file paths on the channel it was created with
// and closes that channel when done.
type Discoverer interface {
	StartWalk(ctx context.Context) error
}

// ProcessorFactory creates the Processor shared by all workers of a run.
type ProcessorFactory func(opts *Options, loggerHandler slog.Handler, cacheMgr CacheManager, detector filetype.Detector) Processor

// DiscovererFactory creates the Discoverer feeding workerChan.
type DiscovererFactory func(opts *Options, workerChan chan<- string, loggerHandler slog.Handler) (Discoverer, error)

// Options holds all configuration for a Run.
type Options struct {
	// --- Selection ---
	Action         Action     `mapstructure:"-"`
	Pattern        string     `mapstructure:"pattern"`
	InputPath      string     `mapstructure:"inputPath"`
	SourceMode     SourceMode `mapstructure:"sourceMode"`
	IgnorePatterns []string   `mapstructure:"ignore"`
	SkipVendor     bool       `mapstructure:"skipVendor"`
	BinaryMode     BinaryMode `mapstructure:"binaryMode"`

	// --- Behavior & Control ---
	AppVersion     string       `mapstructure:"-"` // used for cache compatibility
	ConfigFilePath string       `mapstructure:"-"`
	ProfileName    string       `mapstructure:"-"`
	DryRun         bool         `mapstructure:"dryRun"`
	Verbose        bool         `mapstructure:"verbose"`
	TuiEnabled     bool         `mapstructure:"tuiEnabled"`
	OnErrorMode    OnErrorMode  `mapstructure:"onError"`
	OutputFormat   OutputFormat `mapstructure:"outputFormat"`

	// --- Performance & Caching ---
	Concurrency   int    `mapstructure:"concurrency"` // 0 = runtime.NumCPU()
	CacheEnabled  bool   `mapstructure:"cache"`
	CacheFilePath string `mapstructure:"cacheFile"`
	CacheFormat   string `mapstructure:"cacheFormat"`

	// --- Injected Dependencies & Internal State ---
	EventHooks            Hooks             `mapstructure:"-"`
	Logger                slog.Handler      `mapstructure:"-"` // Required
	FileLister            git.FileLister    `mapstructure:"-"` // Required for SourceGit
	FileTypeDetector      filetype.Detector `mapstructure:"-"`
	CacheManager          CacheManager      `mapstructure:"-"`
	ProcessorFactory      ProcessorFactory  `mapstructure:"-"`
	DiscovererFactory     DiscovererFactory `mapstructure:"-"`
	DispatchWarnThreshold time.Duration     `mapstructure:"-"` // slow worker dispatch logging
}
