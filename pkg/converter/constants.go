package converter

// Defaults used when loading configuration.
const (
	// DefaultPattern selects every file below the input directory.
	DefaultPattern = "**/*"
	// DefaultInputPath is the directory patterns are resolved against.
	DefaultInputPath = "."
	// DefaultConcurrency means runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultCacheEnabled is the default state of the measurement cache.
	DefaultCacheEnabled = false
	// DefaultCacheFormat is the default cache serialization format.
	DefaultCacheFormat = "gob"
	// DefaultTuiEnabled is the default state for the Terminal UI.
	DefaultTuiEnabled = false
	DefaultOnErrorMode  = OnErrorContinue
	DefaultBinaryMode   = BinarySkip
	DefaultSkipVendor   = false
	DefaultOutputFormat = OutputFormatText
	DefaultSourceMode   = SourceGlob
	DefaultDryRun       = false
	DefaultVerbose      = false
)

// IgnoreFileName is looked up from the input directory upwards for ignore patterns.
const IgnoreFileName = ".crlfignore"

// Cache file constants.
const (
	// CacheFileName is the default name of the cache index, created in the input directory.
	CacheFileName = ".crlf.cache"
	// CacheSchemaVersion must change whenever the cache entry layout changes.
	CacheSchemaVersion = "1.0"
)

// ReportSchemaVersion is the version of the JSON/YAML report layout.
const ReportSchemaVersion = "1.0"

// Skip reasons recorded in SkippedInfo.Reason.
const (
	SkipReasonBinary     = "binary_file"
	SkipReasonVendored   = "vendored"
	SkipReasonNotRegular = "not_regular_file"
)

// Ending labels recorded in FileResult.Ending.
const (
	EndingCRLF  = "crlf"
	EndingLF    = "lf"
	EndingMixed = "mixed"
	EndingNone  = "none"
)
