package converter

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
)

//go:embed report_schema.json
var reportSchema []byte

// ReportSchema returns the JSON Schema describing the JSON form of Report.
func ReportSchema() []byte {
	out := make([]byte, len(reportSchema))
	copy(out, reportSchema)
	return out
}

// Report summarizes the result of a single Run.
type Report struct {
	Summary ReportSummary `json:"summary" yaml:"summary"`
	Files   []FileResult  `json:"files" yaml:"files"`
	Skipped []SkippedInfo `json:"skipped" yaml:"skipped"`
	Errors  []ErrorInfo   `json:"errors" yaml:"errors"`
}

// ReportSummary contains aggregated statistics for a Run.
type ReportSummary struct {
	SchemaVersion   string    `json:"schemaVersion" yaml:"schemaVersion"`
	Action          Action    `json:"action" yaml:"action"`
	InputPath       string    `json:"inputPath" yaml:"inputPath"`
	Pattern         string    `json:"pattern" yaml:"pattern"`
	SourceMode      string    `json:"sourceMode" yaml:"sourceMode"`
	ProfileUsed     string    `json:"profileUsed,omitempty" yaml:"profileUsed,omitempty"`
	ConfigFilePath  string    `json:"configFilePath,omitempty" yaml:"configFilePath,omitempty"`
	TotalFiles      int       `json:"totalFiles" yaml:"totalFiles"`
	CRLFFiles       int       `json:"crlfFiles" yaml:"crlfFiles"`
	LFFiles         int       `json:"lfFiles" yaml:"lfFiles"`
	MixedFiles      int       `json:"mixedFiles" yaml:"mixedFiles"`
	NoEndingFiles   int       `json:"noEndingFiles" yaml:"noEndingFiles"`
	ConvertedCount  int       `json:"convertedCount" yaml:"convertedCount"`
	UnchangedCount  int       `json:"unchangedCount" yaml:"unchangedCount"`
	CachedCount     int       `json:"cachedCount" yaml:"cachedCount"`
	SkippedCount    int       `json:"skippedCount" yaml:"skippedCount"`
	ErrorCount      int       `json:"errorCount" yaml:"errorCount"`
	FatalError      bool      `json:"fatalError" yaml:"fatalError"`
	DryRun          bool      `json:"dryRun" yaml:"dryRun"`
	CacheEnabled    bool      `json:"cacheEnabled" yaml:"cacheEnabled"`
	Concurrency     int       `json:"concurrency" yaml:"concurrency"`
	DurationSeconds float64   `json:"durationSeconds" yaml:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
}

// FileResult details a file that was measured or converted.
// CRLF and LF are the counts before any conversion.
type FileResult struct {
	Path       string `json:"path" yaml:"path"`
	Status     Status `json:"status" yaml:"status"`
	CRLF       uint64 `json:"crlf" yaml:"crlf"`
	LF         uint64 `json:"lf" yaml:"lf"`
	Ending     string `json:"ending" yaml:"ending"`
	Target     string `json:"target,omitempty" yaml:"target,omitempty"`
	Changed    bool   `json:"changed" yaml:"changed"`
	SizeBytes  int64  `json:"sizeBytes" yaml:"sizeBytes"`
	DurationMs int64  `json:"durationMs" yaml:"durationMs"`
}

// Stats returns the measured counts.
func (f FileResult) Stats() lineending.Stats {
	return lineending.Stats{CRLF: f.CRLF, LF: f.LF}
}

// SkippedInfo details a file that was intentionally not processed.
type SkippedInfo struct {
	Path    string `json:"path" yaml:"path"`
	Reason  string `json:"reason" yaml:"reason"`
	Details string `json:"details" yaml:"details"`
}

// ErrorInfo details an error encountered while processing a specific file.
type ErrorInfo struct {
	Path    string `json:"path" yaml:"path"`
	Error   string `json:"error" yaml:"error"`
	IsFatal bool   `json:"isFatal" yaml:"isFatal"`
}

// EndingLabel names the classification of stats: "crlf", "lf", "mixed" or "none".
func EndingLabel(s lineending.Stats) string {
	if ending, ok := s.Classify(); ok {
		return ending.String()
	}
	if s.IsMixed() {
		return EndingMixed
	}
	return EndingNone
}

// EncodeReport writes report to w in the given machine-readable format.
func EncodeReport(w io.Writer, report Report, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report to JSON: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write JSON report: %w", err)
		}
		return nil
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to marshal report to YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unsupported report format %q", ErrConfigValidation, format)
	}
}
